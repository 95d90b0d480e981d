package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wfunc/partygame/broadcast"
	"github.com/wfunc/partygame/config"
	"github.com/wfunc/partygame/events"
	"github.com/wfunc/partygame/games"
	"github.com/wfunc/partygame/logger"
	"github.com/wfunc/partygame/monitor"
	"github.com/wfunc/partygame/persistence"
	"github.com/wfunc/partygame/room"
	"github.com/wfunc/partygame/rpc"
	"github.com/wfunc/partygame/server"
	"github.com/wfunc/partygame/services"
	"github.com/wfunc/partygame/session"
	"github.com/wfunc/partygame/timer"
	"github.com/wfunc/partygame/tracing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Init("info")
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logger.Log.Fatalf("Failed to set up tracing: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mon := monitor.NewMonitor(cfg.Monitor.Namespace, reg)
	metricsServer := mon.StartServer(cfg.Monitor.Address)

	// Initialize Database
	store, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to open store: %v", err)
	}
	logger.Log.Infow("Store ready", "driver", cfg.Database.Driver, "audit", cfg.Database.AuditDSN != "")

	registry, err := games.NewRegistry()
	if err != nil {
		logger.Log.Fatalf("Failed to register games: %v", err)
	}

	roomManager := room.NewRoomManager(room.WithIdleTimeout(cfg.Game.RoomIdleTimeout))
	scheduler := timer.NewScheduler(timer.NewTimerManager(cfg.Game.TimerTick))
	sessionManager := session.NewManager()
	publisher := events.Multi{events.LogPublisher{}, broadcast.NewRoomBroadcaster(sessionManager)}

	orchestrator := services.NewOrchestrator(store, registry, roomManager, scheduler,
		services.WithObserver(mon),
		services.WithPublisher(publisher),
	)
	roomService := services.NewRoomService(store, registry, roomManager, cfg.Game,
		services.WithRoomPublisher(publisher),
	)

	restored, err := orchestrator.RestoreTimers(ctx)
	if err != nil {
		logger.Log.Fatalf("Failed to restore phase timers: %v", err)
	}
	logger.Log.Infow("Phase timers restored", "games", restored)

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewGameService(orchestrator))
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	go rpcServer.Start()

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg.Server, registry, roomService, orchestrator, sessionManager,
		server.WithSessionGauge(mon),
	)
	serveErr := make(chan error, 1)
	go func() { serveErr <- gameServer.Start() }()

	select {
	case <-ctx.Done():
		logger.Log.Info("Shutting down")
	case err := <-serveErr:
		if err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnw("http shutdown", "error", err)
	}
	rpcServer.Stop()
	scheduler.Stop()
	roomManager.Stop()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnw("metrics shutdown", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Log.Warnw("store close", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Log.Warnw("tracing shutdown", "error", err)
	}
}
