package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress string  `mapstructure:"http_address"`
	RPCAddress  string  `mapstructure:"rpc_address"`
	ActionRate  float64 `mapstructure:"action_rate"`
	ActionBurst int     `mapstructure:"action_burst"`
}

type DatabaseConfig struct {
	// Driver is "memory" or "postgres".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	// AuditDSN, when set, mirrors every game action into a lib/pq backed audit table.
	AuditDSN string `mapstructure:"audit_dsn"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type GameConfig struct {
	TimerTick           time.Duration `mapstructure:"timer_tick"`
	InviteCodeLength    int           `mapstructure:"invite_code_length"`
	InviteLookupRetries int           `mapstructure:"invite_lookup_retries"`
	InviteLookupDelay   time.Duration `mapstructure:"invite_lookup_delay"`
	DefaultMaxPlayers   int           `mapstructure:"default_max_players"`
	MaxRoomPlayers      int           `mapstructure:"max_room_players"`
	RoomIdleTimeout     time.Duration `mapstructure:"room_idle_timeout"`
}

type MonitorConfig struct {
	Address   string `mapstructure:"address"`
	Namespace string `mapstructure:"namespace"`
}

type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.action_rate", 5.0)
	v.SetDefault("server.action_burst", 10)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "partygame")
	v.SetDefault("database.audit_dsn", "")

	v.SetDefault("game.timer_tick", 100*time.Millisecond)
	v.SetDefault("game.invite_code_length", 8)
	v.SetDefault("game.invite_lookup_retries", 3)
	v.SetDefault("game.invite_lookup_delay", 300*time.Millisecond)
	v.SetDefault("game.default_max_players", 20)
	v.SetDefault("game.max_room_players", 100)
	v.SetDefault("game.room_idle_timeout", 10*time.Minute)

	v.SetDefault("monitor.address", ":9090")
	v.SetDefault("monitor.namespace", "partygame")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "partygame")

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path, overlays PARTYGAME_* environment
// variables and fills in defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("partygame")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
