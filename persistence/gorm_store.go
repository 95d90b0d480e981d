// persistence/gorm_store.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/partygame/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore 使用GORM的实现, backed by PostgreSQL in production.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return NewGormStore(db)
}

// NewGormStore migrates the schema on db and wraps it.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := autoMigrate(db); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func gormConfig() *gorm.Config {
	// 配置GORM日志
	return &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold: time.Second,
				LogLevel:      logger.Silent,
				Colorful:      false,
			},
		),
	}
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.RoomRow{},
		&models.PlayerRow{},
		&models.GameStateRow{},
		&models.GameActionRow{},
		&models.InviteRow{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

// rowsOrNotFound turns a write that touched nothing into ErrRecordNotFound.
func rowsOrNotFound(tx *gorm.DB) error {
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (g *GormStore) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	row := models.RoomRow{
		RoomID:     room.ID,
		HostID:     room.HostID,
		GameSlug:   room.GameSlug,
		Name:       room.Name,
		Status:     string(room.Status),
		Config:     room.Config,
		MaxPlayers: room.MaxPlayers,
		HostPlays:  room.HostPlays,
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	room.CreatedAt, room.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

func (g *GormStore) FindRoom(ctx context.Context, roomID string) (*models.Room, error) {
	var row models.RoomRow
	if err := g.db.WithContext(ctx).Where("room_id = ?", roomID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row.ToRoom(), nil
}

func (g *GormStore) UpdateRoomStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	tx := g.db.WithContext(ctx).Model(&models.RoomRow{}).
		Where("room_id = ?", roomID).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()})
	return rowsOrNotFound(tx)
}

func (g *GormStore) AddPlayer(ctx context.Context, player *models.Player) error {
	if player.ID == "" {
		player.ID = uuid.NewString()
	}
	player.JoinedAt = time.Now()
	row := models.PlayerRow{
		PlayerID:    player.ID,
		RoomID:      player.RoomID,
		UserID:      player.UserID,
		DisplayName: player.DisplayName,
		Status:      string(player.Status),
		Score:       player.Score,
		JoinedAt:    player.JoinedAt,
	}
	return g.db.WithContext(ctx).Create(&row).Error
}

func (g *GormStore) FindPlayersByRoom(ctx context.Context, roomID string) ([]*models.Player, error) {
	var rows []models.PlayerRow
	if err := g.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Player, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToPlayer())
	}
	return out, nil
}

func (g *GormStore) FindPlayer(ctx context.Context, roomID, userID string) (*models.Player, error) {
	var row models.PlayerRow
	err := g.db.WithContext(ctx).Where("room_id = ? AND user_id = ?", roomID, userID).First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return row.ToPlayer(), nil
}

func (g *GormStore) UpdatePlayerStatus(ctx context.Context, playerID string, status models.PlayerStatus) error {
	tx := g.db.WithContext(ctx).Model(&models.PlayerRow{}).
		Where("player_id = ?", playerID).
		Update("status", string(status))
	return rowsOrNotFound(tx)
}

func (g *GormStore) UpdatePlayerScore(ctx context.Context, playerID string, score int) error {
	tx := g.db.WithContext(ctx).Model(&models.PlayerRow{}).
		Where("player_id = ?", playerID).
		Update("score", score)
	return rowsOrNotFound(tx)
}

func (g *GormStore) RemovePlayer(ctx context.Context, roomID, userID string) error {
	tx := g.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&models.PlayerRow{})
	return rowsOrNotFound(tx)
}

func (g *GormStore) CountPlayers(ctx context.Context, roomID string) (int, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&models.PlayerRow{}).Where("room_id = ?", roomID).Count(&n).Error
	return int(n), err
}

func (g *GormStore) CreateGameState(ctx context.Context, gs *models.GameState) error {
	gs.Version = 1
	row := models.GameStateRow{
		RoomID:        gs.RoomID,
		Phase:         string(gs.Phase),
		CurrentRound:  gs.CurrentRound,
		TotalRounds:   gs.TotalRounds,
		StateData:     gs.StateData,
		PhaseDeadline: gs.PhaseDeadline,
		PhaseSeq:      gs.PhaseSeq,
		Version:       gs.Version,
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	gs.UpdatedAt = row.UpdatedAt
	return nil
}

func (g *GormStore) FindGameState(ctx context.Context, roomID string) (*models.GameState, error) {
	var row models.GameStateRow
	if err := g.db.WithContext(ctx).Where("room_id = ?", roomID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row.ToGameState(), nil
}

// UpdateGameState is a compare-and-swap on the version column.
func (g *GormStore) UpdateGameState(ctx context.Context, gs *models.GameState) error {
	now := time.Now()
	tx := g.db.WithContext(ctx).Model(&models.GameStateRow{}).
		Where("room_id = ? AND version = ?", gs.RoomID, gs.Version).
		Updates(map[string]any{
			"phase":          string(gs.Phase),
			"current_round":  gs.CurrentRound,
			"total_rounds":   gs.TotalRounds,
			"state_data":     []byte(gs.StateData),
			"phase_deadline": gs.PhaseDeadline,
			"phase_seq":      gs.PhaseSeq,
			"version":        gs.Version + 1,
			"updated_at":     now,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		var n int64
		if err := g.db.WithContext(ctx).Model(&models.GameStateRow{}).Where("room_id = ?", gs.RoomID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrRecordNotFound
		}
		return ErrVersionConflict
	}
	gs.Version++
	gs.UpdatedAt = now
	return nil
}

func (g *GormStore) ListActiveGameStates(ctx context.Context) ([]*models.GameState, error) {
	var rows []models.GameStateRow
	err := g.db.WithContext(ctx).Where("phase <> ?", string(models.PhaseFinished)).Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*models.GameState, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToGameState())
	}
	return out, nil
}

func (g *GormStore) RecordAction(ctx context.Context, action *models.GameAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	row := models.GameActionRow{
		ActionID:   action.ID,
		RoomID:     action.RoomID,
		PlayerID:   action.PlayerID,
		ActionType: action.ActionType,
		ActionData: action.ActionData,
		Round:      action.Round,
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	action.CreatedAt = row.CreatedAt
	return nil
}

func (g *GormStore) FindActions(ctx context.Context, roomID string) ([]*models.GameAction, error) {
	return g.findActions(g.db.WithContext(ctx).Where("room_id = ?", roomID))
}

func (g *GormStore) FindActionsByRound(ctx context.Context, roomID string, round int) ([]*models.GameAction, error) {
	return g.findActions(g.db.WithContext(ctx).Where("room_id = ? AND round = ?", roomID, round))
}

func (g *GormStore) findActions(q *gorm.DB) ([]*models.GameAction, error) {
	var rows []models.GameActionRow
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.GameAction, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToGameAction())
	}
	return out, nil
}

func (g *GormStore) CreateInvite(ctx context.Context, invite *models.InviteCode) error {
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	row := models.InviteRow{
		InviteID:  invite.ID,
		RoomID:    invite.RoomID,
		Code:      invite.Code,
		MaxUses:   invite.MaxUses,
		UseCount:  invite.UseCount,
		ExpiresAt: invite.ExpiresAt,
		CreatedBy: invite.CreatedBy,
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	invite.CreatedAt = row.CreatedAt
	return nil
}

func (g *GormStore) FindInviteByCode(ctx context.Context, code string) (*models.InviteCode, error) {
	var row models.InviteRow
	if err := g.db.WithContext(ctx).Where("code = ?", code).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row.ToInviteCode(), nil
}

func (g *GormStore) FindInvitesByRoom(ctx context.Context, roomID string) ([]*models.InviteCode, error) {
	var rows []models.InviteRow
	if err := g.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.InviteCode, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToInviteCode())
	}
	return out, nil
}

func (g *GormStore) IncrementInviteUse(ctx context.Context, inviteID string) error {
	tx := g.db.WithContext(ctx).Model(&models.InviteRow{}).
		Where("invite_id = ?", inviteID).
		Update("use_count", gorm.Expr("use_count + ?", 1))
	return rowsOrNotFound(tx)
}

// Close 关闭数据库连接
func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
