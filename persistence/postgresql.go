// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/partygame/models"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"
)

// PQActionLog writes the action audit trail straight through database/sql,
// so a separate reporting database can receive it.
type PQActionLog struct {
	db      *sql.DB
	timeout time.Duration
}

var _ ActionLog = (*PQActionLog)(nil)

// NewPQActionLog 创建 PostgreSQL 审计连接
func NewPQActionLog(dsn string) (*PQActionLog, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PQActionLog{db: db, timeout: 5 * time.Second}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_action_audit (
            id SERIAL PRIMARY KEY,
            action_id VARCHAR(64) UNIQUE NOT NULL,
            room_id VARCHAR(64) NOT NULL,
            player_id VARCHAR(64) NOT NULL,
            action_type VARCHAR(64) NOT NULL,
            action_data JSONB NOT NULL,
            round INTEGER NOT NULL,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_game_action_audit_room_round ON game_action_audit(room_id, round);
    `)
	return err
}

func (p *PQActionLog) RecordAction(ctx context.Context, action *models.GameAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	data, err := json.Marshal(action.ActionData)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	query := `
        INSERT INTO game_action_audit (action_id, room_id, player_id, action_type, action_data, round)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at
    `
	return p.db.QueryRowContext(ctx, query,
		action.ID, action.RoomID, action.PlayerID, action.ActionType, data, action.Round,
	).Scan(&action.CreatedAt)
}

func (p *PQActionLog) FindActions(ctx context.Context, roomID string) ([]*models.GameAction, error) {
	return p.query(ctx, `
        SELECT action_id, room_id, player_id, action_type, action_data, round, created_at
        FROM game_action_audit WHERE room_id = $1 ORDER BY id
    `, roomID)
}

func (p *PQActionLog) FindActionsByRound(ctx context.Context, roomID string, round int) ([]*models.GameAction, error) {
	return p.query(ctx, `
        SELECT action_id, room_id, player_id, action_type, action_data, round, created_at
        FROM game_action_audit WHERE room_id = $1 AND round = $2 ORDER BY id
    `, roomID, round)
}

func (p *PQActionLog) query(ctx context.Context, query string, args ...any) ([]*models.GameAction, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.GameAction
	for rows.Next() {
		var (
			a    models.GameAction
			data []byte
		)
		if err := rows.Scan(&a.ID, &a.RoomID, &a.PlayerID, &a.ActionType, &data, &a.Round, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &a.ActionData); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Close 关闭数据库连接
func (p *PQActionLog) Close() error {
	return p.db.Close()
}
