package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/partygame/config"
	"github.com/wfunc/partygame/models"
)

// Open builds the store selected by cfg.Driver. When cfg.AuditDSN is set,
// accepted actions are written to that database instead.
func Open(cfg config.DatabaseConfig) (Store, error) {
	var store Store
	switch cfg.Driver {
	case "", "memory":
		store = NewMemoryStore()
	case "postgres":
		pg := cfg.Postgres
		s, err := NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	if cfg.AuditDSN == "" {
		return store, nil
	}
	audit, err := NewPQActionLog(cfg.AuditDSN)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return WithActionLog(store, audit), nil
}

type closableLog interface {
	ActionLog
	Close() error
}

// WithActionLog routes the action methods of store to log.
func WithActionLog(store Store, log closableLog) Store {
	return &auditedStore{Store: store, log: log}
}

type auditedStore struct {
	Store
	log closableLog
}

func (s *auditedStore) RecordAction(ctx context.Context, action *models.GameAction) error {
	return s.log.RecordAction(ctx, action)
}

func (s *auditedStore) FindActions(ctx context.Context, roomID string) ([]*models.GameAction, error) {
	return s.log.FindActions(ctx, roomID)
}

func (s *auditedStore) FindActionsByRound(ctx context.Context, roomID string, round int) ([]*models.GameAction, error) {
	return s.log.FindActionsByRound(ctx, roomID, round)
}

func (s *auditedStore) Close() error {
	return errors.Join(s.Store.Close(), s.log.Close())
}
