// services/player_service.go
package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wfunc/partygame/models"
	"github.com/wfunc/partygame/persistence"
	"github.com/wfunc/partygame/state"
)

// finalScoreWriters bounds the concurrent score updates of one game.
const finalScoreWriters = 8

type PlayerService struct {
	players persistence.PlayerRepository
}

func NewPlayerService(players persistence.PlayerRepository) *PlayerService {
	return &PlayerService{players: players}
}

// ApplyFinalScores 把最终得分写回玩家记录. Rankings name players by user id;
// rankings for users without a seat in the room are skipped.
func (s *PlayerService) ApplyFinalScores(ctx context.Context, roomID string, rankings []state.Ranking) error {
	seats, err := s.players.FindPlayersByRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("load players of room %s: %w", roomID, err)
	}
	byUser := make(map[string]*models.Player, len(seats))
	for _, p := range seats {
		byUser[p.UserID] = p
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(finalScoreWriters)
	for _, r := range rankings {
		p, ok := byUser[r.PlayerID]
		if !ok {
			continue
		}
		playerID, score := p.ID, r.Score
		g.Go(func() error {
			if err := s.players.UpdatePlayerScore(ctx, playerID, score); err != nil {
				return fmt.Errorf("update score of player %s: %w", playerID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// DisplayNames maps user ids to the names they joined the room with.
func (s *PlayerService) DisplayNames(ctx context.Context, roomID string) (map[string]string, error) {
	seats, err := s.players.FindPlayersByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(seats))
	for _, p := range seats {
		names[p.UserID] = p.DisplayName
	}
	return names, nil
}

// MarkPlaying moves every seated player that has not left into the playing status.
func (s *PlayerService) MarkPlaying(ctx context.Context, players []*models.Player) error {
	for _, p := range players {
		if p.Status == models.PlayerLeft {
			continue
		}
		if err := s.players.UpdatePlayerStatus(ctx, p.ID, models.PlayerPlaying); err != nil {
			return fmt.Errorf("update status of player %s: %w", p.ID, err)
		}
	}
	return nil
}

// RestoreStatuses writes back the statuses the seats were read with. It undoes
// MarkPlaying when a start does not go through.
func (s *PlayerService) RestoreStatuses(ctx context.Context, players []*models.Player) error {
	for _, p := range players {
		if p.Status == models.PlayerLeft {
			continue
		}
		if err := s.players.UpdatePlayerStatus(ctx, p.ID, p.Status); err != nil {
			return fmt.Errorf("restore status of player %s: %w", p.ID, err)
		}
	}
	return nil
}
