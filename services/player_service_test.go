package services

import (
	"context"
	"testing"

	"github.com/wfunc/partygame/models"
	"github.com/wfunc/partygame/persistence"
	"github.com/wfunc/partygame/state"
)

func TestPlayerService_ApplyFinalScores(t *testing.T) {
	store := persistence.NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"u1", "u2", "u3"} {
		if err := store.AddPlayer(ctx, &models.Player{RoomID: "r1", UserID: id, DisplayName: "name-" + id}); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
	}

	svc := NewPlayerService(store)
	err := svc.ApplyFinalScores(ctx, "r1", []state.Ranking{
		{PlayerID: "u2", Score: 900, Rank: 1},
		{PlayerID: "u1", Score: 300, Rank: 2},
		{PlayerID: "ghost", Score: 100, Rank: 3},
	})
	if err != nil {
		t.Fatalf("ApplyFinalScores: %v", err)
	}

	want := map[string]int{"u1": 300, "u2": 900, "u3": 0}
	for user, score := range want {
		p, err := store.FindPlayer(ctx, "r1", user)
		if err != nil {
			t.Fatalf("FindPlayer(%s): %v", user, err)
		}
		if p.Score != score {
			t.Errorf("Expected %s to have score %d, got %d", user, score, p.Score)
		}
	}

	names, err := svc.DisplayNames(ctx, "r1")
	if err != nil {
		t.Fatalf("DisplayNames: %v", err)
	}
	if names["u3"] != "name-u3" {
		t.Errorf("Expected name-u3, got %q", names["u3"])
	}
}

func TestPlayerService_MarkPlayingSkipsLeft(t *testing.T) {
	store := persistence.NewMemoryStore()
	ctx := context.Background()
	store.AddPlayer(ctx, &models.Player{RoomID: "r1", UserID: "u1", Status: models.PlayerReady})
	store.AddPlayer(ctx, &models.Player{RoomID: "r1", UserID: "u2", Status: models.PlayerLeft})

	seats, err := store.FindPlayersByRoom(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if err := NewPlayerService(store).MarkPlaying(ctx, seats); err != nil {
		t.Fatalf("MarkPlaying: %v", err)
	}

	seats, _ = store.FindPlayersByRoom(ctx, "r1")
	if seats[0].Status != models.PlayerPlaying {
		t.Errorf("Expected u1 playing, got %s", seats[0].Status)
	}
	if seats[1].Status != models.PlayerLeft {
		t.Errorf("Expected u2 to stay left, got %s", seats[1].Status)
	}
}

func TestPlayerService_RestoreStatusesUndoesMarkPlaying(t *testing.T) {
	store := persistence.NewMemoryStore()
	ctx := context.Background()
	store.AddPlayer(ctx, &models.Player{RoomID: "r1", UserID: "u1", Status: models.PlayerReady})
	store.AddPlayer(ctx, &models.Player{RoomID: "r1", UserID: "u2", Status: models.PlayerJoined})

	seats, err := store.FindPlayersByRoom(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	svc := NewPlayerService(store)
	if err := svc.MarkPlaying(ctx, seats); err != nil {
		t.Fatalf("MarkPlaying: %v", err)
	}
	if err := svc.RestoreStatuses(ctx, seats); err != nil {
		t.Fatalf("RestoreStatuses: %v", err)
	}

	after, _ := store.FindPlayersByRoom(ctx, "r1")
	if after[0].Status != models.PlayerReady || after[1].Status != models.PlayerJoined {
		t.Errorf("Expected ready and joined, got %s and %s", after[0].Status, after[1].Status)
	}
}
