package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/devfolio/devfolio-server/internal/domain"
)

func TestReaperRunOnce(t *testing.T) {
	repo := newInMemoryRefreshRepo()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mustCreate := func(tokenID string, expiresAt time.Time) {
		if err := repo.Create(&domain.RefreshToken{
			UserID: 1, TokenID: tokenID, TokenHash: "h", ExpiresAt: expiresAt,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	mustCreate("expired-1", now.Add(-time.Hour))
	mustCreate("expired-2", now.Add(-time.Minute))
	mustCreate("live", now.Add(time.Hour))

	reaper := NewReaper(repo, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	reaper.now = func() time.Time { return now }

	removed, err := reaper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if repo.count() != 1 {
		t.Fatalf("expected 1 surviving row, got %d", repo.count())
	}
}

func TestReaperRunStopsOnContextCancel(t *testing.T) {
	repo := newInMemoryRefreshRepo()
	reaper := NewReaper(repo, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reaper.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancel")
	}
}
