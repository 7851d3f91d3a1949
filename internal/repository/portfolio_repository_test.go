package repository

import (
	"testing"
	"time"

	"github.com/devfolio/devfolio-server/internal/domain"
)

func TestPortfolioSearchCategoryIsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	repo := NewPortfolioRepository(db)
	user := createTestUser(t, db, "maker", "Maker")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	hit := &domain.Portfolio{
		WriterID: user.ID, Title: "cli toolkit", Description: "a tool",
		Category: "Backend", CreatedAt: base, UpdatedAt: base,
	}
	miss := &domain.Portfolio{
		WriterID: user.ID, Title: "landing page", Description: "a site",
		Category: "Frontend", CreatedAt: base, UpdatedAt: base,
	}
	if err := repo.Create(hit); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(miss); err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := repo.Search(SearchRequest{
		PageRequest: PageRequest{Page: 0, PageSize: 10},
		Category:    "bAcKeNd",
		Sort:        SortUpdatedAt,
		Direction:   SortDesc,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Total != 1 || result.Items[0].ID != hit.ID {
		t.Fatalf("case-insensitive category match failed: %+v", result.Items)
	}
}

func TestPortfolioKeywordSearch(t *testing.T) {
	db := newTestDB(t)
	repo := NewPortfolioRepository(db)
	user := createTestUser(t, db, "maker", "Maker")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	hit := &domain.Portfolio{
		WriterID: user.ID, Title: "weather dashboard", Description: "charts",
		Category: "frontend", CreatedAt: base, UpdatedAt: base,
	}
	other := &domain.Portfolio{
		WriterID: user.ID, Title: "todo app", Description: "lists",
		Category: "frontend", CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute),
	}
	if err := repo.Create(hit); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(other); err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := repo.Search(SearchRequest{
		PageRequest: PageRequest{Page: 0, PageSize: 10},
		Keyword:     "weather",
		Sort:        SortUpdatedAt,
		Direction:   SortDesc,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Total != 1 || result.Items[0].ID != hit.ID {
		t.Fatalf("keyword match failed: %+v", result.Items)
	}
	if result.Items[0].WriterNickname != "Maker" {
		t.Fatalf("writer nickname missing: %+v", result.Items[0])
	}
}

func TestPortfolioToggleLikeMaintainsCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewPortfolioRepository(db)
	maker := createTestUser(t, db, "maker", "Maker")
	fan := createTestUser(t, db, "fan", "Fan")

	p := &domain.Portfolio{WriterID: maker.ID, Title: "cli toolkit", Description: "a tool", Category: "backend"}
	if err := repo.Create(p); err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := repo.ToggleLike(p.ID, fan.ID)
	if err != nil {
		t.Fatalf("toggle like: %v", err)
	}
	if !res.Liked || res.LikeCount != 1 {
		t.Fatalf("like must set count 1, got %+v", res)
	}

	got, err := repo.FindByID(p.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.LikeCount != 1 {
		t.Fatalf("stored like_count must follow the like row, got %d", got.LikeCount)
	}

	res, err = repo.ToggleLike(p.ID, fan.ID)
	if err != nil {
		t.Fatalf("unlike toggle: %v", err)
	}
	if res.Liked || res.LikeCount != 0 {
		t.Fatalf("unlike must drop the count to 0, got %+v", res)
	}
}
