package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/devfolio/devfolio-server/internal/observability"
	"github.com/devfolio/devfolio-server/internal/repository"
)

const snippetLimit = 160

// CommunityPostView is the search result shape served to clients. Body text
// is reduced to a snippet; LikedByMe is filled only for authenticated
// viewers.
type CommunityPostView struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Snippet        string    `json:"snippet"`
	Category       string    `json:"category"`
	Views          int64     `json:"views"`
	LikeCount      int64     `json:"like_count"`
	CommentCount   int64     `json:"comment_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	WriterNickname string    `json:"writer_nickname"`
	LikedByMe      bool      `json:"liked_by_me"`
}

type PortfolioView struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Snippet        string    `json:"snippet"`
	Category       string    `json:"category"`
	Views          int64     `json:"views"`
	LikeCount      int64     `json:"like_count"`
	CommentCount   int64     `json:"comment_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	WriterNickname string    `json:"writer_nickname"`
	LikedByMe      bool      `json:"liked_by_me"`
}

// SearchService fronts the community and portfolio query builders with a
// short-lived page cache and per-viewer decoration.
type SearchService struct {
	community  repository.CommunityRepository
	portfolios repository.PortfolioRepository
	cache      SearchCacheStore
	cacheTTL   time.Duration
}

func NewSearchService(community repository.CommunityRepository, portfolios repository.PortfolioRepository, cache SearchCacheStore, cacheTTL time.Duration) *SearchService {
	if cache == nil {
		cache = NewNoopSearchCacheStore()
	}
	return &SearchService{community: community, portfolios: portfolios, cache: cache, cacheTTL: cacheTTL}
}

// SearchCommunity serves one result page. Anonymous pages are cacheable as
// rendered; authenticated viewers bypass the cache because LikedByMe makes
// the page per-user.
func (s *SearchService) SearchCommunity(ctx context.Context, req repository.SearchRequest, viewerID uint) (repository.PageResult[CommunityPostView], error) {
	if viewerID == 0 {
		if page, ok := s.cachedCommunityPage(ctx, req); ok {
			observability.RecordSearchRequest("community", "hit")
			return page, nil
		}
	}

	result, err := s.community.Search(req)
	if err != nil {
		return repository.PageResult[CommunityPostView]{}, err
	}

	page := repository.PageResult[CommunityPostView]{
		Items:      make([]CommunityPostView, 0, len(result.Items)),
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	}
	ids := make([]uint, 0, len(result.Items))
	for _, row := range result.Items {
		ids = append(ids, row.ID)
		page.Items = append(page.Items, CommunityPostView{
			ID:             row.ID,
			Title:          row.Title,
			Snippet:        makeSnippet(row.Content),
			Category:       row.Category,
			Views:          row.Views,
			LikeCount:      row.LikeCount,
			CommentCount:   row.CommentCount,
			CreatedAt:      row.CreatedAt,
			UpdatedAt:      row.UpdatedAt,
			WriterNickname: row.WriterNickname,
		})
	}

	if viewerID == 0 {
		s.storeCachedPage(ctx, "community", req, page)
		observability.RecordSearchRequest("community", "miss")
		return page, nil
	}

	liked, err := s.community.LikedPostIDs(viewerID, ids)
	if err != nil {
		return repository.PageResult[CommunityPostView]{}, err
	}
	for i := range page.Items {
		page.Items[i].LikedByMe = liked[page.Items[i].ID]
	}
	observability.RecordSearchRequest("community", "bypass")
	return page, nil
}

func (s *SearchService) SearchPortfolios(ctx context.Context, req repository.SearchRequest, viewerID uint) (repository.PageResult[PortfolioView], error) {
	if viewerID == 0 {
		if page, ok := s.cachedPortfolioPage(ctx, req); ok {
			observability.RecordSearchRequest("portfolio", "hit")
			return page, nil
		}
	}

	result, err := s.portfolios.Search(req)
	if err != nil {
		return repository.PageResult[PortfolioView]{}, err
	}

	page := repository.PageResult[PortfolioView]{
		Items:      make([]PortfolioView, 0, len(result.Items)),
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	}
	ids := make([]uint, 0, len(result.Items))
	for _, row := range result.Items {
		ids = append(ids, row.ID)
		page.Items = append(page.Items, PortfolioView{
			ID:             row.ID,
			Title:          row.Title,
			Snippet:        makeSnippet(row.Description),
			Category:       row.Category,
			Views:          row.Views,
			LikeCount:      row.LikeCount,
			CommentCount:   row.CommentCount,
			CreatedAt:      row.CreatedAt,
			UpdatedAt:      row.UpdatedAt,
			WriterNickname: row.WriterNickname,
		})
	}

	if viewerID == 0 {
		s.storeCachedPage(ctx, "portfolio", req, page)
		observability.RecordSearchRequest("portfolio", "miss")
		return page, nil
	}

	liked, err := s.portfolios.LikedPortfolioIDs(viewerID, ids)
	if err != nil {
		return repository.PageResult[PortfolioView]{}, err
	}
	for i := range page.Items {
		page.Items[i].LikedByMe = liked[page.Items[i].ID]
	}
	observability.RecordSearchRequest("portfolio", "bypass")
	return page, nil
}

func (s *SearchService) cachedCommunityPage(ctx context.Context, req repository.SearchRequest) (repository.PageResult[CommunityPostView], bool) {
	var page repository.PageResult[CommunityPostView]
	payload, ok, err := s.cache.Get(ctx, "community", req.CacheKey())
	if err != nil || !ok {
		return page, false
	}
	if json.Unmarshal(payload, &page) != nil {
		return repository.PageResult[CommunityPostView]{}, false
	}
	return page, true
}

func (s *SearchService) cachedPortfolioPage(ctx context.Context, req repository.SearchRequest) (repository.PageResult[PortfolioView], bool) {
	var page repository.PageResult[PortfolioView]
	payload, ok, err := s.cache.Get(ctx, "portfolio", req.CacheKey())
	if err != nil || !ok {
		return page, false
	}
	if json.Unmarshal(payload, &page) != nil {
		return repository.PageResult[PortfolioView]{}, false
	}
	return page, true
}

// storeCachedPage is best effort; a cache write failure never fails the
// request.
func (s *SearchService) storeCachedPage(ctx context.Context, resource string, req repository.SearchRequest, page any) {
	payload, err := json.Marshal(page)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, resource, req.CacheKey(), payload, s.cacheTTL)
}

// makeSnippet collapses whitespace and truncates body text on a rune
// boundary.
func makeSnippet(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(collapsed) <= snippetLimit {
		return collapsed
	}
	runes := []rune(collapsed)
	return string(runes[:snippetLimit]) + "..."
}
