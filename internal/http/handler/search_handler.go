package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/devfolio/devfolio-server/internal/http/middleware"
	"github.com/devfolio/devfolio-server/internal/http/response"
	"github.com/devfolio/devfolio-server/internal/repository"
	"github.com/devfolio/devfolio-server/internal/service"
)

type SearchHandler struct {
	search     service.SearchServiceInterface
	community  repository.CommunityRepository
	portfolios repository.PortfolioRepository
}

func NewSearchHandler(search service.SearchServiceInterface, community repository.CommunityRepository, portfolios repository.PortfolioRepository) *SearchHandler {
	return &SearchHandler{search: search, community: community, portfolios: portfolios}
}

func (h *SearchHandler) CommunitySearch(w http.ResponseWriter, r *http.Request) {
	req, fields := parseSearchRequest(r, true)
	if fields != nil {
		response.ValidationError(w, r, fields)
		return
	}
	page, err := h.search.SearchCommunity(r.Context(), req, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "search failed", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, page)
}

func (h *SearchHandler) PortfolioSearch(w http.ResponseWriter, r *http.Request) {
	req, fields := parseSearchRequest(r, false)
	if fields != nil {
		response.ValidationError(w, r, fields)
		return
	}
	page, err := h.search.SearchPortfolios(r.Context(), req, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "search failed", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, page)
}

// CommunityDetail serves one post and bumps its view counter. The bump is
// best effort; a failed increment never hides the post.
func (h *SearchHandler) CommunityDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	post, err := h.community.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "post not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "lookup failed", nil)
		return
	}
	if err := h.community.IncrementViews(id); err == nil {
		post.Views++
	}
	response.JSON(w, r, http.StatusOK, post)
}

func (h *SearchHandler) PortfolioDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	portfolio, err := h.portfolios.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrPortfolioNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "portfolio not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "lookup failed", nil)
		return
	}
	if err := h.portfolios.IncrementViews(id); err == nil {
		portfolio.Views++
	}
	response.JSON(w, r, http.StatusOK, portfolio)
}

// LikeCommunityPost toggles the caller's like: a first call likes the post,
// a second call takes the like back. The response carries the resulting
// state and the post's updated like count.
func (h *SearchHandler) LikeCommunityPost(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	userID := middleware.UserIDFromContext(r.Context())
	if _, err := h.community.FindByID(id); err != nil {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "post not found", nil)
		return
	}
	result, err := h.community.ToggleLike(id, userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "like failed", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"post_id":    id,
		"liked":      result.Liked,
		"like_count": result.LikeCount,
	})
}

func (h *SearchHandler) LikePortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	userID := middleware.UserIDFromContext(r.Context())
	if _, err := h.portfolios.FindByID(id); err != nil {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "portfolio not found", nil)
		return
	}
	result, err := h.portfolios.ToggleLike(id, userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "like failed", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"portfolio_id": id,
		"liked":        result.Liked,
		"like_count":   result.LikeCount,
	})
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return 0, false
	}
	return uint(id), true
}
