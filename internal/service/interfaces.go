package service

import (
	"context"

	"github.com/devfolio/devfolio-server/internal/domain"
	"github.com/devfolio/devfolio-server/internal/repository"
)

type AuthServiceInterface interface {
	Register(loginID, password, email, nickname string) (*domain.User, error)
	Login(loginID, password string) (*domain.User, *TokenPair, error)
	Refresh(tokenID, rawRefresh string) (*domain.User, *TokenPair, error)
	Logout(userID uint, tokenID string) error
	IssuePair(user *domain.User) (*TokenPair, error)
}

type OAuthServiceInterface interface {
	GoogleLoginURL(state string) string
	HandleGoogleCallback(ctx context.Context, code string) (*domain.User, error)
}

type SearchServiceInterface interface {
	SearchCommunity(ctx context.Context, req repository.SearchRequest, viewerID uint) (repository.PageResult[CommunityPostView], error)
	SearchPortfolios(ctx context.Context, req repository.SearchRequest, viewerID uint) (repository.PageResult[PortfolioView], error)
}
