package service

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/devfolio/devfolio-server/internal/domain"
	"github.com/devfolio/devfolio-server/internal/repository"
	"github.com/devfolio/devfolio-server/internal/security"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// TokenPair is one complete credential set: the signed access token plus the
// opaque refresh secret and its id. The raw refresh secret exists only in
// this struct and in the client's cookie.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenID      string
}

type AuthService struct {
	users     repository.UserRepository
	jwtMgr    *security.JWTManager
	tokens    *RefreshTokenService
	accessTTL time.Duration
}

func NewAuthService(users repository.UserRepository, jwtMgr *security.JWTManager, tokens *RefreshTokenService, accessTTL time.Duration) *AuthService {
	return &AuthService{users: users, jwtMgr: jwtMgr, tokens: tokens, accessTTL: accessTTL}
}

// Register creates a local account. The password is bcrypt-hashed; the login
// id collision surfaces as repository.ErrLoginIDTaken for the handler to map
// to a conflict response.
func (s *AuthService) Register(loginID, password, email, nickname string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		LoginID:      strings.TrimSpace(loginID),
		Email:        strings.TrimSpace(email),
		Nickname:     strings.TrimSpace(nickname),
		PasswordHash: string(hash),
		AuthProvider: domain.ProviderLocal,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks a local credential pair and, on success, issues a full token
// set. Unknown login id and wrong password collapse into one error so the
// response does not reveal which accounts exist.
func (s *AuthService) Login(loginID, password string) (*domain.User, *TokenPair, error) {
	user, err := s.users.FindByLoginID(loginID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if user.AuthProvider != domain.ProviderLocal || user.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}
	pair, err := s.IssuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh credential: the presented (token id, secret)
// pair is consumed and a brand new token set is issued. Every failure mode,
// unknown id, expired row, wrong secret, lost race, vanished user, maps to
// ErrInvalidRefreshToken; the handler answers 401 and the client re-logs-in.
func (s *AuthService) Refresh(tokenID, rawRefresh string) (*domain.User, *TokenPair, error) {
	userID, err := s.tokens.OwnerOf(tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, err
	}
	ok, err := s.tokens.VerifyAndConsume(userID, tokenID, rawRefresh)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrInvalidRefreshToken
	}
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, err
	}
	pair, err := s.IssuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout discards the presented refresh credential. The access token stays
// verifiable until its expiry; there is no denylist, its short ttl bounds
// the exposure.
func (s *AuthService) Logout(userID uint, tokenID string) error {
	return s.tokens.Revoke(userID, tokenID)
}

// IssuePair mints the access token and refresh credential for a user. Shared
// by password login, refresh rotation, and the OAuth callback.
func (s *AuthService) IssuePair(user *domain.User) (*TokenPair, error) {
	access, err := s.jwtMgr.MintAccessToken(user.ID, user.LoginID, user.AuthProvider, s.accessTTL)
	if err != nil {
		return nil, err
	}
	raw, tokenID, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: raw, TokenID: tokenID}, nil
}
