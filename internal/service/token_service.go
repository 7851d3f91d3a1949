package service

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/devfolio/devfolio-server/internal/domain"
	"github.com/devfolio/devfolio-server/internal/repository"
	"github.com/devfolio/devfolio-server/internal/security"
)

// RefreshTokenService owns the server side of the refresh contract: opaque
// secrets handed to clients, peppered digests at rest, and strict single-use
// consumption on rotation.
type RefreshTokenService struct {
	repo   repository.RefreshTokenRepository
	pepper string
	ttl    time.Duration
	now    func() time.Time
}

func NewRefreshTokenService(repo repository.RefreshTokenRepository, pepper string, ttl time.Duration) *RefreshTokenService {
	return &RefreshTokenService{repo: repo, pepper: pepper, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the service that reads time from now.
func (s *RefreshTokenService) WithClock(now func() time.Time) *RefreshTokenService {
	return &RefreshTokenService{repo: s.repo, pepper: s.pepper, ttl: s.ttl, now: now}
}

// Issue creates a fresh refresh credential for the user: a random opaque
// secret and the uuid handle the client presents alongside it. Only the
// peppered digest of the secret is stored.
func (s *RefreshTokenService) Issue(userID uint) (raw, tokenID string, err error) {
	raw, err = security.NewRawRefreshToken()
	if err != nil {
		return "", "", err
	}
	tokenID = uuid.NewString()
	err = s.repo.Create(&domain.RefreshToken{
		UserID:    userID,
		TokenID:   tokenID,
		TokenHash: security.HashRefreshToken(raw, s.pepper),
		ExpiresAt: s.now().Add(s.ttl),
	})
	if err != nil {
		return "", "", err
	}
	return raw, tokenID, nil
}

// OwnerOf resolves the user a token id belongs to without consuming it.
func (s *RefreshTokenService) OwnerOf(tokenID string) (uint, error) {
	return s.repo.FindUserIDByTokenID(tokenID)
}

// VerifyAndConsume validates a presented refresh credential and removes it
// in the same step. The row is consumed even when the secret does not match,
// so a guessed token id burns the real credential instead of leaving it open
// to further attempts. Under concurrent presentation of the same credential
// at most one caller gets true; the losers see the row already gone.
func (s *RefreshTokenService) VerifyAndConsume(userID uint, tokenID, raw string) (bool, error) {
	row, err := s.repo.FindByUserAndTokenID(userID, tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return false, nil
		}
		return false, err
	}

	if row.ExpiresAt.Before(s.now()) {
		_, _ = s.repo.DeleteByID(row.ID)
		return false, nil
	}

	matched := security.RefreshTokenHashMatches(raw, s.pepper, row.TokenHash)
	consumed, err := s.repo.DeleteByID(row.ID)
	if err != nil {
		return false, err
	}
	return matched && consumed, nil
}

// Revoke drops a credential on logout. Missing rows are not an error; the
// client may retry a logout it never saw confirmed.
func (s *RefreshTokenService) Revoke(userID uint, tokenID string) error {
	_, err := s.repo.DeleteByUserAndTokenID(userID, tokenID)
	return err
}
