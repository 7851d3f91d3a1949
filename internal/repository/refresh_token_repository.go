package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/devfolio/devfolio-server/internal/domain"
	"github.com/devfolio/devfolio-server/internal/observability"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshTokenRepository persists rotating refresh rows. Consumption is a
// single conditional DELETE: rows-affected tells the caller whether it won,
// so two concurrent refresh attempts on the same token-id can never both
// succeed.
type RefreshTokenRepository interface {
	Create(t *domain.RefreshToken) error
	FindByUserAndTokenID(userID uint, tokenID string) (*domain.RefreshToken, error)
	FindUserIDByTokenID(tokenID string) (uint, error)
	DeleteByID(id uint) (bool, error)
	DeleteByUserAndTokenID(userID uint, tokenID string) (bool, error)
	DeleteExpired(now time.Time) (int64, error)
}

type GormRefreshTokenRepository struct{ db *gorm.DB }

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &GormRefreshTokenRepository{db: db}
}

func (r *GormRefreshTokenRepository) Create(t *domain.RefreshToken) error {
	err := r.db.Create(t).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "refresh_token", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "refresh_token", "create", "success")
	return nil
}

func (r *GormRefreshTokenRepository) FindByUserAndTokenID(userID uint, tokenID string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.Where("user_id = ? AND token_id = ?", userID, tokenID).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "refresh_token", "find_by_user_and_token_id", "not_found")
			return nil, ErrRefreshTokenNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "refresh_token", "find_by_user_and_token_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "refresh_token", "find_by_user_and_token_id", "success")
	return &t, nil
}

func (r *GormRefreshTokenRepository) FindUserIDByTokenID(tokenID string) (uint, error) {
	var t domain.RefreshToken
	err := r.db.Select("user_id").Where("token_id = ?", tokenID).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "refresh_token", "find_user_id_by_token_id", "not_found")
			return 0, ErrRefreshTokenNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "refresh_token", "find_user_id_by_token_id", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "refresh_token", "find_user_id_by_token_id", "success")
	return t.UserID, nil
}

// DeleteByID removes one row and reports whether this caller removed it.
// The row-scoped DELETE is the atomicity point of the rotation protocol.
func (r *GormRefreshTokenRepository) DeleteByID(id uint) (bool, error) {
	res := r.db.Where("id = ?", id).Delete(&domain.RefreshToken{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "refresh_token", "delete_by_id", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "refresh_token", "delete_by_id", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormRefreshTokenRepository) DeleteByUserAndTokenID(userID uint, tokenID string) (bool, error) {
	res := r.db.Where("user_id = ? AND token_id = ?", userID, tokenID).Delete(&domain.RefreshToken{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "refresh_token", "delete_by_user_and_token_id", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "refresh_token", "delete_by_user_and_token_id", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormRefreshTokenRepository) DeleteExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at <= ?", now).Delete(&domain.RefreshToken{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "refresh_token", "delete_expired", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "refresh_token", "delete_expired", "success")
	return res.RowsAffected, nil
}
