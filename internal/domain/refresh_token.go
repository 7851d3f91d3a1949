package domain

import "time"

// RefreshToken is one outstanding refresh session row. TokenID is the public
// correlation handle returned to the client; TokenHash is the peppered HMAC
// of the raw secret. The raw secret itself never touches the database, and a
// row is deleted on every consume attempt, so exactly one row exists per
// unrotated refresh token.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	TokenID   string    `gorm:"size:36;not null;uniqueIndex" json:"-"`
	TokenHash string    `gorm:"size:64;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
