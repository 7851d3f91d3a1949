package domain

import "time"

// Auth provider tags. Identity fields are immutable after signup; the
// provider tag records where the account came from.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LoginID      string    `gorm:"size:64;uniqueIndex;not null" json:"login_id"`
	Email        string    `gorm:"size:255;index" json:"email"`
	Nickname     string    `gorm:"size:64" json:"nickname"`
	PasswordHash string    `gorm:"size:128" json:"-"`
	AuthProvider string    `gorm:"size:16;not null;default:local" json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
