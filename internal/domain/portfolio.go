package domain

import "time"

// Portfolio mirrors CommunityPost for the portfolio feed. Categories are
// free-form labels chosen by the writer, matched case-insensitively at
// search time.
type Portfolio struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	WriterID     uint      `gorm:"index;not null" json:"writer_id"`
	Writer       User      `gorm:"foreignKey:WriterID" json:"-"`
	Title        string    `gorm:"size:200;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Category     string    `gorm:"size:32;index;not null" json:"category"`
	Views        int64     `gorm:"not null;default:0" json:"views"`
	LikeCount    int64     `gorm:"not null;default:0" json:"like_count"`
	CommentCount int64     `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`
}

type PortfolioLike struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PortfolioID uint      `gorm:"not null;uniqueIndex:idx_portfolio_like" json:"portfolio_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_portfolio_like" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}
