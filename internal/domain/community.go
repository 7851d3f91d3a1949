package domain

import "time"

// Community post categories. The search boundary validates against this
// whitelist; unknown categories never reach the query layer.
var CommunityCategories = []string{"general", "qna", "tech", "showcase"}

func IsCommunityCategory(name string) bool {
	for _, c := range CommunityCategories {
		if c == name {
			return true
		}
	}
	return false
}

// CommunityPost rows also carry a search_vector tsvector column on postgres,
// maintained as a generated column by the migration; it is deliberately not
// mapped here so the sqlite test schema stays valid.
type CommunityPost struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	WriterID     uint      `gorm:"index;not null" json:"writer_id"`
	Writer       User      `gorm:"foreignKey:WriterID" json:"-"`
	Title        string    `gorm:"size:200;not null" json:"title"`
	Content      string    `gorm:"type:text" json:"content"`
	Category     string    `gorm:"size:32;index;not null" json:"category"`
	Views        int64     `gorm:"not null;default:0" json:"views"`
	LikeCount    int64     `gorm:"not null;default:0" json:"like_count"`
	CommentCount int64     `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`
}

type CommunityLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_community_like" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_community_like" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
