package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/devfolio/devfolio-server/internal/domain"
	"github.com/devfolio/devfolio-server/internal/observability"
)

var ErrPostNotFound = errors.New("post not found")

// LikeResult reports the state after a like toggle: whether the caller now
// likes the item and the item's updated like count.
type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

// CommunityPostRow is the search projection: post fields plus the writer's
// display name and, when a keyword was given, the relevance score.
type CommunityPostRow struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"-"`
	Category       string    `json:"category"`
	Views          int64     `json:"views"`
	LikeCount      int64     `json:"like_count"`
	CommentCount   int64     `json:"comment_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	WriterNickname string    `json:"writer_nickname"`
	Rank           *float64  `json:"rank,omitempty"`
}

type CommunityRepository interface {
	Create(post *domain.CommunityPost) error
	FindByID(id uint) (*domain.CommunityPost, error)
	IncrementViews(id uint) error
	Search(req SearchRequest) (PageResult[CommunityPostRow], error)
	ToggleLike(postID, userID uint) (LikeResult, error)
	LikedPostIDs(userID uint, postIDs []uint) (map[uint]bool, error)
}

type GormCommunityRepository struct{ db *gorm.DB }

func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &GormCommunityRepository{db: db}
}

func (r *GormCommunityRepository) Create(post *domain.CommunityPost) error {
	err := r.db.Create(post).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "community_post", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "community_post", "create", "success")
	return nil
}

func (r *GormCommunityRepository) FindByID(id uint) (*domain.CommunityPost, error) {
	var post domain.CommunityPost
	err := r.db.First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "community_post", "find_by_id", "not_found")
			return nil, ErrPostNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "community_post", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "community_post", "find_by_id", "success")
	return &post, nil
}

func (r *GormCommunityRepository) IncrementViews(id uint) error {
	err := r.db.Model(&domain.CommunityPost{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "community_post", "increment_views", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "community_post", "increment_views", "success")
	return nil
}

// Search translates the validated request into one ranked, paginated query.
// Ordering is relevance (keyword only), then the requested column, then id
// descending; offset and limit apply after ordering.
func (r *GormCommunityRepository) Search(req SearchRequest) (PageResult[CommunityPostRow], error) {
	page := normalizePageRequest(req.PageRequest)
	result := PageResult[CommunityPostRow]{
		Items:    []CommunityPostRow{},
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	dialect := r.db.Dialector.Name()

	base := r.db.Model(&domain.CommunityPost{}).
		Joins("JOIN users ON users.id = community_posts.writer_id")
	if req.Category != "" {
		base = base.Where("community_posts.category = ?", req.Category)
	}

	selectCols := "community_posts.id, community_posts.title, community_posts.content, " +
		"community_posts.category, community_posts.views, community_posts.like_count, " +
		"community_posts.comment_count, community_posts.created_at, community_posts.updated_at, " +
		"users.nickname AS writer_nickname"
	var rankArgs []any
	withRank := req.Keyword != ""
	if withRank {
		pred, predArgs, rank, args := keywordClauses(dialect, "community_posts", []string{"title", "content"}, req.Keyword)
		base = base.Where(pred, predArgs...)
		selectCols += ", " + rank + " AS rank"
		rankArgs = args
	}

	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "community_post", "search", "error")
		return PageResult[CommunityPostRow]{}, err
	}

	listQuery := base.Session(&gorm.Session{}).Select(selectCols, rankArgs...)
	for _, ordering := range searchOrderings("community_posts", withRank, req.Sort, req.Direction) {
		listQuery = listQuery.Order(ordering)
	}
	err := listQuery.
		Offset(page.Page * page.PageSize).
		Limit(page.PageSize).
		Scan(&result.Items).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "community_post", "search", "error")
		return PageResult[CommunityPostRow]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, page.PageSize)
	observability.RecordRepositoryOperation(context.Background(), "community_post", "search", "success")
	return result, nil
}

// ToggleLike likes the post for the user, or unlikes it if a like already
// exists. The like row and the post's denormalized like_count move together
// in one transaction so the counter the likeCount sort orders by never
// drifts from the like table.
func (r *GormCommunityRepository) ToggleLike(postID, userID uint) (LikeResult, error) {
	var result LikeResult
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).
			Delete(&domain.CommunityLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := tx.Model(&domain.CommunityPost{}).
				Where("id = ? AND like_count > 0", postID).
				UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Create(&domain.CommunityLike{PostID: postID, UserID: userID}).Error; err != nil {
				return err
			}
			if err := tx.Model(&domain.CommunityPost{}).
				Where("id = ?", postID).
				UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
				return err
			}
			result.Liked = true
		}
		var counts []int64
		if err := tx.Model(&domain.CommunityPost{}).
			Where("id = ?", postID).
			Pluck("like_count", &counts).Error; err != nil {
			return err
		}
		if len(counts) > 0 {
			result.LikeCount = counts[0]
		}
		return nil
	})
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "community_like", "toggle", "error")
		return LikeResult{}, err
	}
	observability.RecordRepositoryOperation(context.Background(), "community_like", "toggle", "success")
	return result, nil
}

// LikedPostIDs reports which of the given posts the user has liked; used to
// decorate search pages for an authenticated caller.
func (r *GormCommunityRepository) LikedPostIDs(userID uint, postIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}
	var ids []uint
	err := r.db.Model(&domain.CommunityLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "community_like", "liked_post_ids", "error")
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	observability.RecordRepositoryOperation(context.Background(), "community_like", "liked_post_ids", "success")
	return liked, nil
}
