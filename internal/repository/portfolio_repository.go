package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/devfolio/devfolio-server/internal/domain"
	"github.com/devfolio/devfolio-server/internal/observability"
)

var ErrPortfolioNotFound = errors.New("portfolio not found")

type PortfolioRow struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"-"`
	Category       string    `json:"category"`
	Views          int64     `json:"views"`
	LikeCount      int64     `json:"like_count"`
	CommentCount   int64     `json:"comment_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	WriterNickname string    `json:"writer_nickname"`
	Rank           *float64  `json:"rank,omitempty"`
}

type PortfolioRepository interface {
	Create(p *domain.Portfolio) error
	FindByID(id uint) (*domain.Portfolio, error)
	IncrementViews(id uint) error
	Search(req SearchRequest) (PageResult[PortfolioRow], error)
	ToggleLike(portfolioID, userID uint) (LikeResult, error)
	LikedPortfolioIDs(userID uint, portfolioIDs []uint) (map[uint]bool, error)
}

type GormPortfolioRepository struct{ db *gorm.DB }

func NewPortfolioRepository(db *gorm.DB) PortfolioRepository {
	return &GormPortfolioRepository{db: db}
}

func (r *GormPortfolioRepository) Create(p *domain.Portfolio) error {
	err := r.db.Create(p).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "portfolio", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "portfolio", "create", "success")
	return nil
}

func (r *GormPortfolioRepository) FindByID(id uint) (*domain.Portfolio, error) {
	var p domain.Portfolio
	err := r.db.First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "portfolio", "find_by_id", "not_found")
			return nil, ErrPortfolioNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "portfolio", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "portfolio", "find_by_id", "success")
	return &p, nil
}

func (r *GormPortfolioRepository) IncrementViews(id uint) error {
	err := r.db.Model(&domain.Portfolio{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "portfolio", "increment_views", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "portfolio", "increment_views", "success")
	return nil
}

// Search mirrors the community builder; portfolio categories are writer
// supplied, so matching is case-insensitive rather than whitelisted.
func (r *GormPortfolioRepository) Search(req SearchRequest) (PageResult[PortfolioRow], error) {
	page := normalizePageRequest(req.PageRequest)
	result := PageResult[PortfolioRow]{
		Items:    []PortfolioRow{},
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	dialect := r.db.Dialector.Name()

	base := r.db.Model(&domain.Portfolio{}).
		Joins("JOIN users ON users.id = portfolios.writer_id")
	if req.Category != "" {
		base = base.Where("LOWER(portfolios.category) = LOWER(?)", req.Category)
	}

	selectCols := "portfolios.id, portfolios.title, portfolios.description, " +
		"portfolios.category, portfolios.views, portfolios.like_count, " +
		"portfolios.comment_count, portfolios.created_at, portfolios.updated_at, " +
		"users.nickname AS writer_nickname"
	var rankArgs []any
	withRank := req.Keyword != ""
	if withRank {
		pred, predArgs, rank, args := keywordClauses(dialect, "portfolios", []string{"title", "description"}, req.Keyword)
		base = base.Where(pred, predArgs...)
		selectCols += ", " + rank + " AS rank"
		rankArgs = args
	}

	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "portfolio", "search", "error")
		return PageResult[PortfolioRow]{}, err
	}

	listQuery := base.Session(&gorm.Session{}).Select(selectCols, rankArgs...)
	for _, ordering := range searchOrderings("portfolios", withRank, req.Sort, req.Direction) {
		listQuery = listQuery.Order(ordering)
	}
	err := listQuery.
		Offset(page.Page * page.PageSize).
		Limit(page.PageSize).
		Scan(&result.Items).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "portfolio", "search", "error")
		return PageResult[PortfolioRow]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, page.PageSize)
	observability.RecordRepositoryOperation(context.Background(), "portfolio", "search", "success")
	return result, nil
}

// ToggleLike mirrors the community toggle: like row and denormalized
// like_count change in one transaction.
func (r *GormPortfolioRepository) ToggleLike(portfolioID, userID uint) (LikeResult, error) {
	var result LikeResult
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("portfolio_id = ? AND user_id = ?", portfolioID, userID).
			Delete(&domain.PortfolioLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := tx.Model(&domain.Portfolio{}).
				Where("id = ? AND like_count > 0", portfolioID).
				UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Create(&domain.PortfolioLike{PortfolioID: portfolioID, UserID: userID}).Error; err != nil {
				return err
			}
			if err := tx.Model(&domain.Portfolio{}).
				Where("id = ?", portfolioID).
				UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
				return err
			}
			result.Liked = true
		}
		var counts []int64
		if err := tx.Model(&domain.Portfolio{}).
			Where("id = ?", portfolioID).
			Pluck("like_count", &counts).Error; err != nil {
			return err
		}
		if len(counts) > 0 {
			result.LikeCount = counts[0]
		}
		return nil
	})
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "portfolio_like", "toggle", "error")
		return LikeResult{}, err
	}
	observability.RecordRepositoryOperation(context.Background(), "portfolio_like", "toggle", "success")
	return result, nil
}

func (r *GormPortfolioRepository) LikedPortfolioIDs(userID uint, portfolioIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(portfolioIDs))
	if len(portfolioIDs) == 0 {
		return liked, nil
	}
	var ids []uint
	err := r.db.Model(&domain.PortfolioLike{}).
		Where("user_id = ? AND portfolio_id IN ?", userID, portfolioIDs).
		Pluck("portfolio_id", &ids).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "portfolio_like", "liked_portfolio_ids", "error")
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	observability.RecordRepositoryOperation(context.Background(), "portfolio_like", "liked_portfolio_ids", "success")
	return liked, nil
}
