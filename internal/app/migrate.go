package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/devfolio/devfolio-server/internal/domain"
)

// Postgres gets a generated tsvector column plus a GIN index per searchable
// table. Sqlite falls back to LIKE matching at query time, so the DDL below
// only runs on postgres.
var postgresSearchDDL = []string{
	`ALTER TABLE community_posts ADD COLUMN IF NOT EXISTS search_vector tsvector
		GENERATED ALWAYS AS (
			setweight(to_tsvector('simple', coalesce(title, '')), 'A') ||
			setweight(to_tsvector('simple', coalesce(content, '')), 'B')
		) STORED`,
	`CREATE INDEX IF NOT EXISTS idx_community_posts_search ON community_posts USING GIN (search_vector)`,
	`ALTER TABLE portfolios ADD COLUMN IF NOT EXISTS search_vector tsvector
		GENERATED ALWAYS AS (
			setweight(to_tsvector('simple', coalesce(title, '')), 'A') ||
			setweight(to_tsvector('simple', coalesce(description, '')), 'B')
		) STORED`,
	`CREATE INDEX IF NOT EXISTS idx_portfolios_search ON portfolios USING GIN (search_vector)`,
}

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.RefreshToken{},
		&domain.CommunityPost{},
		&domain.CommunityLike{},
		&domain.Portfolio{},
		&domain.PortfolioLike{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		for _, stmt := range postgresSearchDDL {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("search ddl: %w", err)
			}
		}
	}
	return nil
}
