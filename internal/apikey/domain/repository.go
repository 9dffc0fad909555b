package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	Update(ctx context.Context, db *gorm.DB, key *APIKey) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*APIKey, error)
	FindByHash(ctx context.Context, db *gorm.DB, hash string) (*APIKey, error)
	FindActiveByDomain(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, domain string) (*APIKey, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]APIKey, error)
	CountDistinctActiveDomains(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
}
