package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/roamkit/roamkit/internal/subscription/domain"
	"gorm.io/gorm"
)

type Repository interface {
	FindByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*subscriptiondomain.Subscription, error)
	MarkExpired(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	IncrementOpenings(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	CountExtraDomains(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) FindByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) MarkExpired(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active": false,
			"status":    subscriptiondomain.StatusExpired,
		}).Error
}

func (r *repo) IncrementOpenings(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("id = ?", id).
		UpdateColumn("current_openings_used", gorm.Expr("current_openings_used + 1")).Error
}

func (r *repo) CountExtraDomains(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int, error) {
	var total int64
	err := db.WithContext(ctx).
		Table("extra_domain_purchases").
		Where("tenant_id = ?", tenantID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return int(total), err
}
