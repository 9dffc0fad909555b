package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/roamkit/roamkit/internal/usage/domain"
	"gorm.io/gorm"
)

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *usagedomain.UsageEvent) error
	InsertAPILog(ctx context.Context, db *gorm.DB, log *usagedomain.APIRequestLog) error
	CountByEventType(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]usagedomain.EventTypeCount, error)
	CountOpenings(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *usagedomain.UsageEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) InsertAPILog(ctx context.Context, db *gorm.DB, log *usagedomain.APIRequestLog) error {
	return db.WithContext(ctx).Create(log).Error
}

func (r *repo) CountByEventType(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]usagedomain.EventTypeCount, error) {
	var counts []usagedomain.EventTypeCount
	err := db.WithContext(ctx).
		Model(&usagedomain.UsageEvent{}).
		Select("event_type, COUNT(*) AS count").
		Where("tenant_id = ?", tenantID).
		Group("event_type").
		Order("event_type").
		Scan(&counts).Error
	return counts, err
}

func (r *repo) CountOpenings(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&usagedomain.UsageEvent{}).
		Where("tenant_id = ? AND is_opening = ?", tenantID, true).
		Count(&count).Error
	return count, err
}
