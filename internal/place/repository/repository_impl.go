package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	placedomain "github.com/roamkit/roamkit/internal/place/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, place *placedomain.Place) error
	Update(ctx context.Context, db *gorm.DB, place *placedomain.Place) error
	Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*placedomain.Place, error)
	FindByName(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, name string) (*placedomain.Place, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]placedomain.Place, error)
	ListByCountry(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, country string) ([]placedomain.Place, error)
	ListCountries(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]string, error)
	Count(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, place *placedomain.Place) error {
	return db.WithContext(ctx).Create(place).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, place *placedomain.Place) error {
	return db.WithContext(ctx).Save(place).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&placedomain.Place{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*placedomain.Place, error) {
	var place placedomain.Place
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&place).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &place, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, name string) (*placedomain.Place, error) {
	var place placedomain.Place
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND (name = ? OR custom_name = ?)", tenantID, name, name).
		First(&place).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &place, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]placedomain.Place, error) {
	var places []placedomain.Place
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("country_name, name").
		Find(&places).Error
	return places, err
}

func (r *repo) ListByCountry(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, country string) ([]placedomain.Place, error) {
	var places []placedomain.Place
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND country_name = ?", tenantID, country).
		Order("name").
		Find(&places).Error
	return places, err
}

func (r *repo) ListCountries(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]string, error) {
	var countries []string
	err := db.WithContext(ctx).
		Model(&placedomain.Place{}).
		Where("tenant_id = ?", tenantID).
		Distinct("country_name").
		Order("country_name").
		Pluck("country_name", &countries).Error
	return countries, err
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&placedomain.Place{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	return count, err
}
