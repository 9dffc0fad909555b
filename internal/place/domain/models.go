// Package domain contains persistence models for widget places.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Place is a tenant-defined destination shown in the widget. Custom places
// count against the plan's custom_places_limit; creation is gated upstream.
type Place struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	TenantID    snowflake.ID `gorm:"column:tenant_id;not null;index"`
	Name        string       `gorm:"type:text;not null"`
	CustomName  string       `gorm:"column:custom_name;type:text"`
	CountryName string       `gorm:"column:country_name;type:text;not null"`
	ImageURL    string       `gorm:"column:image_url;type:text"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Place) TableName() string { return "places" }

type CreateRequest struct {
	Name        string `json:"name"`
	CustomName  string `json:"custom_name"`
	CountryName string `json:"country_name"`
	ImageURL    string `json:"image_url"`
}

type UpdateRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CustomName  string `json:"custom_name"`
	CountryName string `json:"country_name"`
	ImageURL    string `json:"image_url"`
}

type Response struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CustomName  string    `json:"custom_name,omitempty"`
	CountryName string    `json:"country_name"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error

	// Count returns the number of custom places a tenant has; consulted by
	// the custom-place quota stage on every create.
	Count(ctx context.Context, tenantID snowflake.ID) (int64, error)

	// ListCountries and ListByCountry back the widget's navigation pages.
	ListCountries(ctx context.Context, tenantID snowflake.ID) ([]string, error)
	ListByCountry(ctx context.Context, tenantID snowflake.ID, country string) ([]Response, error)

	// ResolveCountry returns the country of a tenant place by name, used by
	// the usage recorder when an event arrives without one.
	ResolveCountry(ctx context.Context, tenantID snowflake.ID, placeName string) (string, error)
}

var (
	ErrInvalidTenant  = errors.New("invalid_tenant")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidCountry = errors.New("invalid_country")
	ErrInvalidPlaceID = errors.New("invalid_place_id")
	ErrNotFound       = errors.New("place_not_found")
)
