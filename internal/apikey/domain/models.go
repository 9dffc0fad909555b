// Package domain contains persistence models for tenant API keys.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

// APIKey stores hashed widget credentials bound to a tenant domain.
// AllowedOrigins holds normalized scheme+host patterns, optionally with a
// single wildcard label.
type APIKey struct {
	ID             snowflake.ID   `gorm:"primaryKey"`
	TenantID       snowflake.ID   `gorm:"column:tenant_id;not null;index"`
	KeyHash        string         `gorm:"column:key_hash;type:text;not null;uniqueIndex"`
	Domain         string         `gorm:"type:text;not null"`
	AllowedOrigins pq.StringArray `gorm:"column:allowed_origins;type:text[];not null"`
	IsActive       bool           `gorm:"column:is_active;not null"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	RevokedAt      *time.Time     `gorm:"column:revoked_at"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }
