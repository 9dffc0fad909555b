// Package domain contains persistence models for tenant accounts.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant is a customer account, identified by a base domain and one or more
// API keys. TokenVersion is compared against the version embedded in bearer
// tokens; bumping it invalidates every previously issued token.
type Tenant struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Email        string       `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null"`
	BaseDomain   string       `gorm:"column:base_domain;type:text;not null"`
	TokenVersion int          `gorm:"column:token_version;not null;default:1"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// ExtraDomainPurchase raises a tenant's domain allotment beyond the plan base.
type ExtraDomainPurchase struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;index"`
	Quantity  int          `gorm:"not null;default:1"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ExtraDomainPurchase) TableName() string { return "extra_domain_purchases" }

var (
	ErrNotFound = errors.New("tenant_not_found")
)
