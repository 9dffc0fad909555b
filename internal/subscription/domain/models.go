// Package domain contains persistence models for tenant subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusExpired   SubscriptionStatus = "expired"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription captures a tenant's plan entitlements and live usage counters.
// CustomPlacesLimit: -1 means unlimited, 0 means the feature is disabled.
// CurrentOpeningsUsed only grows within a billing period; resets happen in
// the billing webhook handler, outside this service.
type Subscription struct {
	ID                  snowflake.ID       `gorm:"primaryKey"`
	TenantID            snowflake.ID       `gorm:"column:tenant_id;not null;uniqueIndex"`
	PlanType            string             `gorm:"column:plan_type;type:text;not null"`
	IsSubscribed        bool               `gorm:"column:is_subscribed;not null;default:false"`
	IsActive            bool               `gorm:"column:is_active;not null;default:false"`
	Status              SubscriptionStatus `gorm:"type:text;not null"`
	DomainsAllowed      int                `gorm:"column:domains_allowed;not null;default:1"`
	OpeningsLimit       int64              `gorm:"column:openings_limit;not null;default:0"`
	CurrentOpeningsUsed int64              `gorm:"column:current_openings_used;not null;default:0"`
	CustomPlacesLimit   int                `gorm:"column:custom_places_limit;not null;default:0"`
	CurrentPeriodEnd    time.Time          `gorm:"column:current_period_end"`
	CreatedAt           time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// Live reports whether the subscription currently admits requests.
func (s Subscription) Live() bool {
	return s.IsSubscribed && s.IsActive && s.Status == StatusActive
}
