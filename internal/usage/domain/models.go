package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var ErrInvalidTenant = errors.New("invalid_tenant")

const (
	EventTypeOpen            = "open"
	EventTypeNavigateIndex   = "navigate_index"
	EventTypeNavigateCountry = "navigate_country"
	EventTypeNavigatePlace   = "navigate_place"
	EventTypeNavigate        = "navigate"
)

// UsageEvent is append-only; rows are never updated or deleted here.
type UsageEvent struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	TenantID       snowflake.ID `gorm:"column:tenant_id;not null;index"`
	APIKeyID       snowflake.ID `gorm:"column:api_key_id;not null;index"`
	WidgetType     string       `gorm:"column:widget_type;type:text"`
	EventType      string       `gorm:"column:event_type;type:text;not null"`
	IsOpening      bool         `gorm:"column:is_opening;not null;default:false"`
	Domain         string       `gorm:"type:text"`
	Referer        string       `gorm:"type:text"`
	CountryName    string       `gorm:"column:country_name;type:text"`
	PlaceName      string       `gorm:"column:place_name;type:text"`
	ResponseTimeMs int64        `gorm:"column:response_time_ms;not null;default:0"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

func (UsageEvent) TableName() string {
	return "usage_events"
}

type APIRequestLog struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	TenantID    snowflake.ID      `gorm:"column:tenant_id;not null;index"`
	APIKeyID    snowflake.ID      `gorm:"column:api_key_id;not null"`
	Endpoint    string            `gorm:"type:text;not null"`
	Method      string            `gorm:"type:text;not null"`
	Status      int               `gorm:"not null"`
	DurationMs  int64             `gorm:"column:duration_ms;not null;default:0"`
	QueryParams datatypes.JSONMap `gorm:"column:query_params"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

func (APIRequestLog) TableName() string {
	return "api_request_logs"
}

// WidgetEvent carries the signals captured at request time. Identity fields
// are filled from the already validated API key.
type WidgetEvent struct {
	TenantID       snowflake.ID
	APIKeyID       snowflake.ID
	Domain         string
	WidgetType     string
	CountryName    string
	PlaceName      string
	Referer        string
	Internal       bool
	ResponseTimeMs int64
}

type APIEvent struct {
	TenantID    snowflake.ID
	APIKeyID    snowflake.ID
	Endpoint    string
	Method      string
	Status      int
	DurationMs  int64
	QueryParams map[string]string
}

type EventTypeCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

type Summary struct {
	TotalEvents   int64            `json:"total_events"`
	TotalOpenings int64            `json:"total_openings"`
	ByEventType   []EventTypeCount `json:"by_event_type"`
}

type Service interface {
	// RecordWidget and RecordAPI persist asynchronously. Failures are logged
	// and absorbed; callers never observe them.
	RecordWidget(ctx context.Context, event WidgetEvent)
	RecordAPI(ctx context.Context, event APIEvent)

	Summary(ctx context.Context) (*Summary, error)
}
