package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/roamkit/roamkit/internal/observability/metrics"
	placedomain "github.com/roamkit/roamkit/internal/place/domain"
	"github.com/roamkit/roamkit/internal/tenantctx"
	usagedomain "github.com/roamkit/roamkit/internal/usage/domain"
	"github.com/roamkit/roamkit/internal/usage/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     repository.Repository
	PlaceSvc placedomain.Service
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     repository.Repository
	placeSvc placedomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) usagedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("usage.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		placeSvc: p.PlaceSvc,
		metrics:  p.Metrics,
	}
}

// RecordWidget runs after the response has been written. The write happens on
// a detached goroutine so a slow insert never holds up the caller.
func (s *Service) RecordWidget(ctx context.Context, event usagedomain.WidgetEvent) {
	go s.recordWidget(context.WithoutCancel(ctx), event)
}

func (s *Service) RecordAPI(ctx context.Context, event usagedomain.APIEvent) {
	go s.recordAPI(context.WithoutCancel(ctx), event)
}

func (s *Service) recordWidget(ctx context.Context, event usagedomain.WidgetEvent) {
	internal := event.Internal && usagedomain.IsRealInternalNavigation(event.Referer)
	class := usagedomain.Classify(event.WidgetType, event.CountryName, event.PlaceName, internal)

	country := event.CountryName
	if country == "" && event.PlaceName != "" {
		resolved, err := s.placeSvc.ResolveCountry(ctx, event.TenantID, event.PlaceName)
		if err == nil {
			country = resolved
		}
	}

	row := &usagedomain.UsageEvent{
		ID:             s.genID.Generate(),
		TenantID:       event.TenantID,
		APIKeyID:       event.APIKeyID,
		WidgetType:     event.WidgetType,
		EventType:      class.EventType,
		IsOpening:      class.IsOpening,
		Domain:         event.Domain,
		Referer:        event.Referer,
		CountryName:    country,
		PlaceName:      event.PlaceName,
		ResponseTimeMs: event.ResponseTimeMs,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.InsertEvent(ctx, s.db, row); err != nil {
		s.metrics.RecordUsageDropped()
		s.log.Warn("dropping widget usage event",
			zap.String("tenant_id", event.TenantID.String()),
			zap.String("event_type", class.EventType),
			zap.Error(err),
		)
		return
	}
	s.metrics.RecordUsageEvent(class.EventType)
}

func (s *Service) recordAPI(ctx context.Context, event usagedomain.APIEvent) {
	var params datatypes.JSONMap
	if len(event.QueryParams) > 0 {
		params = make(datatypes.JSONMap, len(event.QueryParams))
		for k, v := range event.QueryParams {
			params[k] = v
		}
	}

	row := &usagedomain.APIRequestLog{
		ID:          s.genID.Generate(),
		TenantID:    event.TenantID,
		APIKeyID:    event.APIKeyID,
		Endpoint:    event.Endpoint,
		Method:      event.Method,
		Status:      event.Status,
		DurationMs:  event.DurationMs,
		QueryParams: params,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.InsertAPILog(ctx, s.db, row); err != nil {
		s.metrics.RecordUsageDropped()
		s.log.Warn("dropping api request log",
			zap.String("tenant_id", event.TenantID.String()),
			zap.String("endpoint", event.Endpoint),
			zap.Error(err),
		)
	}
}

func (s *Service) Summary(ctx context.Context) (*usagedomain.Summary, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil, usagedomain.ErrInvalidTenant
	}

	counts, err := s.repo.CountByEventType(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	openings, err := s.repo.CountOpenings(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, c := range counts {
		total += c.Count
	}
	return &usagedomain.Summary{
		TotalEvents:   total,
		TotalOpenings: openings,
		ByEventType:   counts,
	}, nil
}
