package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/roamkit/roamkit/internal/subscription/domain"
	"github.com/roamkit/roamkit/internal/subscription/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo repository.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo repository.Repository
}

func New(p Params) subscriptiondomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("subscription.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetByTenant(ctx context.Context, tenantID snowflake.ID) (subscriptiondomain.Subscription, error) {
	sub, err := s.repo.FindByTenant(ctx, s.db, tenantID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if sub == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrNotFound
	}

	// Lazy expiration: expiry is applied on first access after the deadline,
	// not by a background job.
	if s.expireIfDue(ctx, sub) {
		s.log.Info("subscription lazily expired",
			zap.String("tenant_id", tenantID.String()),
			zap.Time("period_end", sub.CurrentPeriodEnd),
		)
	}

	return *sub, nil
}

func (s *Service) ConsumeOpening(ctx context.Context, tenantID snowflake.ID) (int64, int64, error) {
	sub, err := s.GetByTenant(ctx, tenantID)
	if err != nil {
		return 0, 0, err
	}
	if !sub.Live() {
		return 0, 0, subscriptiondomain.ErrNotSubscribed
	}

	if sub.CurrentOpeningsUsed >= sub.OpeningsLimit {
		return sub.CurrentOpeningsUsed, sub.OpeningsLimit, subscriptiondomain.ErrOpeningsLimitReached
	}

	// Check and increment are deliberately separate statements; see the
	// Service interface doc for the accepted overshoot under concurrency.
	if err := s.repo.IncrementOpenings(ctx, s.db, sub.ID); err != nil {
		return sub.CurrentOpeningsUsed, sub.OpeningsLimit, err
	}
	return sub.CurrentOpeningsUsed + 1, sub.OpeningsLimit, nil
}

func (s *Service) DomainAllowance(ctx context.Context, tenantID snowflake.ID) (int, error) {
	sub, err := s.GetByTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	extra, err := s.repo.CountExtraDomains(ctx, s.db, tenantID)
	if err != nil {
		return 0, err
	}
	return sub.DomainsAllowed + extra, nil
}

func (s *Service) expireIfDue(ctx context.Context, sub *subscriptiondomain.Subscription) bool {
	if !sub.IsActive || sub.CurrentPeriodEnd.IsZero() {
		return false
	}
	if !sub.CurrentPeriodEnd.Before(time.Now().UTC()) {
		return false
	}

	if err := s.repo.MarkExpired(ctx, s.db, sub.ID); err != nil {
		// Keep serving the stale row; the next read retries the flip.
		s.log.Warn("subscription expiry write failed", zap.Error(err))
		return false
	}
	sub.IsActive = false
	sub.Status = subscriptiondomain.StatusExpired
	return true
}
