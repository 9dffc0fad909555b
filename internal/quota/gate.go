// Package quota implements the ordered admission chain run in front of
// dashboard and widget handlers. Each stage either passes, rejects with a
// structured result, or fails with an infrastructure error.
package quota

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/roamkit/roamkit/internal/apikey/domain"
	authdomain "github.com/roamkit/roamkit/internal/auth/domain"
	"github.com/roamkit/roamkit/internal/observability/metrics"
	placedomain "github.com/roamkit/roamkit/internal/place/domain"
	subscriptiondomain "github.com/roamkit/roamkit/internal/subscription/domain"
	tenantdomain "github.com/roamkit/roamkit/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeTokenInvalidated     = "TOKEN_INVALIDATED"
	CodeSubscriptionRequired = "SUBSCRIPTION_REQUIRED"
	CodeDomainLimitReached   = "DOMAIN_LIMIT_REACHED"
	CodePlacesNotAvailable   = "CUSTOM_PLACES_NOT_AVAILABLE"
	CodePlacesLimitReached   = "CUSTOM_PLACES_LIMIT_REACHED"
	CodeOpeningsLimitReached = "OPENINGS_LIMIT_REACHED"
)

// Rejection is a terminal admission verdict. Limit stages carry the current
// and limit values for client display.
type Rejection struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Current int64  `json:"current,omitempty"`
	Limit   int64  `json:"limit,omitempty"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Stage is one link in the admission chain. A nil, nil return passes the
// request to the next stage.
type Stage func(ctx context.Context) (*Rejection, error)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	AuthSvc    authdomain.Service
	SubSvc     subscriptiondomain.Service
	APIKeyRepo apikeydomain.Repository
	PlaceSvc   placedomain.Service
	Metrics    *metrics.Metrics `optional:"true"`
}

type Gate struct {
	db         *gorm.DB
	log        *zap.Logger
	authSvc    authdomain.Service
	subSvc     subscriptiondomain.Service
	apikeyRepo apikeydomain.Repository
	placeSvc   placedomain.Service
	metrics    *metrics.Metrics
}

func New(p Params) *Gate {
	return &Gate{
		db:         p.DB,
		log:        p.Log.Named("quota.gate"),
		authSvc:    p.AuthSvc,
		subSvc:     p.SubSvc,
		apikeyRepo: p.APIKeyRepo,
		placeSvc:   p.PlaceSvc,
		metrics:    p.Metrics,
	}
}

// Run executes stages in order and stops at the first rejection or error.
func (g *Gate) Run(ctx context.Context, stages ...Stage) (*Rejection, error) {
	for _, stage := range stages {
		rejection, err := stage(ctx)
		if err != nil {
			return nil, err
		}
		if rejection != nil {
			g.metrics.RecordAdmissionDenied(rejection.Code)
			return rejection, nil
		}
	}
	return nil, nil
}

// VerifyToken checks signature and expiry, then compares the embedded token
// version against the stored one. A mismatch means the tenant has since
// logged out everywhere.
func (g *Gate) VerifyToken(ctx context.Context, rawToken string) (*tenantdomain.Tenant, *Rejection, error) {
	tenant, _, err := g.authSvc.Verify(ctx, rawToken)
	switch {
	case err == nil:
		return tenant, nil, nil
	case errors.Is(err, authdomain.ErrTokenExpired):
		return nil, &Rejection{
			Status:  http.StatusUnauthorized,
			Code:    CodeTokenExpired,
			Message: "session has expired, please log in again",
		}, nil
	case errors.Is(err, authdomain.ErrTokenInvalidated):
		return nil, &Rejection{
			Status:  http.StatusUnauthorized,
			Code:    CodeTokenInvalidated,
			Message: "session has been revoked, please log in again",
		}, nil
	case errors.Is(err, authdomain.ErrTokenInvalid):
		return nil, &Rejection{
			Status:  http.StatusUnauthorized,
			Code:    CodeInvalidToken,
			Message: "invalid authentication token",
		}, nil
	default:
		return nil, nil, err
	}
}

// RequireLiveSubscription reads subscription state fresh from the database.
func (g *Gate) RequireLiveSubscription(tenantID snowflake.ID) Stage {
	return func(ctx context.Context) (*Rejection, error) {
		sub, err := g.subSvc.GetByTenant(ctx, tenantID)
		if err != nil {
			if errors.Is(err, subscriptiondomain.ErrNotFound) {
				return subscriptionRequired(), nil
			}
			return nil, err
		}
		if !sub.Live() {
			return subscriptionRequired(), nil
		}
		return nil, nil
	}
}

// CheckDomainLimit gates registration of a new domain. Regenerating a key
// for a domain that already has an active key is always permitted.
func (g *Gate) CheckDomainLimit(tenantID snowflake.ID, domain string) Stage {
	return func(ctx context.Context) (*Rejection, error) {
		existing, err := g.apikeyRepo.FindActiveByDomain(ctx, g.db, tenantID, domain)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, nil
		}

		current, err := g.apikeyRepo.CountDistinctActiveDomains(ctx, g.db, tenantID)
		if err != nil {
			return nil, err
		}
		allowance, err := g.subSvc.DomainAllowance(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if current >= int64(allowance) {
			return &Rejection{
				Status:  http.StatusForbidden,
				Code:    CodeDomainLimitReached,
				Message: "domain limit reached for the current plan",
				Current: current,
				Limit:   int64(allowance),
			}, nil
		}
		return nil, nil
	}
}

// CheckCustomPlaceLimit gates creation of custom places. Updates to existing
// places bypass the cap.
func (g *Gate) CheckCustomPlaceLimit(tenantID snowflake.ID, creating bool) Stage {
	return func(ctx context.Context) (*Rejection, error) {
		sub, err := g.subSvc.GetByTenant(ctx, tenantID)
		if err != nil {
			if errors.Is(err, subscriptiondomain.ErrNotFound) {
				return subscriptionRequired(), nil
			}
			return nil, err
		}

		switch {
		case sub.CustomPlacesLimit < 0:
			return nil, nil
		case sub.CustomPlacesLimit == 0:
			return &Rejection{
				Status:  http.StatusForbidden,
				Code:    CodePlacesNotAvailable,
				Message: "custom places are not available on the current plan",
			}, nil
		}

		if !creating {
			return nil, nil
		}

		current, err := g.placeSvc.Count(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if current >= int64(sub.CustomPlacesLimit) {
			return &Rejection{
				Status:  http.StatusForbidden,
				Code:    CodePlacesLimitReached,
				Message: "custom place limit reached for the current plan",
				Current: current,
				Limit:   int64(sub.CustomPlacesLimit),
			}, nil
		}
		return nil, nil
	}
}

// ConsumeOpening enforces the monthly openings quota for widget traffic and,
// when allowed, counts the request against it. The counter moves before the
// event is classified, so internal navigations consume quota too.
func (g *Gate) ConsumeOpening(key *apikeydomain.APIKey) Stage {
	return func(ctx context.Context) (*Rejection, error) {
		used, limit, err := g.subSvc.ConsumeOpening(ctx, key.TenantID)
		switch {
		case err == nil:
			g.metrics.RecordOpeningConsumed()
			return nil, nil
		case errors.Is(err, subscriptiondomain.ErrNotSubscribed),
			errors.Is(err, subscriptiondomain.ErrNotFound):
			return subscriptionRequired(), nil
		case errors.Is(err, subscriptiondomain.ErrOpeningsLimitReached):
			return &Rejection{
				Status:  http.StatusTooManyRequests,
				Code:    CodeOpeningsLimitReached,
				Message: "monthly openings limit reached",
				Current: used,
				Limit:   limit,
			}, nil
		default:
			return nil, err
		}
	}
}

func subscriptionRequired() *Rejection {
	return &Rejection{
		Status:  http.StatusForbidden,
		Code:    CodeSubscriptionRequired,
		Message: "an active subscription is required",
	}
}
