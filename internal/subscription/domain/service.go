package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// GetByTenant reads the subscription fresh from the database, applying
	// lazy expiration: a row whose period end has passed is flipped to
	// expired/inactive before it is returned. Token or client claims are
	// never trusted for subscription state.
	GetByTenant(ctx context.Context, tenantID snowflake.ID) (Subscription, error)

	// ConsumeOpening checks the openings quota for the tenant and, when under
	// the limit, increments the counter by exactly one. The read and the
	// increment are not wrapped in a transaction: concurrent requests may
	// transiently overshoot the limit by the number of requests in flight.
	ConsumeOpening(ctx context.Context, tenantID snowflake.ID) (used, limit int64, err error)

	// DomainAllowance returns the tenant's domain allotment: plan base plus
	// purchased extra domains.
	DomainAllowance(ctx context.Context, tenantID snowflake.ID) (int, error)
}

var (
	ErrNotFound             = errors.New("subscription_not_found")
	ErrNotSubscribed        = errors.New("subscription_required")
	ErrOpeningsLimitReached = errors.New("openings_limit_reached")
)
