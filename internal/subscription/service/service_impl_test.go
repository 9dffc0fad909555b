package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	subscriptiondomain "github.com/roamkit/roamkit/internal/subscription/domain"
	"github.com/roamkit/roamkit/internal/subscription/repository"
	tenantdomain "github.com/roamkit/roamkit/internal/tenant/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&subscriptiondomain.Subscription{},
		&tenantdomain.ExtraDomainPurchase{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repository.Provide(),
	}).(*Service)

	return svc, db, node
}

func seedSubscription(t *testing.T, db *gorm.DB, node *snowflake.Node, mutate func(*subscriptiondomain.Subscription)) *subscriptiondomain.Subscription {
	t.Helper()

	sub := &subscriptiondomain.Subscription{
		ID:                  node.Generate(),
		TenantID:            node.Generate(),
		PlanType:            "pro",
		IsSubscribed:        true,
		IsActive:            true,
		Status:              subscriptiondomain.StatusActive,
		DomainsAllowed:      2,
		OpeningsLimit:       3000,
		CurrentOpeningsUsed: 0,
		CustomPlacesLimit:   10,
		CurrentPeriodEnd:    time.Now().UTC().Add(30 * 24 * time.Hour),
	}
	if mutate != nil {
		mutate(sub)
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func TestGetByTenantMissing(t *testing.T) {
	svc, _, node := newTestService(t)

	_, err := svc.GetByTenant(context.Background(), node.Generate())
	assert.ErrorIs(t, err, subscriptiondomain.ErrNotFound)
}

func TestGetByTenantLazyExpiration(t *testing.T) {
	svc, db, node := newTestService(t)
	sub := seedSubscription(t, db, node, func(s *subscriptiondomain.Subscription) {
		s.CurrentPeriodEnd = time.Now().UTC().Add(-time.Hour)
	})

	got, err := svc.GetByTenant(context.Background(), sub.TenantID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, subscriptiondomain.StatusExpired, got.Status)
	assert.False(t, got.Live())

	// The flip is persisted, not just applied to the returned value.
	var stored subscriptiondomain.Subscription
	require.NoError(t, db.First(&stored, "id = ?", sub.ID).Error)
	assert.False(t, stored.IsActive)
	assert.Equal(t, subscriptiondomain.StatusExpired, stored.Status)
}

func TestConsumeOpeningAtBoundary(t *testing.T) {
	svc, db, node := newTestService(t)
	sub := seedSubscription(t, db, node, func(s *subscriptiondomain.Subscription) {
		s.OpeningsLimit = 3000
		s.CurrentOpeningsUsed = 2999
	})
	ctx := context.Background()

	used, limit, err := svc.ConsumeOpening(ctx, sub.TenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), used)
	assert.Equal(t, int64(3000), limit)

	used, limit, err = svc.ConsumeOpening(ctx, sub.TenantID)
	assert.ErrorIs(t, err, subscriptiondomain.ErrOpeningsLimitReached)
	assert.Equal(t, int64(3000), used)
	assert.Equal(t, int64(3000), limit)

	// The counter does not advance past the limit.
	var stored subscriptiondomain.Subscription
	require.NoError(t, db.First(&stored, "id = ?", sub.ID).Error)
	assert.Equal(t, int64(3000), stored.CurrentOpeningsUsed)
}

func TestConsumeOpeningRequiresLiveSubscription(t *testing.T) {
	svc, db, node := newTestService(t)
	sub := seedSubscription(t, db, node, func(s *subscriptiondomain.Subscription) {
		s.Status = subscriptiondomain.StatusCancelled
		s.IsActive = false
	})

	_, _, err := svc.ConsumeOpening(context.Background(), sub.TenantID)
	assert.ErrorIs(t, err, subscriptiondomain.ErrNotSubscribed)
}

func TestDomainAllowanceIncludesPurchasedExtras(t *testing.T) {
	svc, db, node := newTestService(t)
	sub := seedSubscription(t, db, node, func(s *subscriptiondomain.Subscription) {
		s.DomainsAllowed = 2
	})

	require.NoError(t, db.Create(&tenantdomain.ExtraDomainPurchase{
		ID:       node.Generate(),
		TenantID: sub.TenantID,
		Quantity: 3,
	}).Error)

	allowed, err := svc.DomainAllowance(context.Background(), sub.TenantID)
	require.NoError(t, err)
	assert.Equal(t, 5, allowed)
}
