package quota

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	apikeydomain "github.com/roamkit/roamkit/internal/apikey/domain"
	apikeyrepo "github.com/roamkit/roamkit/internal/apikey/repository"
	authdomain "github.com/roamkit/roamkit/internal/auth/domain"
	authservice "github.com/roamkit/roamkit/internal/auth/service"
	"github.com/roamkit/roamkit/internal/config"
	placedomain "github.com/roamkit/roamkit/internal/place/domain"
	placerepo "github.com/roamkit/roamkit/internal/place/repository"
	placeservice "github.com/roamkit/roamkit/internal/place/service"
	subscriptiondomain "github.com/roamkit/roamkit/internal/subscription/domain"
	subscriptionrepo "github.com/roamkit/roamkit/internal/subscription/repository"
	subscriptionservice "github.com/roamkit/roamkit/internal/subscription/service"
	tenantdomain "github.com/roamkit/roamkit/internal/tenant/domain"
	tenantrepo "github.com/roamkit/roamkit/internal/tenant/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type gateFixture struct {
	gate    *Gate
	db      *gorm.DB
	authSvc authdomain.Service
	genID   *snowflake.Node
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&tenantdomain.Tenant{},
		&tenantdomain.ExtraDomainPurchase{},
		&apikeydomain.APIKey{},
		&subscriptiondomain.Subscription{},
		&placedomain.Place{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	authSvc := authservice.New(authservice.Params{
		DB:   db,
		Log:  log,
		Cfg:  config.Config{AuthJWTSecret: "test-secret", AuthTokenTTL: 1},
		Repo: tenantrepo.Provide(),
	})
	subSvc := subscriptionservice.New(subscriptionservice.Params{
		DB:   db,
		Log:  log,
		Repo: subscriptionrepo.Provide(),
	})
	placeSvc := placeservice.New(placeservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  placerepo.Provide(),
	})

	gate := New(Params{
		DB:         db,
		Log:        log,
		AuthSvc:    authSvc,
		SubSvc:     subSvc,
		APIKeyRepo: apikeyrepo.Provide(),
		PlaceSvc:   placeSvc,
	})

	return &gateFixture{gate: gate, db: db, authSvc: authSvc, genID: node}
}

func (f *gateFixture) seedTenant(t *testing.T) *tenantdomain.Tenant {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	tenant := &tenantdomain.Tenant{
		ID:           f.genID.Generate(),
		Email:        "owner@acme.com",
		PasswordHash: string(hash),
		BaseDomain:   "acme.com",
		TokenVersion: 1,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(tenant).Error)
	return tenant
}

func (f *gateFixture) seedSubscription(t *testing.T, tenantID snowflake.ID, mutate func(*subscriptiondomain.Subscription)) *subscriptiondomain.Subscription {
	t.Helper()

	sub := &subscriptiondomain.Subscription{
		ID:                f.genID.Generate(),
		TenantID:          tenantID,
		PlanType:          "pro",
		IsSubscribed:      true,
		IsActive:          true,
		Status:            subscriptiondomain.StatusActive,
		DomainsAllowed:    2,
		OpeningsLimit:     3000,
		CustomPlacesLimit: 10,
		CurrentPeriodEnd:  time.Now().Add(30 * 24 * time.Hour),
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	if mutate != nil {
		mutate(sub)
	}
	require.NoError(t, f.db.Create(sub).Error)
	return sub
}

func (f *gateFixture) seedKey(t *testing.T, tenantID snowflake.ID, domain string, active bool) *apikeydomain.APIKey {
	t.Helper()

	key := &apikeydomain.APIKey{
		ID:             f.genID.Generate(),
		TenantID:       tenantID,
		KeyHash:        apikeydomain.HashAPIKey("rk_live_" + domain),
		Domain:         domain,
		AllowedOrigins: []string{"https://" + domain},
		IsActive:       active,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(key).Error)
	return key
}

func (f *gateFixture) login(t *testing.T) string {
	t.Helper()

	resp, err := f.authSvc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "owner@acme.com",
		Password: "hunter2",
	})
	require.NoError(t, err)
	return resp.Token
}

func TestVerifyTokenPasses(t *testing.T) {
	f := newGateFixture(t)
	tenant := f.seedTenant(t)
	token := f.login(t)

	verified, rejection, err := f.gate.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Nil(t, rejection)
	assert.Equal(t, tenant.ID, verified.ID)
}

func TestVerifyTokenRejectsRevokedVersion(t *testing.T) {
	f := newGateFixture(t)
	tenant := f.seedTenant(t)
	token := f.login(t)

	// Logout-everywhere bumps the stored version; the old token embeds v1.
	require.NoError(t, f.db.Model(&tenantdomain.Tenant{}).
		Where("id = ?", tenant.ID).
		UpdateColumn("token_version", 3).Error)

	_, rejection, err := f.gate.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, http.StatusUnauthorized, rejection.Status)
	assert.Equal(t, CodeTokenInvalidated, rejection.Code)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	f := newGateFixture(t)

	_, rejection, err := f.gate.VerifyToken(context.Background(), "not-a-token")
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, CodeInvalidToken, rejection.Code)
}

func TestRequireLiveSubscription(t *testing.T) {
	f := newGateFixture(t)
	tenant := f.seedTenant(t)
	f.seedSubscription(t, tenant.ID, nil)

	rejection, err := f.gate.Run(context.Background(), f.gate.RequireLiveSubscription(tenant.ID))
	require.NoError(t, err)
	assert.Nil(t, rejection)
}

func TestRequireLiveSubscriptionRejectsExpired(t *testing.T) {
	f := newGateFixture(t)
	tenant := f.seedTenant(t)
	f.seedSubscription(t, tenant.ID, func(sub *subscriptiondomain.Subscription) {
		sub.CurrentPeriodEnd = time.Now().Add(-time.Hour)
	})

	rejection, err := f.gate.Run(context.Background(), f.gate.RequireLiveSubscription(tenant.ID))
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, CodeSubscriptionRequired, rejection.Code)
	assert.Equal(t, http.StatusForbidden, rejection.Status)
}

func TestRequireLiveSubscriptionRejectsMissing(t *testing.T) {
	f := newGateFixture(t)
	tenant := f.seedTenant(t)

	rejection, err := f.gate.Run(context.Background(), f.gate.RequireLiveSubscription(tenant.ID))
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, CodeSubscriptionRequired, rejection.Code)
}

func TestCheckDomainLimit(t *testing.T) {
	f := newGateFixture(t)
	tenant := f.seedTenant(t)
	f.seedSubscription(t, tenant.ID, nil) // two domains allowed
	f.seedKey(t, tenant.ID, "acme.com", true)
	f.seedKey(t, tenant.ID, "acme.org", true)

	// New domain at the limit is rejected with counts.
	rejection, err := f.gate.Run(context.Background(), f.gate.CheckDomainLimit(tenant.ID, "acme.dev"))
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, CodeDomainLimitReached, rejection.Code)
	assert.Equal(t, int64(2), rejection.Current)
	assert.Equal(t, int64(2), rejection.Limit)

	// Regenerating an existing domain's key is always allowed.
	rejection, err = f.gate.Run(context.Background(), f.gate.CheckDomainLimit(tenant.ID, "acme.com"))
	require.NoError(t, err)
	assert.Nil(t, rejection)
}

func TestCheckDomainLimitCountsOnlyActiveKeys(t *testing.T) {
	f := newGateFixture(t)
	tenant := f.seedTenant(t)
	f.seedSubscription(t, tenant.ID, nil)
	f.seedKey(t, tenant.ID, "acme.com", true)
	f.seedKey(t, tenant.ID, "acme.org", false)

	rejection, err := f.gate.Run(context.Background(), f.gate.CheckDomainLimit(tenant.ID, "acme.dev"))
	require.NoError(t, err)
	assert.Nil(t, rejection)
}

func TestCheckDomainLimitIncludesPurchasedDomains(t *testing.T) {
	f := newGateFixture(t)
	tenant := f.seedTenant(t)
	f.seedSubscription(t, tenant.ID, nil)
	require.NoError(t, f.db.Create(&tenantdomain.ExtraDomainPurchase{
		ID:       f.genID.Generate(),
		TenantID: tenant.ID,
		Quantity: 1,
	}).Error)
	f.seedKey(t, tenant.ID, "acme.com", true)
	f.seedKey(t, tenant.ID, "acme.org", true)

	rejection, err := f.gate.Run(context.Background(), f.gate.CheckDomainLimit(tenant.ID, "acme.dev"))
	require.NoError(t, err)
	assert.Nil(t, rejection)
}

func TestCheckCustomPlaceLimit(t *testing.T) {
	f := newGateFixture(t)
	tenant := f.seedTenant(t)
	f.seedSubscription(t, tenant.ID, func(sub *subscriptiondomain.Subscription) {
		sub.CustomPlacesLimit = 1
	})
	require.NoError(t, f.db.Create(&placedomain.Place{
		ID:          f.genID.Generate(),
		TenantID:    tenant.ID,
		Name:        "Blue Lagoon",
		CountryName: "Iceland",
	}).Error)

	rejection, err := f.gate.Run(context.Background(), f.gate.CheckCustomPlaceLimit(tenant.ID, true))
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, CodePlacesLimitReached, rejection.Code)
	assert.Equal(t, int64(1), rejection.Current)
	assert.Equal(t, int64(1), rejection.Limit)

	// Updates bypass the cap.
	rejection, err = f.gate.Run(context.Background(), f.gate.CheckCustomPlaceLimit(tenant.ID, false))
	require.NoError(t, err)
	assert.Nil(t, rejection)
}

func TestCheckCustomPlaceLimitSpecialValues(t *testing.T) {
	f := newGateFixture(t)
	tenant := f.seedTenant(t)

	f.seedSubscription(t, tenant.ID, func(sub *subscriptiondomain.Subscription) {
		sub.CustomPlacesLimit = -1
	})
	rejection, err := f.gate.Run(context.Background(), f.gate.CheckCustomPlaceLimit(tenant.ID, true))
	require.NoError(t, err)
	assert.Nil(t, rejection)

	require.NoError(t, f.db.Model(&subscriptiondomain.Subscription{}).
		Where("tenant_id = ?", tenant.ID).
		UpdateColumn("custom_places_limit", 0).Error)
	rejection, err = f.gate.Run(context.Background(), f.gate.CheckCustomPlaceLimit(tenant.ID, true))
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, CodePlacesNotAvailable, rejection.Code)
}

func TestConsumeOpening(t *testing.T) {
	f := newGateFixture(t)
	tenant := f.seedTenant(t)
	f.seedSubscription(t, tenant.ID, func(sub *subscriptiondomain.Subscription) {
		sub.OpeningsLimit = 2
		sub.CurrentOpeningsUsed = 1
	})
	key := f.seedKey(t, tenant.ID, "acme.com", true)

	rejection, err := f.gate.Run(context.Background(), f.gate.ConsumeOpening(key))
	require.NoError(t, err)
	assert.Nil(t, rejection)

	rejection, err = f.gate.Run(context.Background(), f.gate.ConsumeOpening(key))
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.Equal(t, http.StatusTooManyRequests, rejection.Status)
	assert.Equal(t, CodeOpeningsLimitReached, rejection.Code)
	assert.Equal(t, int64(2), rejection.Current)
	assert.Equal(t, int64(2), rejection.Limit)

	var sub subscriptiondomain.Subscription
	require.NoError(t, f.db.Where("tenant_id = ?", tenant.ID).First(&sub).Error)
	assert.Equal(t, int64(2), sub.CurrentOpeningsUsed)
}

func TestRunStopsAtFirstRejection(t *testing.T) {
	f := newGateFixture(t)
	tenant := f.seedTenant(t)

	var reached bool
	rejection, err := f.gate.Run(context.Background(),
		f.gate.RequireLiveSubscription(tenant.ID),
		func(ctx context.Context) (*Rejection, error) {
			reached = true
			return nil, nil
		},
	)
	require.NoError(t, err)
	require.NotNil(t, rejection)
	assert.False(t, reached)
}
