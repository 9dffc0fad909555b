package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	apikeydomain "github.com/roamkit/roamkit/internal/apikey/domain"
	"github.com/roamkit/roamkit/internal/apikey/repository"
	"github.com/roamkit/roamkit/internal/config"
	"github.com/roamkit/roamkit/internal/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, environment string) (*Service, *gorm.DB, snowflake.ID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&apikeydomain.APIKey{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Cfg:   config.Config{Environment: environment},
		GenID: node,
		Repo:  repository.Provide(),
	}).(*Service)

	return svc, db, node.Generate()
}

func seedKey(t *testing.T, db *gorm.DB, tenantID snowflake.ID, plain string, origins []string, active bool) *apikeydomain.APIKey {
	t.Helper()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	key := &apikeydomain.APIKey{
		ID:             node.Generate(),
		TenantID:       tenantID,
		KeyHash:        apikeydomain.HashAPIKey(plain),
		Domain:         "acme.com",
		AllowedOrigins: origins,
		IsActive:       active,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, db.Create(key).Error)
	return key
}

func TestValidateUnknownKey(t *testing.T) {
	svc, _, _ := newTestService(t, "production")

	_, err := svc.Validate(context.Background(), "rk_live_missing", "https://acme.com")
	assert.ErrorIs(t, err, apikeydomain.ErrKeyNotFound)

	_, err = svc.Validate(context.Background(), "", "https://acme.com")
	assert.ErrorIs(t, err, apikeydomain.ErrKeyNotFound)
}

func TestValidateInactiveKey(t *testing.T) {
	svc, db, tenantID := newTestService(t, "production")
	seedKey(t, db, tenantID, "rk_live_revoked", []string{"https://acme.com"}, false)

	_, err := svc.Validate(context.Background(), "rk_live_revoked", "https://acme.com")
	assert.ErrorIs(t, err, apikeydomain.ErrKeyInactive)
}

func TestValidateOriginRules(t *testing.T) {
	svc, db, tenantID := newTestService(t, "production")
	seedKey(t, db, tenantID, "rk_live_k1", []string{"https://acme.com", "https://*.staging.acme.com"}, true)

	key, err := svc.Validate(context.Background(), "rk_live_k1", "https://app.staging.acme.com")
	require.NoError(t, err)
	assert.Equal(t, tenantID, key.TenantID)

	_, err = svc.Validate(context.Background(), "rk_live_k1", "https://acme.com.evil.com")
	assert.ErrorIs(t, err, apikeydomain.ErrOriginNotAllowed)

	// Production never admits origin-less requests.
	_, err = svc.Validate(context.Background(), "rk_live_k1", "")
	assert.ErrorIs(t, err, apikeydomain.ErrOriginNotAllowed)
}

func TestValidateDevelopmentBypass(t *testing.T) {
	svc, db, tenantID := newTestService(t, "development")
	seedKey(t, db, tenantID, "rk_live_dev", []string{"https://acme.com"}, true)

	for _, origin := range []string{"", "http://localhost", "http://127.0.0.1", "file://"} {
		_, err := svc.Validate(context.Background(), "rk_live_dev", origin)
		assert.NoError(t, err, "origin %q", origin)
	}

	// Bypass covers local origins only; real mismatches still fail.
	_, err := svc.Validate(context.Background(), "rk_live_dev", "https://other.com")
	assert.ErrorIs(t, err, apikeydomain.ErrOriginNotAllowed)
}

func TestIssueDeactivatesPreviousKeyForDomain(t *testing.T) {
	svc, db, tenantID := newTestService(t, "development")
	ctx := tenantctx.WithTenantID(context.Background(), tenantID)

	first, err := svc.Issue(ctx, apikeydomain.IssueRequest{Domain: "Acme.com"})
	require.NoError(t, err)
	second, err := svc.Issue(ctx, apikeydomain.IssueRequest{Domain: "acme.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first.APIKey, second.APIKey)

	var keys []apikeydomain.APIKey
	require.NoError(t, db.Order("created_at").Find(&keys).Error)
	require.Len(t, keys, 2, "previous key is deactivated, never deleted")

	active := 0
	for _, k := range keys {
		assert.Equal(t, "acme.com", k.Domain)
		if k.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestIssueDefaultsOriginsToDomain(t *testing.T) {
	svc, _, tenantID := newTestService(t, "production")
	ctx := tenantctx.WithTenantID(context.Background(), tenantID)

	secret, err := svc.Issue(ctx, apikeydomain.IssueRequest{Domain: "acme.com"})
	require.NoError(t, err)

	key, err := svc.Validate(context.Background(), secret.APIKey, "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.com"}, []string(key.AllowedOrigins))
}

func TestRevoke(t *testing.T) {
	svc, db, tenantID := newTestService(t, "production")
	ctx := tenantctx.WithTenantID(context.Background(), tenantID)

	secret, err := svc.Issue(ctx, apikeydomain.IssueRequest{Domain: "acme.com"})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, secret.ID))

	var key apikeydomain.APIKey
	require.NoError(t, db.First(&key).Error)
	assert.False(t, key.IsActive)
	assert.NotNil(t, key.RevokedAt)

	_, err = svc.Validate(context.Background(), secret.APIKey, "https://acme.com")
	assert.ErrorIs(t, err, apikeydomain.ErrKeyInactive)
}
