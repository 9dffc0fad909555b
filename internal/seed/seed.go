// Package seed bootstraps a demo tenant for local development so the
// widget can be exercised immediately after first startup.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apikeydomain "github.com/roamkit/roamkit/internal/apikey/domain"
	subscriptiondomain "github.com/roamkit/roamkit/internal/subscription/domain"
	tenantdomain "github.com/roamkit/roamkit/internal/tenant/domain"
)

const (
	demoEmail    = "demo@roamkit.dev"
	demoPassword = "demo"
	demoDomain   = "localhost"

	// DemoAPIKey is the fixed widget key issued to the demo tenant.
	// It only ever exists when demo bootstrap is enabled, which the
	// config layer refuses in production.
	DemoAPIKey = "rk_live_demo_0000000000000000"
)

// EnsureDemoTenant creates the demo tenant, a live subscription and an
// active API key if they do not exist yet. Safe to call on every boot.
func EnsureDemoTenant(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := ensureTenantTx(ctx, tx, node)
		if err != nil {
			return err
		}
		if err := ensureSubscriptionTx(ctx, tx, node, tenant.ID); err != nil {
			return err
		}
		return ensureAPIKeyTx(ctx, tx, node, tenant.ID)
	})
}

func ensureTenantTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*tenantdomain.Tenant, error) {
	var existing tenantdomain.Tenant
	err := tx.WithContext(ctx).Where("email = ?", demoEmail).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	tenant := tenantdomain.Tenant{
		ID:           node.Generate(),
		Email:        demoEmail,
		PasswordHash: string(hash),
		BaseDomain:   demoDomain,
		TokenVersion: 1,
	}
	if err := tx.WithContext(ctx).Create(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func ensureSubscriptionTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, tenantID snowflake.ID) error {
	var existing subscriptiondomain.Subscription
	err := tx.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	sub := subscriptiondomain.Subscription{
		ID:                node.Generate(),
		TenantID:          tenantID,
		PlanType:          "pro",
		IsSubscribed:      true,
		IsActive:          true,
		Status:            subscriptiondomain.StatusActive,
		DomainsAllowed:    2,
		OpeningsLimit:     10000,
		CustomPlacesLimit: 25,
		CurrentPeriodEnd:  time.Now().UTC().Add(30 * 24 * time.Hour),
	}
	return tx.WithContext(ctx).Create(&sub).Error
}

func ensureAPIKeyTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, tenantID snowflake.ID) error {
	keyHash := apikeydomain.HashAPIKey(DemoAPIKey)

	var existing apikeydomain.APIKey
	err := tx.WithContext(ctx).Where("key_hash = ?", keyHash).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	key := apikeydomain.APIKey{
		ID:             node.Generate(),
		TenantID:       tenantID,
		KeyHash:        keyHash,
		Domain:         demoDomain,
		AllowedOrigins: []string{"http://localhost", "http://127.0.0.1"},
		IsActive:       true,
	}
	return tx.WithContext(ctx).Create(&key).Error
}
