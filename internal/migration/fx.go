package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apikeydomain "github.com/roamkit/roamkit/internal/apikey/domain"
	"github.com/roamkit/roamkit/internal/config"
	placedomain "github.com/roamkit/roamkit/internal/place/domain"
	"github.com/roamkit/roamkit/internal/seed"
	subscriptiondomain "github.com/roamkit/roamkit/internal/subscription/domain"
	tenantdomain "github.com/roamkit/roamkit/internal/tenant/domain"
	usagedomain "github.com/roamkit/roamkit/internal/usage/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(
				&tenantdomain.Tenant{},
				&tenantdomain.ExtraDomainPurchase{},
				&subscriptiondomain.Subscription{},
				&apikeydomain.APIKey{},
				&placedomain.Place{},
				&usagedomain.UsageEvent{},
				&usagedomain.APIRequestLog{},
			); err != nil {
				return err
			}
		}

		if cfg.BootstrapDemo && !cfg.IsProduction() {
			if err := seed.EnsureDemoTenant(conn); err != nil {
				return err
			}
			log.Info("demo tenant ready", zap.String("email", "demo@roamkit.dev"))
		}
		return nil
	}),
)
