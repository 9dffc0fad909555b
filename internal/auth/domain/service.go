package domain

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	tenantdomain "github.com/roamkit/roamkit/internal/tenant/domain"
)

// Claims carries the tenant identity and the token version current at issue
// time. The stored version is re-read on every verification; a bumped version
// invalidates the token regardless of its expiry.
type Claims struct {
	TenantID     string `json:"tenant_id"`
	TokenVersion int    `json:"token_version"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
}

type Profile struct {
	TenantID   string `json:"tenant_id"`
	Email      string `json:"email"`
	BaseDomain string `json:"base_domain"`
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)

	// Verify parses the token and re-reads the tenant row; claims alone are
	// never trusted.
	Verify(ctx context.Context, token string) (*tenantdomain.Tenant, *Claims, error)

	// LogoutEverywhere bumps the tenant's token version, revoking every
	// outstanding token at once.
	LogoutEverywhere(ctx context.Context) error

	Me(ctx context.Context) (*Profile, error)
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrTokenInvalid       = errors.New("token_invalid")
	ErrTokenExpired       = errors.New("token_expired")
	ErrTokenInvalidated   = errors.New("token_invalidated")
	ErrInvalidTenant      = errors.New("invalid_tenant")
)
