package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Issue(ctx context.Context, req IssueRequest) (*SecretResponse, error)
	Revoke(ctx context.Context, keyID string) error

	// Validate resolves a raw key and checks the request origin against the
	// key's allowed-origin patterns. Read-only; safe for concurrent use.
	Validate(ctx context.Context, rawKey, requestOrigin string) (*APIKey, error)
}

type IssueRequest struct {
	Domain         string   `json:"domain"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type Response struct {
	ID             string     `json:"id"`
	Domain         string     `json:"domain"`
	AllowedOrigins []string   `json:"allowed_origins"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	RevokedAt      *time.Time `json:"revoked_at"`
}

type SecretResponse struct {
	ID     string `json:"id"`
	APIKey string `json:"api_key"`
	Domain string `json:"domain"`
}

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidDomain    = errors.New("invalid_domain")
	ErrInvalidKeyID     = errors.New("invalid_key_id")
	ErrNotFound         = errors.New("not_found")
	ErrKeyNotFound      = errors.New("api_key_not_found")
	ErrKeyInactive      = errors.New("api_key_inactive")
	ErrOriginNotAllowed = errors.New("origin_not_allowed")
)
