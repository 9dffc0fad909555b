package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/roamkit/roamkit/internal/apikey/domain"
	"github.com/roamkit/roamkit/internal/config"
	"github.com/roamkit/roamkit/internal/origin"
	"github.com/roamkit/roamkit/internal/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	apiKeyPrefix      = "rk_live_"
	apiKeySecretBytes = 24
)

// Origins some development setups present instead of a real site origin.
var devOrigins = map[string]bool{
	"http://localhost":  true,
	"https://localhost": true,
	"http://127.0.0.1":  true,
	"https://127.0.0.1": true,
	"file://":           true,
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	GenID *snowflake.Node
	Repo  apikeydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	cfg   config.Config
	repo  apikeydomain.Repository
	genID *snowflake.Node
}

func New(p Params) apikeydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("apikey.service"),
		cfg:   p.Cfg,
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) List(ctx context.Context) ([]apikeydomain.Response, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	resp := make([]apikeydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

// Issue creates a new key for the given domain. When the tenant already has
// an active key for that domain it is deactivated, never deleted, so usage
// history keeps resolving.
func (s *Service) Issue(ctx context.Context, req apikeydomain.IssueRequest) (*apikeydomain.SecretResponse, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	domain := strings.ToLower(strings.TrimSpace(req.Domain))
	if domain == "" {
		return nil, apikeydomain.ErrInvalidDomain
	}

	origins := normalizeOrigins(req.AllowedOrigins)
	if len(origins) == 0 {
		origins = []string{"https://" + domain}
	}

	now := time.Now().UTC()
	id := s.genID.Generate()
	plain, hash, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	var result *apikeydomain.SecretResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		previous, err := s.repo.FindActiveByDomain(ctx, tx, tenantID, domain)
		if err != nil {
			return err
		}
		if previous != nil {
			previous.IsActive = false
			previous.UpdatedAt = now
			if err := s.repo.Update(ctx, tx, previous); err != nil {
				return err
			}
		}

		key := &apikeydomain.APIKey{
			ID:             id,
			TenantID:       tenantID,
			KeyHash:        hash,
			Domain:         domain,
			AllowedOrigins: origins,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.Insert(ctx, tx, key); err != nil {
			return err
		}

		result = &apikeydomain.SecretResponse{
			ID:     key.ID.String(),
			APIKey: plain,
			Domain: domain,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("api key issued", zap.String("tenant_id", tenantID.String()), zap.String("domain", domain))
	return result, nil
}

func (s *Service) Revoke(ctx context.Context, keyID string) error {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return err
	}

	id, err := snowflake.ParseString(strings.TrimSpace(keyID))
	if err != nil {
		return apikeydomain.ErrInvalidKeyID
	}

	key, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return err
	}
	if key == nil {
		return apikeydomain.ErrNotFound
	}

	now := time.Now().UTC()
	key.IsActive = false
	key.UpdatedAt = now
	if key.RevokedAt == nil {
		key.RevokedAt = &now
	}
	return s.repo.Update(ctx, s.db, key)
}

func (s *Service) Validate(ctx context.Context, rawKey, requestOrigin string) (*apikeydomain.APIKey, error) {
	trimmed := strings.TrimSpace(rawKey)
	if trimmed == "" {
		return nil, apikeydomain.ErrKeyNotFound
	}

	hash := apikeydomain.HashAPIKey(trimmed)
	key, err := s.repo.FindByHash(ctx, s.db, hash)
	if err != nil {
		return nil, err
	}
	if key == nil || subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hash)) != 1 {
		return nil, apikeydomain.ErrKeyNotFound
	}
	if !key.IsActive {
		return nil, apikeydomain.ErrKeyInactive
	}

	if s.originBypassed(requestOrigin) {
		return key, nil
	}

	if !origin.Matches(requestOrigin, key.AllowedOrigins) {
		return nil, apikeydomain.ErrOriginNotAllowed
	}
	return key, nil
}

// originBypassed allows local development against a real key outside
// production: no Origin header, localhost, and file:// pages all pass.
func (s *Service) originBypassed(requestOrigin string) bool {
	if s.cfg.IsProduction() {
		return false
	}
	trimmed := strings.ToLower(strings.TrimSpace(requestOrigin))
	if trimmed == "" {
		return true
	}
	if devOrigins[trimmed] {
		return true
	}
	normalized := origin.Normalize(trimmed)
	return devOrigins[normalized] || strings.HasPrefix(trimmed, "file://")
}

func (s *Service) tenantIDFromContext(ctx context.Context) (snowflake.ID, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return 0, apikeydomain.ErrInvalidTenant
	}
	return tenantID, nil
}

func toResponse(key *apikeydomain.APIKey) apikeydomain.Response {
	return apikeydomain.Response{
		ID:             key.ID.String(),
		Domain:         key.Domain,
		AllowedOrigins: append([]string(nil), key.AllowedOrigins...),
		IsActive:       key.IsActive,
		CreatedAt:      key.CreatedAt,
		RevokedAt:      key.RevokedAt,
	}
}

func normalizeOrigins(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		trimmed := strings.ToLower(strings.TrimSpace(entry))
		if trimmed == "" {
			continue
		}
		if strings.Contains(trimmed, "*") {
			out = append(out, trimmed)
			continue
		}
		if normalized := origin.Normalize(trimmed); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}

func generateAPIKey() (string, string, error) {
	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", "", err
	}

	plain := fmt.Sprintf("%s%s", apiKeyPrefix, hex.EncodeToString(secret))
	return plain, apikeydomain.HashAPIKey(plain), nil
}
