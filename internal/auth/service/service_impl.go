package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	authdomain "github.com/roamkit/roamkit/internal/auth/domain"
	"github.com/roamkit/roamkit/internal/config"
	"github.com/roamkit/roamkit/internal/tenant/repository"
	"github.com/roamkit/roamkit/internal/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	tenantdomain "github.com/roamkit/roamkit/internal/tenant/domain"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Cfg  config.Config
	Repo repository.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     repository.Repository
	secret   []byte
	tokenTTL time.Duration
}

func New(p Params) authdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("auth.service"),
		repo:     p.Repo,
		secret:   []byte(p.Cfg.AuthJWTSecret),
		tokenTTL: time.Duration(p.Cfg.AuthTokenTTL) * time.Hour,
	}
}

func (s *Service) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, authdomain.ErrInvalidCredentials
	}

	tenant, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, authdomain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(tenant.PasswordHash), []byte(req.Password)); err != nil {
		return nil, authdomain.ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	claims := &authdomain.Claims{
		TenantID:     tenant.ID.String(),
		TokenVersion: tenant.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &authdomain.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		TenantID:  tenant.ID.String(),
		Email:     tenant.Email,
	}, nil
}

func (s *Service) Verify(ctx context.Context, rawToken string) (*tenantdomain.Tenant, *authdomain.Claims, error) {
	token, err := jwt.ParseWithClaims(rawToken, &authdomain.Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, authdomain.ErrTokenExpired
		}
		return nil, nil, authdomain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*authdomain.Claims)
	if !ok || !token.Valid {
		return nil, nil, authdomain.ErrTokenInvalid
	}

	tenantID, err := snowflake.ParseString(claims.TenantID)
	if err != nil {
		return nil, nil, authdomain.ErrTokenInvalid
	}

	tenant, err := s.repo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return nil, nil, err
	}
	if tenant == nil {
		return nil, nil, authdomain.ErrTokenInvalid
	}
	if tenant.TokenVersion != claims.TokenVersion {
		return nil, nil, authdomain.ErrTokenInvalidated
	}
	return tenant, claims, nil
}

func (s *Service) LogoutEverywhere(ctx context.Context) error {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return authdomain.ErrInvalidTenant
	}

	if err := s.repo.IncrementTokenVersion(ctx, s.db, tenantID); err != nil {
		return err
	}
	s.log.Info("revoked all tokens", zap.String("tenant_id", tenantID.String()))
	return nil
}

func (s *Service) Me(ctx context.Context) (*authdomain.Profile, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil, authdomain.ErrInvalidTenant
	}

	tenant, err := s.repo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, tenantdomain.ErrNotFound
	}
	return &authdomain.Profile{
		TenantID:   tenant.ID.String(),
		Email:      tenant.Email,
		BaseDomain: tenant.BaseDomain,
	}, nil
}
