package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	placedomain "github.com/roamkit/roamkit/internal/place/domain"
	"github.com/roamkit/roamkit/internal/place/repository"
	"github.com/roamkit/roamkit/internal/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  repository.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository
}

func New(p Params) placedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("place.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context) ([]placedomain.Response, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	places, err := s.repo.List(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	resp := make([]placedomain.Response, 0, len(places))
	for i := range places {
		resp = append(resp, toResponse(&places[i]))
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, req placedomain.CreateRequest) (*placedomain.Response, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, placedomain.ErrInvalidName
	}
	country := strings.TrimSpace(req.CountryName)
	if country == "" {
		return nil, placedomain.ErrInvalidCountry
	}

	now := time.Now().UTC()
	place := &placedomain.Place{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Name:        name,
		CustomName:  strings.TrimSpace(req.CustomName),
		CountryName: country,
		ImageURL:    strings.TrimSpace(req.ImageURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, place); err != nil {
		return nil, err
	}

	resp := toResponse(place)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req placedomain.UpdateRequest) (*placedomain.Response, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, placedomain.ErrInvalidPlaceID
	}

	place, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	if place == nil {
		return nil, placedomain.ErrNotFound
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		place.Name = name
	}
	if country := strings.TrimSpace(req.CountryName); country != "" {
		place.CountryName = country
	}
	place.CustomName = strings.TrimSpace(req.CustomName)
	if image := strings.TrimSpace(req.ImageURL); image != "" {
		place.ImageURL = image
	}
	place.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, place); err != nil {
		return nil, err
	}

	resp := toResponse(place)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return err
	}

	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil {
		return placedomain.ErrInvalidPlaceID
	}
	return s.repo.Delete(ctx, s.db, tenantID, id)
}

func (s *Service) Count(ctx context.Context, tenantID snowflake.ID) (int64, error) {
	return s.repo.Count(ctx, s.db, tenantID)
}

func (s *Service) ListCountries(ctx context.Context, tenantID snowflake.ID) ([]string, error) {
	return s.repo.ListCountries(ctx, s.db, tenantID)
}

func (s *Service) ListByCountry(ctx context.Context, tenantID snowflake.ID, country string) ([]placedomain.Response, error) {
	places, err := s.repo.ListByCountry(ctx, s.db, tenantID, strings.TrimSpace(country))
	if err != nil {
		return nil, err
	}
	resp := make([]placedomain.Response, 0, len(places))
	for i := range places {
		resp = append(resp, toResponse(&places[i]))
	}
	return resp, nil
}

func (s *Service) ResolveCountry(ctx context.Context, tenantID snowflake.ID, placeName string) (string, error) {
	name := strings.TrimSpace(placeName)
	if name == "" {
		return "", placedomain.ErrInvalidName
	}

	place, err := s.repo.FindByName(ctx, s.db, tenantID, name)
	if err != nil {
		return "", err
	}
	if place == nil {
		return "", placedomain.ErrNotFound
	}
	return place.CountryName, nil
}

func (s *Service) tenantIDFromContext(ctx context.Context) (snowflake.ID, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return 0, placedomain.ErrInvalidTenant
	}
	return tenantID, nil
}

func toResponse(place *placedomain.Place) placedomain.Response {
	return placedomain.Response{
		ID:          place.ID.String(),
		Name:        place.Name,
		CustomName:  place.CustomName,
		CountryName: place.CountryName,
		ImageURL:    place.ImageURL,
		CreatedAt:   place.CreatedAt,
	}
}
