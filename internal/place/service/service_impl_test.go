package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	placedomain "github.com/roamkit/roamkit/internal/place/domain"
	"github.com/roamkit/roamkit/internal/place/repository"
	"github.com/roamkit/roamkit/internal/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, snowflake.ID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&placedomain.Place{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	}).(*Service)

	return svc, db, node.Generate()
}

func tenantContext(tenantID snowflake.ID) context.Context {
	return tenantctx.WithTenantID(context.Background(), tenantID)
}

func TestCreateRequiresTenant(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), placedomain.CreateRequest{
		Name:        "Blue Lagoon",
		CountryName: "Iceland",
	})
	assert.ErrorIs(t, err, placedomain.ErrInvalidTenant)
}

func TestCreateValidation(t *testing.T) {
	svc, _, tenantID := newTestService(t)
	ctx := tenantContext(tenantID)

	_, err := svc.Create(ctx, placedomain.CreateRequest{CountryName: "Iceland"})
	assert.ErrorIs(t, err, placedomain.ErrInvalidName)

	_, err = svc.Create(ctx, placedomain.CreateRequest{Name: "Blue Lagoon"})
	assert.ErrorIs(t, err, placedomain.ErrInvalidCountry)
}

func TestCreateAndList(t *testing.T) {
	svc, _, tenantID := newTestService(t)
	ctx := tenantContext(tenantID)

	created, err := svc.Create(ctx, placedomain.CreateRequest{
		Name:        "  Blue Lagoon  ",
		CountryName: "Iceland",
		ImageURL:    "https://img.example.com/lagoon.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "Blue Lagoon", created.Name)
	assert.Equal(t, "Iceland", created.CountryName)

	_, err = svc.Create(ctx, placedomain.CreateRequest{
		Name:        "Gullfoss",
		CountryName: "Iceland",
	})
	require.NoError(t, err)

	listed, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "Blue Lagoon", listed[0].Name)
	assert.Equal(t, "Gullfoss", listed[1].Name)

	count, err := svc.Count(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestListIsScopedToTenant(t *testing.T) {
	svc, _, tenantID := newTestService(t)

	_, err := svc.Create(tenantContext(tenantID), placedomain.CreateRequest{
		Name:        "Blue Lagoon",
		CountryName: "Iceland",
	})
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	otherTenant := node.Generate()

	listed, err := svc.List(tenantContext(otherTenant))
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestUpdate(t *testing.T) {
	svc, _, tenantID := newTestService(t)
	ctx := tenantContext(tenantID)

	created, err := svc.Create(ctx, placedomain.CreateRequest{
		Name:        "Blue Lagoon",
		CountryName: "Iceland",
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, placedomain.UpdateRequest{
		ID:         created.ID,
		CustomName: "The Lagoon",
	})
	require.NoError(t, err)
	assert.Equal(t, "Blue Lagoon", updated.Name)
	assert.Equal(t, "The Lagoon", updated.CustomName)

	_, err = svc.Update(ctx, placedomain.UpdateRequest{ID: "not-a-number"})
	assert.ErrorIs(t, err, placedomain.ErrInvalidPlaceID)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	_, err = svc.Update(ctx, placedomain.UpdateRequest{ID: node.Generate().String()})
	assert.ErrorIs(t, err, placedomain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, _, tenantID := newTestService(t)
	ctx := tenantContext(tenantID)

	created, err := svc.Create(ctx, placedomain.CreateRequest{
		Name:        "Blue Lagoon",
		CountryName: "Iceland",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	count, err := svc.Count(ctx, tenantID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCountryNavigation(t *testing.T) {
	svc, _, tenantID := newTestService(t)
	ctx := tenantContext(tenantID)

	for _, seed := range []placedomain.CreateRequest{
		{Name: "Blue Lagoon", CountryName: "Iceland"},
		{Name: "Gullfoss", CountryName: "Iceland"},
		{Name: "Louvre", CountryName: "France"},
	} {
		_, err := svc.Create(ctx, seed)
		require.NoError(t, err)
	}

	countries, err := svc.ListCountries(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, []string{"France", "Iceland"}, countries)

	places, err := svc.ListByCountry(ctx, tenantID, "Iceland")
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "Blue Lagoon", places[0].Name)
}

func TestResolveCountry(t *testing.T) {
	svc, _, tenantID := newTestService(t)
	ctx := tenantContext(tenantID)

	_, err := svc.Create(ctx, placedomain.CreateRequest{
		Name:        "Blue Lagoon",
		CustomName:  "The Lagoon",
		CountryName: "Iceland",
	})
	require.NoError(t, err)

	country, err := svc.ResolveCountry(ctx, tenantID, "Blue Lagoon")
	require.NoError(t, err)
	assert.Equal(t, "Iceland", country)

	country, err = svc.ResolveCountry(ctx, tenantID, "The Lagoon")
	require.NoError(t, err)
	assert.Equal(t, "Iceland", country)

	_, err = svc.ResolveCountry(ctx, tenantID, "Unknown")
	assert.ErrorIs(t, err, placedomain.ErrNotFound)
}
