package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cropscout/internal/domain/entity"
)

func TestCreateField_Validation(t *testing.T) {
	h := newHarness(t, sharp, time.Minute)
	ctx := context.Background()

	_, err := h.fields.CreateField(ctx, CreateFieldInput{Name: " ", Polygon: entity.Polygon{{0, 0}, {0, 1}, {1, 1}}})
	requireCode(t, err, entity.CodeInvalidRequest)

	_, err = h.fields.CreateField(ctx, CreateFieldInput{Name: "x", Polygon: entity.Polygon{{0, 0}, {0, 1}}})
	requireCode(t, err, entity.CodeInvalidPolygon)

	_, err = h.fields.CreateField(ctx, CreateFieldInput{Name: "x", Polygon: entity.Polygon{{0, 0}, {0, 181}, {1, 1}}})
	requireCode(t, err, entity.CodeInvalidPolygon)

	f, err := h.fields.CreateField(ctx, CreateFieldInput{Name: "East", CropType: "tea", Polygon: entity.Polygon{{0, 0}, {0, 1}, {1, 1}}})
	require.NoError(t, err)
	require.Equal(t, "tea", f.CropType)
	require.Equal(t, entity.DefaultCropType, h.field.CropType)

	list, err := h.fields.ListFields(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestFieldMetrics(t *testing.T) {
	h := newHarness(t, sharp, time.Minute)

	m, err := h.fields.FieldMetrics(context.Background(), h.field.ID)
	require.NoError(t, err)
	require.Greater(t, m.AreaSqm, 0.0)
	require.InDelta(t, m.AreaSqm/10000, m.AreaHectare, 0.01)
	require.InDelta(t, 5, m.Centroid.Lat, 1e-6)
	require.InDelta(t, 5, m.Centroid.Lng, 1e-6)

	_, err = h.fields.FieldMetrics(context.Background(), "missing")
	requireCode(t, err, entity.CodeFieldNotFound)
}

func TestDeleteField_RemovesImages(t *testing.T) {
	h := newHarness(t, sharp, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := h.spots.CreateSpot(ctx, h.input())
		require.NoError(t, err)
	}
	require.Equal(t, 2, h.images.count())

	require.NoError(t, h.fields.DeleteField(ctx, h.field.ID))
	require.Zero(t, h.images.count())
	require.Zero(t, h.repo.spotCount())

	_, err := h.fields.GetField(ctx, h.field.ID)
	requireCode(t, err, entity.CodeFieldNotFound)
	requireCode(t, h.fields.DeleteField(ctx, h.field.ID), entity.CodeFieldNotFound)
}

func TestFieldGuard(t *testing.T) {
	g := NewFieldGuard()

	require.True(t, g.Enter("f"))
	require.True(t, g.Enter("f"))
	require.False(t, g.BeginDelete("f"))
	g.Leave("f")
	g.Leave("f")
	require.Zero(t, g.InFlight("f"))

	require.True(t, g.BeginDelete("f"))
	require.False(t, g.BeginDelete("f"))
	require.False(t, g.Enter("f"))
	require.True(t, g.Enter("other"))
	g.EndDelete("f")
	require.True(t, g.Enter("f"))
}
