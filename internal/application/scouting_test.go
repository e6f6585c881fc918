package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cropscout/internal/domain/entity"
	"cropscout/internal/infrastructure/storage"
)

func TestScoutingFlow(t *testing.T) {
	h := newHarness(t, sharp, time.Minute)
	users := NewUserService(storage.NewMemoryUserRepository())
	svc := NewScoutingService(users, h.fields, h.spots)
	ctx := context.Background()

	_, _, err := svc.AcceptPhoto(ctx, 1, 10, []byte("jpeg"), "p.jpg")
	require.ErrorIs(t, err, ErrNoFieldSelected)

	_, err = svc.ChooseField(ctx, 1, 10, "missing")
	requireCode(t, err, entity.CodeFieldNotFound)

	f, err := svc.ChooseField(ctx, 1, 10, h.field.ID)
	require.NoError(t, err)
	require.Equal(t, h.field.ID, f.ID)

	_, _, err = svc.AcceptPhoto(ctx, 1, 10, []byte("jpeg"), "p.jpg")
	require.ErrorIs(t, err, ErrNoLocation)

	u, err := svc.AcceptLocation(ctx, 1, 10, entity.Point{Lat: 4, Lng: 4})
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, u.State)

	spot, analysis, err := svc.AcceptPhoto(ctx, 1, 10, []byte("jpeg"), "p.jpg")
	require.NoError(t, err)
	require.Equal(t, "telegram", spot.Device)
	require.Equal(t, entity.StatusOK, analysis.Status)

	u, err = users.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingLocation, u.State)

	_, sum, err := svc.Summary(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, sum.TotalSpots)
}

func TestScouting_OutsideFieldKeepsLocation(t *testing.T) {
	h := newHarness(t, sharp, time.Minute)
	users := NewUserService(storage.NewMemoryUserRepository())
	svc := NewScoutingService(users, h.fields, h.spots)
	ctx := context.Background()

	_, err := svc.ChooseField(ctx, 1, 10, h.field.ID)
	require.NoError(t, err)
	_, err = svc.AcceptLocation(ctx, 1, 10, entity.Point{Lat: 20, Lng: 20})
	require.NoError(t, err)

	_, _, err = svc.AcceptPhoto(ctx, 1, 10, []byte("jpeg"), "p.jpg")
	requireCode(t, err, entity.CodeGeofenceViolation)

	u, err := users.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, u.State)
	require.NotNil(t, u.Pending)
}
