package reservations_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
	"github.com/hristiyandudev55/nurblifebg/internal/reservations"
	"github.com/hristiyandudev55/nurblifebg/internal/testutil"
)

var placedAt = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func hold(carID uuid.UUID, start time.Time) reservation.Reservation {
	r := reservation.NewHold(uuid.New(), carID, reservation.NewWindow(start), placedAt, 15*time.Minute)
	r.Laps = 2
	r.PriceForLap = 49.5
	r.Package = reservation.PackageBase
	r.Customer = reservation.Customer{FullName: "Ana Petrova", Email: "ana@example.com", PhoneNumber: "0888123456"}
	return r
}

func TestInsertAndGet(t *testing.T) {
	d := testutil.NewTestDB(t)
	repo := reservations.NewRepo(d)
	ctx := context.Background()
	carID := testutil.InsertCar(t, d, "Porsche", "GT3")

	r := hold(carID, placedAt.Add(6*time.Hour))
	require.NoError(t, repo.Insert(ctx, r))

	got, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusTemporaryHold, got.Status)
	assert.True(t, got.Window.Start.Equal(r.Window.Start))
	assert.True(t, got.Window.End.Equal(r.Window.End))
	assert.InDelta(t, 49.5, got.PriceForLap, 0.001)
	assert.Equal(t, "Ana Petrova", got.Customer.FullName)

	_, err = repo.Get(ctx, uuid.New())
	assert.Equal(t, internaltypes.KindNotFound, internaltypes.KindOf(err))
}

func TestExclusionConstraint(t *testing.T) {
	d := testutil.NewTestDB(t)
	repo := reservations.NewRepo(d)
	ctx := context.Background()
	carID := testutil.InsertCar(t, d, "BMW", "M2")
	start := placedAt.Add(6 * time.Hour)

	first := hold(carID, start)
	require.NoError(t, repo.Insert(ctx, first))

	err := repo.Insert(ctx, hold(carID, start.Add(time.Hour)))
	require.Error(t, err)
	e, ok := internaltypes.As(err)
	require.True(t, ok)
	assert.Equal(t, internaltypes.KindResourceUnavailable, e.Kind)
	assert.Equal(t, "Car", e.ResourceType)

	// adjacent windows share only the boundary instant
	require.NoError(t, repo.Insert(ctx, hold(carID, start.Add(reservation.SlotDuration))))

	// a cancelled reservation stops blocking its slot
	require.NoError(t, first.Apply(reservation.StatusCancelled, placedAt.Add(time.Minute), "customer request"))
	require.NoError(t, repo.SaveTransition(ctx, first))
	require.NoError(t, repo.Insert(ctx, hold(carID, start)))

	n, err := repo.CountOverlapping(ctx, carID, reservation.NewWindow(start.Add(30*time.Minute)),
		[]reservation.Status{reservation.StatusTemporaryHold, reservation.StatusPendingPayment, reservation.StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExpiredCandidates(t *testing.T) {
	d := testutil.NewTestDB(t)
	repo := reservations.NewRepo(d)
	ctx := context.Background()
	carID := testutil.InsertCar(t, d, "Toyota", "GR86")

	stale := hold(carID, placedAt.Add(6*time.Hour))
	fresh := hold(carID, placedAt.Add(9*time.Hour))
	later := placedAt.Add(time.Hour)
	fresh.HoldExpiresAt = &later
	require.NoError(t, repo.Insert(ctx, stale))
	require.NoError(t, repo.Insert(ctx, fresh))

	// the deadline itself is not yet expired
	ids, err := repo.ExpiredCandidates(ctx, *stale.HoldExpiresAt, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = repo.ExpiredCandidates(ctx, stale.HoldExpiresAt.Add(time.Second), 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{stale.ID}, ids)
}

func TestGetForUpdateSkipLocked(t *testing.T) {
	d := testutil.NewTestDB(t)
	repo := reservations.NewRepo(d)
	ctx := context.Background()
	carID := testutil.InsertCar(t, d, "Porsche", "Cayman")

	r := hold(carID, placedAt.Add(6*time.Hour))
	require.NoError(t, repo.Insert(ctx, r))

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- repo.WithTx(ctx, func(ctx context.Context) error {
			if _, err := repo.GetForUpdate(ctx, r.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	err := repo.WithTx(ctx, func(ctx context.Context) error {
		_, ok, err := repo.GetForUpdateSkipLocked(ctx, r.ID)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	err = repo.WithTx(ctx, func(ctx context.Context) error {
		got, ok, err := repo.GetForUpdateSkipLocked(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, r.ID, got.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestListAndDelete(t *testing.T) {
	d := testutil.NewTestDB(t)
	repo := reservations.NewRepo(d)
	ctx := context.Background()
	carA := testutil.InsertCar(t, d, "BMW", "M3")
	carB := testutil.InsertCar(t, d, "BMW", "M4")

	a := hold(carA, placedAt.Add(6*time.Hour))
	b := hold(carB, placedAt.Add(6*time.Hour))
	require.NoError(t, repo.Insert(ctx, a))
	require.NoError(t, repo.Insert(ctx, b))
	require.NoError(t, b.Apply(reservation.StatusConfirmed, placedAt.Add(time.Minute), ""))
	require.NoError(t, repo.SaveTransition(ctx, b))

	all, err := repo.List(ctx, reservations.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	confirmed, err := repo.List(ctx, reservations.ListFilter{Status: reservation.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, b.ID, confirmed[0].ID)

	byCar, err := repo.List(ctx, reservations.ListFilter{CarID: carA})
	require.NoError(t, err)
	require.Len(t, byCar, 1)
	assert.Equal(t, a.ID, byCar[0].ID)

	pending, err := repo.PendingCalendarSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NoError(t, repo.SetCalendarEventID(ctx, b.ID, "evt-1"))
	pending, err = repo.PendingCalendarSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.Equal(t, internaltypes.KindNotFound, internaltypes.KindOf(repo.Delete(ctx, a.ID)))
}
