package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/pkg/database"
	"github.com/prohmpiriya/sport-slots-booker/pkg/logger"
)

func skipIfNoIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("skipping integration test; set INTEGRATION_TEST=true to run")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getPostgresPool creates a migrated PostgreSQL connection pool for testing
func getPostgresPool(t *testing.T) *pgxpool.Pool {
	skipIfNoIntegration(t)

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		envOr("TEST_POSTGRES_USER", "postgres"),
		envOr("TEST_POSTGRES_PASSWORD", "postgres"),
		envOr("TEST_POSTGRES_HOST", "localhost"),
		envOr("TEST_POSTGRES_PORT", "5432"),
		envOr("TEST_POSTGRES_DB", "slots_test"),
	)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping PostgreSQL: %v", err)
	}
	if err := database.RunMigrations(pool, logger.Nop()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

type fixture struct {
	venueID string
	sportID string
	slotID  string
}

func seedFixture(t *testing.T, pool *pgxpool.Pool) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{venueID: uuid.New().String(), sportID: uuid.New().String(), slotID: uuid.New().String()}

	stmts := []struct {
		sql  string
		args []interface{}
	}{
		{`INSERT INTO venues (id, name, address) VALUES ($1, 'Test Courts', 'Bangkok')`, []interface{}{f.venueID}},
		{`INSERT INTO sports (id, name) VALUES ($1, 'Badminton')`, []interface{}{f.sportID}},
		{`INSERT INTO pricing_rules (id, venue_id, sport_id, day, session, price) VALUES ($1, $2, NULL, 'friday-sunday', 'evening', 800)`,
			[]interface{}{uuid.New().String(), f.venueID}},
		{`INSERT INTO pricing_rules (id, venue_id, sport_id, day, session, price) VALUES ($1, $2, $3, 'monday', 'morning', 300)`,
			[]interface{}{uuid.New().String(), f.venueID, f.sportID}},
		{`INSERT INTO slots (id, venue_id, sport_id, date, start_time, end_time, price) VALUES ($1, $2, $3, '2025-03-07', '18:00', '18:30', 800)`,
			[]interface{}{f.slotID, f.venueID, f.sportID}},
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s.sql, s.args...); err != nil {
			t.Fatalf("Failed to seed: %v", err)
		}
	}

	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.Exec(ctx, `DELETE FROM bookings WHERE venue_id = $1`, f.venueID)
		_, _ = pool.Exec(ctx, `DELETE FROM slots WHERE venue_id = $1`, f.venueID)
		_, _ = pool.Exec(ctx, `DELETE FROM pricing_rules WHERE venue_id = $1`, f.venueID)
		_, _ = pool.Exec(ctx, `DELETE FROM venues WHERE id = $1`, f.venueID)
		_, _ = pool.Exec(ctx, `DELETE FROM sports WHERE id = $1`, f.sportID)
	})
	return f
}

func newTestBooking(f fixture, slotTime time.Time, slotID *string) *domain.Booking {
	return &domain.Booking{
		ID:        uuid.New().String(),
		UserID:    "user-" + uuid.New().String()[:8],
		VenueID:   f.venueID,
		SportID:   f.sportID,
		SlotID:    slotID,
		SlotTime:  slotTime,
		Status:    domain.BookingStatusConfirmed,
		FullName:  "Test User",
		Phone:     "0812345678",
		Amount:    800,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPostgresCatalogRepository(t *testing.T) {
	pool := getPostgresPool(t)
	f := seedFixture(t, pool)
	repo := NewPostgresCatalogRepository(pool)
	ctx := context.Background()

	venue, err := repo.GetVenue(ctx, f.venueID)
	require.NoError(t, err)
	assert.Equal(t, "Test Courts", venue.Name)
	assert.Equal(t, "Bangkok", venue.Address)

	sport, err := repo.GetSport(ctx, f.sportID)
	require.NoError(t, err)
	assert.Equal(t, "Badminton", sport.Name)

	rules, err := repo.ListPricingRules(ctx, f.venueID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "", rules[0].SportID)
	assert.Equal(t, domain.SessionEvening, rules[0].Session)
	assert.Equal(t, f.sportID, rules[1].SportID)

	_, err = repo.GetVenue(ctx, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrVenueNotFound)
	_, err = repo.GetSport(ctx, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrSportNotFound)
}

func TestPostgresSlotRepository(t *testing.T) {
	pool := getPostgresPool(t)
	f := seedFixture(t, pool)
	repo := NewPostgresSlotRepository(pool)
	ctx := context.Background()

	slot, err := repo.GetByID(ctx, f.slotID)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-07", slot.Date)
	assert.Equal(t, "18:00:00", slot.StartTime)
	assert.Equal(t, "18:30:00", slot.EndTime)
	assert.True(t, slot.Available)

	require.NoError(t, repo.MarkUnavailable(ctx, f.slotID))
	available, err := repo.IsAvailable(ctx, f.slotID)
	require.NoError(t, err)
	assert.False(t, available)

	// Second flip is a no-op
	require.NoError(t, repo.MarkUnavailable(ctx, f.slotID))

	missing := uuid.New().String()
	assert.ErrorIs(t, repo.MarkUnavailable(ctx, missing), domain.ErrSlotNotFound)
	_, err = repo.GetByID(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
}

func TestPostgresBookingRepository_CreateAndGet(t *testing.T) {
	pool := getPostgresPool(t)
	f := seedFixture(t, pool)
	repo := NewPostgresBookingRepository(pool)
	ctx := context.Background()

	slotTime := time.Date(2025, 3, 8, 18, 0, 0, 0, time.UTC)
	booking := newTestBooking(f, slotTime, nil)
	require.NoError(t, repo.Create(ctx, booking))

	got, err := repo.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.UserID, got.UserID)
	assert.Nil(t, got.SlotID)
	assert.True(t, got.SlotTime.Equal(slotTime))
	assert.Equal(t, domain.BookingStatusConfirmed, got.Status)

	exists, err := repo.ExistsConfirmed(ctx, f.venueID, f.sportID, slotTime)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsConfirmed(ctx, f.venueID, f.sportID, slotTime.Add(30*time.Minute))
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.GetByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestPostgresBookingRepository_UniqueSlotConstraint(t *testing.T) {
	pool := getPostgresPool(t)
	f := seedFixture(t, pool)
	repo := NewPostgresBookingRepository(pool)
	ctx := context.Background()

	slotTime := time.Date(2025, 3, 7, 18, 0, 0, 0, time.UTC)
	slotID := f.slotID

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, newTestBooking(f, slotTime, &slotID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case domain.IsConflictError(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
}
