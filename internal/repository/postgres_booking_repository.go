package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/pkg/telemetry"
)

// PostgresBookingRepository implements BookingRepository using PostgreSQL with pgxpool
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

// Create inserts the booking. The partial unique indexes on bookings are the
// final arbiter between concurrent attempts on the same slot.
func (r *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("venue_id", booking.VenueID),
		attribute.String("sport_id", booking.SportID),
		attribute.String("slot_time", booking.SlotTime.Format(time.RFC3339)),
	)

	query := `
		INSERT INTO bookings (
			id, user_id, venue_id, sport_id, slot_id, slot_time,
			status, full_name, phone, amount, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)
	`

	_, err := r.pool.Exec(ctx, query,
		booking.ID,
		booking.UserID,
		booking.VenueID,
		booking.SportID,
		booking.SlotID,
		booking.SlotTime,
		string(booking.Status),
		booking.FullName,
		booking.Phone,
		booking.Amount,
		booking.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			span.SetStatus(codes.Error, "slot conflict")
			return domain.ErrSlotConflict
		}
		failSpan(span, err)
		return transient("create booking", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a booking by its ID
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	query := `
		SELECT
			id, user_id, venue_id, sport_id, slot_id, slot_time,
			status, full_name, phone, amount, created_at
		FROM bookings
		WHERE id = $1
	`

	booking := &domain.Booking{}
	var status string

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.VenueID,
		&booking.SportID,
		&booking.SlotID,
		&booking.SlotTime,
		&status,
		&booking.FullName,
		&booking.Phone,
		&booking.Amount,
		&booking.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		failSpan(span, err)
		return nil, transient("get booking", err)
	}

	booking.Status = domain.BookingStatus(status)
	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// ExistsConfirmed reports whether a confirmed booking already holds the slot instant
func (r *PostgresBookingRepository) ExistsConfirmed(ctx context.Context, venueID, sportID string, slotTime time.Time) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.exists_confirmed")
	defer span.End()

	span.SetAttributes(
		attribute.String("venue_id", venueID),
		attribute.String("sport_id", sportID),
		attribute.String("slot_time", slotTime.Format(time.RFC3339)),
	)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE venue_id = $1 AND sport_id = $2 AND slot_time = $3 AND status = 'confirmed'
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, venueID, sportID, slotTime).Scan(&exists); err != nil {
		failSpan(span, err)
		return false, transient("check booking", err)
	}

	span.SetAttributes(attribute.Bool("booked", exists))
	span.SetStatus(codes.Ok, "")
	return exists, nil
}
