package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prohmpiriya/sport-slots-booker/internal/domain"
	"github.com/prohmpiriya/sport-slots-booker/pkg/telemetry"
)

// PostgresSlotRepository implements SlotRepository using PostgreSQL with pgxpool
type PostgresSlotRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSlotRepository creates a new PostgresSlotRepository
func NewPostgresSlotRepository(pool *pgxpool.Pool) *PostgresSlotRepository {
	return &PostgresSlotRepository{pool: pool}
}

// GetByID retrieves a persisted slot. Date and times come back as text in
// canonical form.
func (r *PostgresSlotRepository) GetByID(ctx context.Context, id string) (*domain.PersistedSlot, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.slot.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("slot_id", id))

	query := `
		SELECT
			id, venue_id, sport_id,
			to_char(date, 'YYYY-MM-DD'),
			to_char(start_time, 'HH24:MI:SS'),
			to_char(end_time, 'HH24:MI:SS'),
			price, available
		FROM slots
		WHERE id = $1
	`

	slot := &domain.PersistedSlot{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&slot.ID,
		&slot.VenueID,
		&slot.SportID,
		&slot.Date,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Price,
		&slot.Available,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrSlotNotFound
		}
		failSpan(span, err)
		return nil, transient("get slot", err)
	}

	span.SetStatus(codes.Ok, "")
	return slot, nil
}

// IsAvailable reads the availability flag of a persisted slot
func (r *PostgresSlotRepository) IsAvailable(ctx context.Context, id string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.slot.is_available")
	defer span.End()

	span.SetAttributes(attribute.String("slot_id", id))

	var available bool
	err := r.pool.QueryRow(ctx, `SELECT available FROM slots WHERE id = $1`, id).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return false, domain.ErrSlotNotFound
		}
		failSpan(span, err)
		return false, transient("check slot", err)
	}

	span.SetAttributes(attribute.Bool("available", available))
	span.SetStatus(codes.Ok, "")
	return available, nil
}

// MarkUnavailable flips available from true to false. A slot that is already
// unavailable is left untouched and reported as success.
func (r *PostgresSlotRepository) MarkUnavailable(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.slot.mark_unavailable")
	defer span.End()

	span.SetAttributes(attribute.String("slot_id", id))

	query := `
		UPDATE slots
		SET available = false, updated_at = NOW()
		WHERE id = $1 AND available = true
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		failSpan(span, err)
		return transient("mark slot unavailable", err)
	}

	if tag.RowsAffected() == 0 {
		// Either the slot is gone or the flag was already flipped
		if _, err := r.IsAvailable(ctx, id); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetAttributes(attribute.Bool("already_unavailable", true))
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
