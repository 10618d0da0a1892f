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

// PostgresCatalogRepository implements CatalogRepository using PostgreSQL with pgxpool
type PostgresCatalogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalogRepository creates a new PostgresCatalogRepository
func NewPostgresCatalogRepository(pool *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{pool: pool}
}

// GetVenue retrieves a venue by ID
func (r *PostgresCatalogRepository) GetVenue(ctx context.Context, id string) (*domain.Venue, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.catalog.get_venue")
	defer span.End()

	span.SetAttributes(attribute.String("venue_id", id))

	venue := &domain.Venue{}
	var address *string
	err := r.pool.QueryRow(ctx, `SELECT id, name, address FROM venues WHERE id = $1`, id).
		Scan(&venue.ID, &venue.Name, &address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrVenueNotFound
		}
		failSpan(span, err)
		return nil, transient("get venue", err)
	}
	if address != nil {
		venue.Address = *address
	}

	span.SetStatus(codes.Ok, "")
	return venue, nil
}

// GetSport retrieves a sport by ID
func (r *PostgresCatalogRepository) GetSport(ctx context.Context, id string) (*domain.Sport, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.catalog.get_sport")
	defer span.End()

	span.SetAttributes(attribute.String("sport_id", id))

	sport := &domain.Sport{}
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM sports WHERE id = $1`, id).Scan(&sport.ID, &sport.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrSportNotFound
		}
		failSpan(span, err)
		return nil, transient("get sport", err)
	}

	span.SetStatus(codes.Ok, "")
	return sport, nil
}

// ListPricingRules returns every pricing rule of a venue in insertion order
func (r *PostgresCatalogRepository) ListPricingRules(ctx context.Context, venueID string) ([]domain.PricingRule, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.catalog.list_pricing_rules")
	defer span.End()

	span.SetAttributes(attribute.String("venue_id", venueID))

	query := `
		SELECT id, venue_id, sport_id, day, session, price
		FROM pricing_rules
		WHERE venue_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, venueID)
	if err != nil {
		failSpan(span, err)
		return nil, transient("list pricing rules", err)
	}
	defer rows.Close()

	rules := make([]domain.PricingRule, 0)
	for rows.Next() {
		var (
			rule    domain.PricingRule
			sportID *string
			session string
		)
		if err := rows.Scan(&rule.ID, &rule.VenueID, &sportID, &rule.Day, &session, &rule.Price); err != nil {
			failSpan(span, err)
			return nil, transient("scan pricing rule", err)
		}
		if sportID != nil {
			rule.SportID = *sportID
		}
		rule.Session = domain.Session(session)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		failSpan(span, err)
		return nil, transient("iterate pricing rules", err)
	}

	span.SetAttributes(attribute.Int("rule_count", len(rules)))
	span.SetStatus(codes.Ok, "")
	return rules, nil
}
