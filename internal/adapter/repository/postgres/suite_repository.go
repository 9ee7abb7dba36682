package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
)

const suiteColumns = `id, location_id, name, is_available, is_operational,
	has_shower, has_bidet, has_heated_seat, has_vanity, max_occupancy,
	sample_inventory, version`

type suiteRow struct {
	domain.Suite
	Samples pq.StringArray `db:"sample_inventory"`
}

func (r suiteRow) toDomain() domain.Suite {
	s := r.Suite
	s.SampleInventory = []string(r.Samples)
	return s
}

type SuiteRepository struct {
	db *sqlx.DB
}

func NewSuiteRepository(db *sqlx.DB) *SuiteRepository {
	return &SuiteRepository{db: db}
}

func (r *SuiteRepository) GetByID(ctx context.Context, suiteID uuid.UUID) (*domain.Suite, error) {
	query := `SELECT ` + suiteColumns + ` FROM suites WHERE id = $1`

	var row suiteRow
	if err := r.db.GetContext(ctx, &row, query, suiteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	suite := row.toDomain()
	return &suite, nil
}

func (r *SuiteRepository) ListAvailableByLocation(ctx context.Context, locationID uuid.UUID) ([]domain.Suite, error) {
	query := `
	SELECT ` + suiteColumns + `
	FROM suites
	WHERE location_id = $1 AND is_available = TRUE AND is_operational = TRUE
	ORDER BY name ASC
	`
	return r.list(ctx, query, locationID)
}

func (r *SuiteRepository) ListUnavailable(ctx context.Context) ([]domain.Suite, error) {
	query := `SELECT ` + suiteColumns + ` FROM suites WHERE is_available = FALSE`
	return r.list(ctx, query)
}

func (r *SuiteRepository) list(ctx context.Context, query string, args ...any) ([]domain.Suite, error) {
	var rows []suiteRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	suites := make([]domain.Suite, 0, len(rows))
	for _, row := range rows {
		suites = append(suites, row.toDomain())
	}
	return suites, nil
}

// Reserve flips is_available in a single conditional update; a zero row count means
// another booking got there first.
func (r *SuiteRepository) Reserve(ctx context.Context, suiteID uuid.UUID) error {
	query := `
	UPDATE suites
	SET is_available = FALSE,
		version = version + 1
	WHERE id = $1 AND is_available = TRUE
	`

	result, err := r.db.ExecContext(ctx, query, suiteID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrAlreadyReserved
	}

	return nil
}

func (r *SuiteRepository) Release(ctx context.Context, suiteID uuid.UUID) error {
	query := `
	UPDATE suites
	SET is_available = TRUE,
		version = version + 1
	WHERE id = $1 AND is_available = FALSE
	`

	_, err := r.db.ExecContext(ctx, query, suiteID)

	return err
}

type LocationRepository struct {
	db *sqlx.DB
}

func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) GetByID(ctx context.Context, locationID uuid.UUID) (*domain.Location, error) {
	query := `SELECT id, name, timezone, opening_hour, closing_hour FROM locations WHERE id = $1`

	var location domain.Location
	if err := r.db.GetContext(ctx, &location, query, locationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &location, nil
}
