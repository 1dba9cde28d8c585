package market

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Store archives applied catalog snapshots
type Store struct {
	db *sql.DB
}

// NewStore creates a new snapshot store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveSnapshot stores the price of every asset of a snapshot in one transaction
func (s *Store) SaveSnapshot(ctx context.Context, catalog []Asset, recordedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO asset_prices (ticker, price, change_percent, recorded_at)
		VALUES ($1, $2, $3, $4)
	`

	for _, a := range catalog {
		if _, err := tx.ExecContext(ctx, query, a.Ticker, a.Price, a.ChangePercent, recordedAt); err != nil {
			return fmt.Errorf("save price for %s: %w", a.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	log.Debug().Int("assets", len(catalog)).Time("recorded_at", recordedAt).Msg("Archived snapshot")
	return nil
}

// LatestRecordedAt returns the time of the most recent archived snapshot
func (s *Store) LatestRecordedAt(ctx context.Context) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var latest sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT MAX(recorded_at) FROM asset_prices`).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest snapshot: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, fmt.Errorf("no archived snapshots")
	}

	return latest.Time, nil
}

// GetHistory retrieves the most recent archived prices for a ticker, oldest first
func (s *Store) GetHistory(ctx context.Context, ticker string, limit int) ([]PricePoint, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT recorded_at, price FROM (
			SELECT recorded_at, price
			FROM asset_prices
			WHERE ticker = $1
			ORDER BY recorded_at DESC
			LIMIT $2
		) recent
		ORDER BY recorded_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.Time, &p.Price); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return points, nil
}
