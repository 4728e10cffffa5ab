package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bead-inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// WithTx runs fn inside a transaction, rolling back on error. All ledger
// and history mutations of one logical request go through here.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// GetPaletteColor retrieves a single palette entry, nil when unknown.
func (s *Store) GetPaletteColor(ctx context.Context, code string) (*models.PaletteColor, error) {
	var p models.PaletteColor
	err := s.db.GetContext(ctx, &p,
		"SELECT code, hex, series, is_default FROM palette WHERE code = $1", code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPaletteColors retrieves palette entries for a set of codes.
func (s *Store) GetPaletteColors(ctx context.Context, codes []string) (map[string]models.PaletteColor, error) {
	out := make(map[string]models.PaletteColor, len(codes))
	if len(codes) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(
		"SELECT code, hex, series, is_default FROM palette WHERE code IN (?)", codes)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var rows []models.PaletteColor
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.Code] = r
	}
	return out, nil
}

// SeriesExists reports whether name is a known non-default palette series.
func (s *Store) SeriesExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM palette WHERE series = $1 AND NOT is_default)", name)
	return exists, err
}

// GetRemovedCodes returns the subset of codes the user has removed.
func (s *Store) GetRemovedCodes(ctx context.Context, userID int64, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(
		"SELECT code FROM user_removed_codes WHERE user_id = ? AND code IN (?)", userID, codes)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var removed []string
	if err := s.db.SelectContext(ctx, &removed, query, args...); err != nil {
		return nil, err
	}
	return removed, nil
}

// HasInventoryRows returns the subset of codes the user already holds an
// inventory row for. Non-default codes must appear here before they can
// be mutated.
func (s *Store) HasInventoryRows(ctx context.Context, userID int64, codes []string) (map[string]bool, error) {
	out := make(map[string]bool, len(codes))
	if len(codes) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(
		"SELECT code FROM user_inventory WHERE user_id = ? AND code IN (?)", userID, codes)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var present []string
	if err := s.db.SelectContext(ctx, &present, query, args...); err != nil {
		return nil, err
	}
	for _, c := range present {
		out[c] = true
	}
	return out, nil
}
