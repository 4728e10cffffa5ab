package store

import (
	"context"
	"database/sql"

	"bead-inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateTodoPattern inserts a queued pattern and returns its id.
func (s *Store) CreateTodoPattern(ctx context.Context, t *models.TodoPattern) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO user_todo_patterns
			(user_id, pattern, pattern_url, pattern_key, pattern_category_id, items_json, total_qty)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		t.UserID, t.Pattern, t.PatternURL, t.PatternKey, t.CategoryID, t.ItemsJSON, t.TotalQty)
	return id, err
}

// ListTodoPatterns returns the user's queued patterns, newest first,
// optionally narrowed to one category.
func (s *Store) ListTodoPatterns(ctx context.Context, userID int64, categoryID *int64) ([]models.TodoPattern, error) {
	rows := []models.TodoPattern{}
	if categoryID != nil {
		err := s.db.SelectContext(ctx, &rows, `
			SELECT id, user_id, pattern, pattern_url, pattern_key, pattern_category_id, items_json, total_qty, created_at
			FROM user_todo_patterns
			WHERE user_id = $1 AND pattern_category_id = $2
			ORDER BY created_at DESC, id DESC`, userID, *categoryID)
		return rows, err
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, pattern, pattern_url, pattern_key, pattern_category_id, items_json, total_qty, created_at
		FROM user_todo_patterns
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	return rows, err
}

// GetTodoPattern returns one queued pattern, nil when absent.
func (s *Store) GetTodoPattern(ctx context.Context, userID, id int64) (*models.TodoPattern, error) {
	var t models.TodoPattern
	err := s.db.GetContext(ctx, &t, `
		SELECT id, user_id, pattern, pattern_url, pattern_key, pattern_category_id, items_json, total_qty, created_at
		FROM user_todo_patterns
		WHERE user_id = $1 AND id = $2
		LIMIT 1`, userID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTodoPattern replaces the queued pattern's fields.
func (s *Store) UpdateTodoPattern(ctx context.Context, t *models.TodoPattern) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_todo_patterns
		SET pattern = $1, pattern_url = $2, pattern_key = $3,
		    pattern_category_id = $4, items_json = $5, total_qty = $6
		WHERE user_id = $7 AND id = $8`,
		t.Pattern, t.PatternURL, t.PatternKey, t.CategoryID, t.ItemsJSON, t.TotalQty,
		t.UserID, t.ID)
	return err
}

// DeleteTodoPattern removes a queued pattern outside a transaction.
func (s *Store) DeleteTodoPattern(ctx context.Context, userID, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM user_todo_patterns WHERE user_id = $1 AND id = $2", userID, id)
	return err
}

// DeleteTodoPatternTx removes a queued pattern as part of the completion
// transaction.
func DeleteTodoPatternTx(tx *sqlx.Tx, userID, id int64) error {
	_, err := tx.Exec(
		"DELETE FROM user_todo_patterns WHERE user_id = $1 AND id = $2", userID, id)
	return err
}
