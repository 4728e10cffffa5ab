package store

import (
	"context"
	"database/sql"

	"bead-inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// ListCategories returns the user's pattern categories, oldest first.
func (s *Store) ListCategories(ctx context.Context, userID int64) ([]models.PatternCategory, error) {
	rows := []models.PatternCategory{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, created_at
		FROM user_pattern_categories
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`, userID)
	return rows, err
}

// CountCategories returns how many categories the user owns.
func (s *Store) CountCategories(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(1) FROM user_pattern_categories WHERE user_id = $1", userID)
	return n, err
}

// GetCategoryByName returns the category with that name, nil when absent.
func (s *Store) GetCategoryByName(ctx context.Context, userID int64, name string) (*models.PatternCategory, error) {
	var c models.PatternCategory
	err := s.db.GetContext(ctx, &c, `
		SELECT id, user_id, name, created_at
		FROM user_pattern_categories
		WHERE user_id = $1 AND name = $2
		LIMIT 1`, userID, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCategory returns the category by id, nil when absent.
func (s *Store) GetCategory(ctx context.Context, userID, id int64) (*models.PatternCategory, error) {
	var c models.PatternCategory
	err := s.db.GetContext(ctx, &c, `
		SELECT id, user_id, name, created_at
		FROM user_pattern_categories
		WHERE user_id = $1 AND id = $2
		LIMIT 1`, userID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CategoriesExist verifies every id belongs to the user.
func (s *Store) CategoriesExist(ctx context.Context, userID int64, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	query, args, err := sqlx.In(
		"SELECT COUNT(DISTINCT id) FROM user_pattern_categories WHERE user_id = ? AND id IN (?)",
		userID, ids)
	if err != nil {
		return false, err
	}
	var n int64
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(query), args...); err != nil {
		return false, err
	}
	uniq := make(map[int64]bool, len(ids))
	for _, id := range ids {
		uniq[id] = true
	}
	return n == int64(len(uniq)), nil
}

// CreateCategory inserts a new category and returns its id.
func (s *Store) CreateCategory(ctx context.Context, userID int64, name string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO user_pattern_categories (user_id, name)
		VALUES ($1, $2)
		RETURNING id`, userID, name)
	return id, err
}

// RenameCategory updates the category name.
func (s *Store) RenameCategory(ctx context.Context, userID, id int64, name string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE user_pattern_categories SET name = $1 WHERE user_id = $2 AND id = $3",
		name, userID, id)
	return err
}

// DeleteCategoryTx removes the category, nulling out references from
// history rows and queued patterns first. Returns false when it did not
// exist.
func DeleteCategoryTx(tx *sqlx.Tx, userID, id int64) (bool, error) {
	if _, err := tx.Exec(
		"UPDATE user_history SET pattern_category_id = NULL WHERE user_id = $1 AND pattern_category_id = $2",
		userID, id); err != nil {
		return false, err
	}
	if _, err := tx.Exec(
		"UPDATE user_todo_patterns SET pattern_category_id = NULL WHERE user_id = $1 AND pattern_category_id = $2",
		userID, id); err != nil {
		return false, err
	}
	res, err := tx.Exec(
		"DELETE FROM user_pattern_categories WHERE user_id = $1 AND id = $2", userID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
