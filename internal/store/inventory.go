package store

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"bead-inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CodeDelta is one signed ledger adjustment for a color code.
type CodeDelta struct {
	Code  string
	Delta int64
}

// SortedDeltas flattens a per-code delta map into a code-ordered slice so
// generated SQL and event payloads are deterministic.
func SortedDeltas(byCode map[string]int64) []CodeDelta {
	out := make([]CodeDelta, 0, len(byCode))
	for code, delta := range byCode {
		out = append(out, CodeDelta{Code: code, Delta: delta})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// buildQtyCaseUpdate renders the single-statement ledger update applying
// every delta at once, keyed by code. Placeholders are generated, never
// interpolated; the query uses '?' bindvars and must be rebound for the
// driver before execution.
func buildQtyCaseUpdate(userID int64, deltas []CodeDelta) (string, []interface{}) {
	var b strings.Builder
	args := make([]interface{}, 0, len(deltas)*3+1)

	b.WriteString("UPDATE user_inventory SET qty = qty + CASE code")
	for _, d := range deltas {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, d.Code, d.Delta)
	}
	b.WriteString(" ELSE 0 END, updated_at = NOW() WHERE user_id = ? AND code IN (")
	args = append(args, userID)
	for i, d := range deltas {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, d.Code)
	}
	b.WriteString(")")
	return b.String(), args
}

// ApplyDeltasTx applies all per-code deltas in one UPDATE. Rows must
// already exist (EnsureDefaultRowsTx handles default codes; non-default
// codes are validated upstream). Quantities are never clamped.
func ApplyDeltasTx(tx *sqlx.Tx, userID int64, deltas []CodeDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	query, args := buildQtyCaseUpdate(userID, deltas)
	_, err := tx.Exec(tx.Rebind(query), args...)
	return err
}

// EnsureDefaultRowsTx creates zero-qty inventory rows for any default
// palette codes in the set the user has not touched yet. Idempotent.
func EnsureDefaultRowsTx(tx *sqlx.Tx, userID int64, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`
		INSERT INTO user_inventory (user_id, code, qty, hex)
		SELECT ?, p.code, 0, p.hex
		FROM palette p
		WHERE p.is_default AND p.code IN (?)
		ON CONFLICT (user_id, code) DO NOTHING`, userID, codes)
	if err != nil {
		return err
	}
	_, err = tx.Exec(tx.Rebind(query), args...)
	return err
}

// EnsureUserDefaults seeds the full default palette for a user (zero qty),
// skipping codes the user explicitly removed.
func (s *Store) EnsureUserDefaults(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_inventory (user_id, code, qty, hex)
		SELECT $1, p.code, 0, p.hex
		FROM palette p
		LEFT JOIN user_removed_codes r ON r.user_id = $1 AND r.code = p.code
		WHERE p.is_default AND r.code IS NULL
		ON CONFLICT (user_id, code) DO NOTHING`, userID)
	return err
}

// ListInventory returns the user's full inventory joined with palette data.
func (s *Store) ListInventory(ctx context.Context, userID int64) ([]models.InventoryItem, error) {
	rows := []models.InventoryItem{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT ui.code,
		       COALESCE(p.hex, ui.hex) AS hex,
		       ui.qty,
		       COALESCE(p.series, '') AS series,
		       COALESCE(p.is_default, FALSE) AS is_default
		FROM user_inventory ui
		LEFT JOIN palette p ON p.code = ui.code
		WHERE ui.user_id = $1
		ORDER BY ui.code`, userID)
	return rows, err
}

// GetQty returns the current balance for one code, zero when no row exists.
func (s *Store) GetQty(ctx context.Context, userID int64, code string) (int64, error) {
	var qty int64
	err := s.db.GetContext(ctx, &qty,
		"SELECT qty FROM user_inventory WHERE user_id = $1 AND code = $2", userID, code)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return qty, err
}

// AddColorTx inserts a zero-qty row for an explicitly added code and
// clears any removed flag. Returns false when the row already exists.
func AddColorTx(tx *sqlx.Tx, userID int64, code, hex string) (bool, error) {
	res, err := tx.Exec(`
		INSERT INTO user_inventory (user_id, code, qty, hex)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (user_id, code) DO NOTHING`, userID, code, hex)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	_, err = tx.Exec(
		"DELETE FROM user_removed_codes WHERE user_id = $1 AND code = $2", userID, code)
	return true, err
}

// RemoveColorTx purges the code's history and inventory row and marks it
// removed so later mutations cannot silently resurrect it.
func RemoveColorTx(tx *sqlx.Tx, userID int64, code string) error {
	if _, err := tx.Exec(
		"DELETE FROM user_history WHERE user_id = $1 AND code = $2", userID, code); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"DELETE FROM user_inventory WHERE user_id = $1 AND code = $2", userID, code); err != nil {
		return err
	}
	_, err := tx.Exec(`
		INSERT INTO user_removed_codes (user_id, code, removed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, code) DO UPDATE SET removed_at = NOW()`, userID, code)
	return err
}

// AddSeries provisions zero-qty rows for every code of a non-default
// series, skipping codes the user removed.
func (s *Store) AddSeries(ctx context.Context, userID int64, series string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_inventory (user_id, code, qty, hex)
		SELECT $1, p.code, 0, p.hex
		FROM palette p
		LEFT JOIN user_removed_codes r ON r.user_id = $1 AND r.code = p.code
		WHERE p.series = $2 AND NOT p.is_default AND r.code IS NULL
		ON CONFLICT (user_id, code) DO NOTHING`, userID, series)
	return err
}

// RemoveSeriesTx drops a non-default series: its history rows first, then
// its inventory rows.
func RemoveSeriesTx(tx *sqlx.Tx, userID int64, series string) error {
	if _, err := tx.Exec(`
		DELETE FROM user_history h
		USING palette p
		WHERE h.code = p.code AND h.user_id = $1 AND p.series = $2 AND NOT p.is_default`,
		userID, series); err != nil {
		return err
	}
	_, err := tx.Exec(`
		DELETE FROM user_inventory ui
		USING palette p
		WHERE ui.code = p.code AND ui.user_id = $1 AND p.series = $2 AND NOT p.is_default`,
		userID, series)
	return err
}

// ResetAllTx zeroes every default quantity, drops non-default rows and
// purges the history log and queued patterns, as one transaction.
func ResetAllTx(tx *sqlx.Tx, userID int64) error {
	if _, err := tx.Exec(
		"UPDATE user_inventory SET qty = 0, updated_at = NOW() WHERE user_id = $1", userID); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"DELETE FROM user_history WHERE user_id = $1", userID); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"DELETE FROM user_todo_patterns WHERE user_id = $1", userID); err != nil {
		return err
	}
	_, err := tx.Exec(`
		DELETE FROM user_inventory ui
		USING palette p
		WHERE ui.code = p.code AND ui.user_id = $1 AND NOT p.is_default`, userID)
	return err
}
