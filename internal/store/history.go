package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"bead-inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// NewHistoryRow is one log row to append. CreatedAt is nil for fresh
// appends (the database stamps NOW()); reinserted rows carry the original
// timestamp so the group's identity survives the edit.
type NewHistoryRow struct {
	Code       string
	Type       string
	Qty        int64
	Pattern    *string
	PatternURL *string
	PatternKey *string
	CategoryID *int64
	Source     *string
	BatchID    *string
	CreatedAt  *time.Time
}

// InsertHistoryTx bulk-inserts log rows in one statement.
func InsertHistoryTx(tx *sqlx.Tx, userID int64, rows []NewHistoryRow) error {
	if len(rows) == 0 {
		return nil
	}

	var b strings.Builder
	args := make([]interface{}, 0, len(rows)*11)
	b.WriteString(`INSERT INTO user_history
		(user_id, code, htype, qty, pattern, pattern_url, pattern_key, pattern_category_id, source, batch_id, created_at)
		VALUES `)
	for i, r := range rows {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?,?,?,?,?,?,?,?,?,?,COALESCE(?, NOW()))")
		args = append(args, userID, r.Code, r.Type, r.Qty, r.Pattern, r.PatternURL,
			r.PatternKey, r.CategoryID, r.Source, r.BatchID, r.CreatedAt)
	}

	_, err := tx.Exec(tx.Rebind(b.String()), args...)
	return err
}

// GroupSnapshot is a resolved group: the key fields that match its member
// rows plus the base label fields preserved across an edit.
type GroupSnapshot struct {
	Ref       models.GroupRef
	CreatedAt time.Time

	// Matching keys for inferred groups (COALESCE'd tuple values).
	PatternNameKey string
	SourceKey      string
	CategoryKey    int64

	// Base label fields, kept unless the edit request replaces them.
	Pattern    *string
	PatternURL *string
	PatternKey *string
	CategoryID *int64
	Source     *string
}

// rowsClause renders the member-row predicate for the snapshot, appended
// after "user_id = ? AND htype = ?". '?' bindvars, rebind before use.
func (g *GroupSnapshot) rowsClause() (string, []interface{}) {
	if g.Ref.Kind == models.GroupRefBatch {
		return " AND batch_id = ?", []interface{}{g.Ref.BatchID}
	}
	return " AND batch_id IS NULL AND created_at = ?" +
			" AND COALESCE(pattern,'') = ? AND COALESCE(source,'') = ?" +
			" AND COALESCE(pattern_category_id,0) = ?",
		[]interface{}{g.CreatedAt, g.PatternNameKey, g.SourceKey, g.CategoryKey}
}

type batchBaseRow struct {
	CreatedAt  *time.Time `db:"created_at"`
	Pattern    *string    `db:"pattern"`
	PatternURL *string    `db:"pattern_url"`
	PatternKey *string    `db:"pattern_key"`
	Source     *string    `db:"source"`
	CategoryID *int64     `db:"pattern_category_id"`
}

type anchorRow struct {
	CreatedAt   time.Time `db:"created_at"`
	PatternName string    `db:"pattern_name"`
	PatternURL  string    `db:"pattern_url"`
	PatternKey  string    `db:"pattern_key"`
	Source      string    `db:"source"`
	CategoryKey int64     `db:"category_key"`
}

// ResolveGroup loads the snapshot for a group ref, nil when the group no
// longer resolves to any rows. Works on the pool or inside a transaction.
func ResolveGroup(ctx context.Context, ext sqlx.ExtContext, userID int64, ref models.GroupRef, htype string) (*GroupSnapshot, error) {
	if ref.Kind == models.GroupRefBatch {
		var base batchBaseRow
		err := sqlx.GetContext(ctx, ext, &base, ext.Rebind(`
			SELECT MAX(created_at) AS created_at,
			       MAX(pattern) AS pattern,
			       MAX(pattern_url) AS pattern_url,
			       MAX(pattern_key) AS pattern_key,
			       MAX(source) AS source,
			       MAX(pattern_category_id) AS pattern_category_id
			FROM user_history
			WHERE user_id = ? AND htype = ? AND batch_id = ?`),
			userID, htype, ref.BatchID)
		if err != nil {
			return nil, err
		}
		if base.CreatedAt == nil {
			return nil, nil
		}
		var categoryKey int64
		if base.CategoryID != nil {
			categoryKey = *base.CategoryID
		}
		return &GroupSnapshot{
			Ref:            ref,
			CreatedAt:      *base.CreatedAt,
			PatternNameKey: deref(base.Pattern),
			SourceKey:      deref(base.Source),
			CategoryKey:    categoryKey,
			Pattern:        base.Pattern,
			PatternURL:     base.PatternURL,
			PatternKey:     base.PatternKey,
			CategoryID:     base.CategoryID,
			Source:         base.Source,
		}, nil
	}

	var a anchorRow
	err := sqlx.GetContext(ctx, ext, &a, ext.Rebind(`
		SELECT created_at,
		       COALESCE(pattern,'') AS pattern_name,
		       COALESCE(pattern_url,'') AS pattern_url,
		       COALESCE(pattern_key,'') AS pattern_key,
		       COALESCE(source,'') AS source,
		       COALESCE(pattern_category_id,0) AS category_key
		FROM user_history
		WHERE user_id = ? AND id = ? AND htype = ?
		LIMIT 1`),
		userID, ref.AnchorID, htype)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snap := &GroupSnapshot{
		Ref:            ref,
		CreatedAt:      a.CreatedAt,
		PatternNameKey: a.PatternName,
		SourceKey:      a.Source,
		CategoryKey:    a.CategoryKey,
	}
	if a.PatternName != "" {
		snap.Pattern = &a.PatternName
	}
	if a.PatternURL != "" {
		snap.PatternURL = &a.PatternURL
	}
	if a.PatternKey != "" {
		snap.PatternKey = &a.PatternKey
	}
	if a.Source != "" {
		snap.Source = &a.Source
	}
	if a.CategoryKey > 0 {
		k := a.CategoryKey
		snap.CategoryID = &k
	}
	return snap, nil
}

// AggregateGroup sums the member rows per code.
func AggregateGroup(ctx context.Context, ext sqlx.ExtContext, userID int64, htype string, snap *GroupSnapshot) (map[string]int64, error) {
	clause, clauseArgs := snap.rowsClause()
	args := append([]interface{}{userID, htype}, clauseArgs...)

	type line struct {
		Code string `db:"code"`
		Qty  int64  `db:"qty"`
	}
	var rows []line
	err := sqlx.SelectContext(ctx, ext, &rows, ext.Rebind(
		"SELECT code, SUM(qty) AS qty FROM user_history WHERE user_id = ? AND htype = ?"+
			clause+" GROUP BY code"), args...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Code] = r.Qty
	}
	return out, nil
}

// DeleteGroupRowsTx removes every member row of the group.
func DeleteGroupRowsTx(tx *sqlx.Tx, userID int64, htype string, snap *GroupSnapshot) error {
	clause, clauseArgs := snap.rowsClause()
	args := append([]interface{}{userID, htype}, clauseArgs...)
	_, err := tx.Exec(tx.Rebind(
		"DELETE FROM user_history WHERE user_id = ? AND htype = ?"+clause), args...)
	return err
}

// GroupDetail aggregates the group's rows by code, joined with the palette
// hex, largest quantity first with the code as a deterministic tie-break.
func (s *Store) GroupDetail(ctx context.Context, userID int64, htype string, snap *GroupSnapshot) ([]models.GroupLine, error) {
	clause, clauseArgs := snap.rowsClause()
	args := append([]interface{}{userID, htype}, clauseArgs...)

	lines := []models.GroupLine{}
	err := s.db.SelectContext(ctx, &lines, s.db.Rebind(`
		SELECT h.code, SUM(h.qty) AS qty, MAX(p.hex) AS hex
		FROM user_history h
		LEFT JOIN palette p ON p.code = h.code
		WHERE h.user_id = ? AND h.htype = ?`+clause+`
		GROUP BY h.code
		ORDER BY qty DESC, h.code ASC`), args...)
	return lines, err
}

// GroupFilter narrows the record-group listing.
type GroupFilter struct {
	OnlyWithPattern bool
	CategoryID      *int64
}

// buildGroupListQuery renders the union of the two group derivations:
// explicit batches and inferred tuples of unbatched rows, newest first.
// '?' bindvars, rebind before use.
func buildGroupListQuery(userID int64, htype string, filter GroupFilter, cursor *models.Cursor, limit int) (string, []interface{}) {
	patternClause := ""
	categoryClause := ""
	if filter.OnlyWithPattern {
		patternClause = " AND pattern IS NOT NULL AND pattern <> ''"
	}
	if filter.CategoryID != nil {
		categoryClause = " AND pattern_category_id = ?"
	}

	sub := func(gidExpr, batchCond, groupBy string) string {
		return `SELECT ` + gidExpr + ` AS gid,
		       (EXTRACT(EPOCH FROM MAX(created_at)) * 1000)::BIGINT AS ts,
		       MAX(pattern) AS pattern,
		       MAX(pattern_url) AS pattern_url,
		       MAX(pattern_key) AS pattern_key,
		       MAX(pattern_category_id) AS pattern_category_id,
		       SUM(qty) AS total,
		       MAX(id) AS max_id
		FROM user_history
		WHERE user_id = ? AND htype = ? AND ` + batchCond + patternClause + categoryClause + `
		GROUP BY ` + groupBy
	}

	var b strings.Builder
	args := []interface{}{}

	appendSubArgs := func() {
		args = append(args, userID, htype)
		if filter.CategoryID != nil {
			args = append(args, *filter.CategoryID)
		}
	}

	b.WriteString("SELECT gid, ts, pattern, pattern_url, pattern_key, pattern_category_id, total, max_id FROM (")
	b.WriteString(sub("'b:' || batch_id", "batch_id IS NOT NULL", "batch_id"))
	appendSubArgs()
	b.WriteString(" UNION ALL ")
	b.WriteString(sub("'i:' || MIN(id)::TEXT", "batch_id IS NULL",
		"created_at, COALESCE(pattern,''), COALESCE(source,''), COALESCE(pattern_category_id,0)"))
	appendSubArgs()
	b.WriteString(") t")

	if cursor != nil {
		b.WriteString(" WHERE (t.ts < ?) OR (t.ts = ? AND t.max_id < ?)")
		args = append(args, cursor.Ts, cursor.Ts, cursor.MaxID)
	}
	b.WriteString(" ORDER BY t.ts DESC, t.max_id DESC LIMIT ?")
	args = append(args, limit)

	return b.String(), args
}

// ListGroups returns up to limit derived record groups, newest first,
// using the keyset cursor when present.
func (s *Store) ListGroups(ctx context.Context, userID int64, htype string, filter GroupFilter, cursor *models.Cursor, limit int) ([]models.RecordGroup, error) {
	query, args := buildGroupListQuery(userID, htype, filter, cursor, limit)

	groups := []models.RecordGroup{}
	err := s.db.SelectContext(ctx, &groups, s.db.Rebind(query), args...)
	return groups, err
}

// HistoryRows returns the latest raw log rows for one code.
func (s *Store) HistoryRows(ctx context.Context, userID int64, code string, limit int) ([]models.HistoryViewRow, error) {
	rows := []models.HistoryViewRow{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT (EXTRACT(EPOCH FROM created_at) * 1000)::BIGINT AS ts,
		       htype, qty, pattern, pattern_url, pattern_key, source
		FROM user_history
		WHERE user_id = $1 AND code = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, userID, code, limit)
	return rows, err
}

// HistoryTotals returns lifetime consume/restock sums for one code.
func (s *Store) HistoryTotals(ctx context.Context, userID int64, code string) (consume, restock int64, err error) {
	var totals struct {
		Consume int64 `db:"total_consume"`
		Restock int64 `db:"total_restock"`
	}
	err = s.db.GetContext(ctx, &totals, `
		SELECT COALESCE(SUM(CASE WHEN htype = 'consume' THEN qty ELSE 0 END), 0) AS total_consume,
		       COALESCE(SUM(CASE WHEN htype = 'restock' THEN qty ELSE 0 END), 0) AS total_restock
		FROM user_history
		WHERE user_id = $1 AND code = $2`, userID, code)
	return totals.Consume, totals.Restock, err
}

// ConsumeStats returns per-code consumed totals, largest first.
func (s *Store) ConsumeStats(ctx context.Context, userID int64) ([]models.ConsumeStat, error) {
	stats := []models.ConsumeStat{}
	err := s.db.SelectContext(ctx, &stats, `
		SELECT h.code, SUM(h.qty) AS qty, MAX(p.hex) AS hex
		FROM user_history h
		LEFT JOIN palette p ON p.code = h.code
		WHERE h.user_id = $1 AND h.htype = 'consume'
		GROUP BY h.code
		HAVING SUM(h.qty) > 0
		ORDER BY qty DESC, h.code ASC`, userID)
	return stats, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
