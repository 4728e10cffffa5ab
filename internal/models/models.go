package models

import "time"

// PaletteColor is a row of the global reference palette. Codes outside the
// default set belong to named series that users must add explicitly.
type PaletteColor struct {
	Code      string `db:"code" json:"code"`
	Hex       string `db:"hex" json:"hex"`
	Series    string `db:"series" json:"series"`
	IsDefault bool   `db:"is_default" json:"isDefault"`
}

// InventoryRow is the per-(user, code) quantity ledger. Qty is signed and
// never clamped; a negative balance means the user owes beads.
type InventoryRow struct {
	UserID    int64     `db:"user_id" json:"-"`
	Code      string    `db:"code" json:"code"`
	Qty       int64     `db:"qty" json:"qty"`
	Hex       string    `db:"hex" json:"hex"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// InventoryItem is the inventory listing shape, joined with palette data.
type InventoryItem struct {
	Code      string `db:"code" json:"code"`
	Hex       string `db:"hex" json:"hex"`
	Qty       int64  `db:"qty" json:"qty"`
	Series    string `db:"series" json:"series"`
	IsDefault bool   `db:"is_default" json:"isDefault"`
}

// History entry types
const (
	HistoryTypeConsume = "consume"
	HistoryTypeRestock = "restock"
)

// ValidHistoryType reports whether t is a known operation type.
func ValidHistoryType(t string) bool {
	return t == HistoryTypeConsume || t == HistoryTypeRestock
}

// HistoryEntry is one append-only log row. Rows sharing a batch ID belong
// to one logical user action; rows without one are grouped later by the
// (created_at, pattern, source, category) tuple.
type HistoryEntry struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"-"`
	Code       string    `db:"code" json:"code"`
	Type       string    `db:"htype" json:"type"`
	Qty        int64     `db:"qty" json:"qty"`
	Pattern    *string   `db:"pattern" json:"pattern"`
	PatternURL *string   `db:"pattern_url" json:"patternUrl"`
	PatternKey *string   `db:"pattern_key" json:"patternKey"`
	CategoryID *int64    `db:"pattern_category_id" json:"patternCategoryId"`
	Source     *string   `db:"source" json:"source"`
	BatchID    *string   `db:"batch_id" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"-"`
}

// RecordGroup is a derived logical record: one batch, or one inferred
// tuple of unbatched rows. It is never stored.
type RecordGroup struct {
	GID        string  `db:"gid" json:"gid"`
	Ts         int64   `db:"ts" json:"ts"`
	Pattern    *string `db:"pattern" json:"pattern"`
	PatternURL *string `db:"pattern_url" json:"patternUrl"`
	PatternKey *string `db:"pattern_key" json:"patternKey"`
	CategoryID *int64  `db:"pattern_category_id" json:"patternCategoryId"`
	Total      int64   `db:"total" json:"total"`
	MaxID      int64   `db:"max_id" json:"-"`
}

// GroupLine is one aggregated code inside a record group detail.
type GroupLine struct {
	Code string  `db:"code" json:"code"`
	Qty  int64   `db:"qty" json:"qty"`
	Hex  *string `db:"hex" json:"hex"`
}

// PatternCategory is a per-user label bucket for consume records.
type PatternCategory struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// TodoItem is one (code, qty) line of a queued pattern.
type TodoItem struct {
	Code string `json:"code"`
	Qty  int64  `json:"qty"`
}

// TodoPattern is a queued pattern awaiting consumption. Its item list is a
// single JSON blob; completing it converts the items into one consume
// batch and deletes the row.
type TodoPattern struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"-"`
	Pattern    *string   `db:"pattern" json:"pattern"`
	PatternURL string    `db:"pattern_url" json:"patternUrl"`
	PatternKey *string   `db:"pattern_key" json:"patternKey"`
	CategoryID *int64    `db:"pattern_category_id" json:"patternCategoryId"`
	ItemsJSON  string    `db:"items_json" json:"-"`
	TotalQty   int64     `db:"total_qty" json:"total"`
	CreatedAt  time.Time `db:"created_at" json:"-"`
}

// ConsumeStat is a per-code consumed total.
type ConsumeStat struct {
	Code string  `db:"code" json:"code"`
	Qty  int64   `db:"qty" json:"qty"`
	Hex  *string `db:"hex" json:"hex"`
}

// HistoryView is the per-code history response: current balance, lifetime
// totals and the latest raw rows.
type HistoryView struct {
	Remain       int64            `json:"remain"`
	TotalConsume int64            `json:"totalConsume"`
	TotalRestock int64            `json:"totalRestock"`
	Rows         []HistoryViewRow `json:"data"`
}

// HistoryViewRow is one raw log row in the per-code view.
type HistoryViewRow struct {
	Ts         int64   `db:"ts" json:"ts"`
	Type       string  `db:"htype" json:"type"`
	Qty        int64   `db:"qty" json:"qty"`
	Pattern    *string `db:"pattern" json:"pattern"`
	PatternURL *string `db:"pattern_url" json:"patternUrl"`
	PatternKey *string `db:"pattern_key" json:"patternKey"`
	Source     *string `db:"source" json:"source"`
}
