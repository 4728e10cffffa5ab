package service

import (
	"strings"

	"bead-inventory-service/internal/models"
	"bead-inventory-service/internal/store"
)

const (
	// MaxBatchItems caps one logical mutation.
	MaxBatchItems = 500

	maxPatternLen = 64
	maxURLLen     = 512
	maxSourceLen  = 32

	// DefaultPageSize and MaxPageSize bound record-group listing.
	DefaultPageSize = 30
	MaxPageSize     = 200
)

// normCode canonicalises a color code: trimmed, upper-cased.
func normCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// normText trims and truncates an optional text field, collapsing empty
// strings to nil.
func normText(v *string, max int) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	if len(s) > max {
		s = s[:max]
	}
	return &s
}

// ItemQty is one (code, qty) input line.
type ItemQty struct {
	Code string `json:"code" binding:"required"`
	Qty  int64  `json:"qty" binding:"required"`
}

// mergeItemQtys validates and merges input lines into a per-code quantity
// map, summing duplicate codes.
func mergeItemQtys(items []ItemQty) (map[string]int64, error) {
	merged := make(map[string]int64, len(items))
	for _, it := range items {
		code := normCode(it.Code)
		if code == "" {
			return nil, ErrMissingCode
		}
		if it.Qty <= 0 {
			return nil, ErrInvalidQty
		}
		merged[code] += it.Qty
	}
	if len(merged) == 0 {
		return nil, ErrEmptyItems
	}
	return merged, nil
}

// signedDelta maps an operation type onto the ledger sign: consuming
// beads lowers the balance, restocking raises it.
func signedDelta(htype string, qty int64) int64 {
	if htype == models.HistoryTypeConsume {
		return -qty
	}
	return qty
}

// computeEditDeltas diffs the old group aggregate against the requested
// one. Only the net per-code change is applied: for a consume group,
// raising a quantity removes more inventory, so the ledger delta is the
// negated diff. Codes with zero diff are skipped.
func computeEditDeltas(oldAgg, newAgg map[string]int64, htype string) map[string]int64 {
	deltas := make(map[string]int64)
	for code, newQty := range newAgg {
		diff := newQty - oldAgg[code]
		if diff == 0 {
			continue
		}
		deltas[code] = signedDelta(htype, diff)
	}
	for code, oldQty := range oldAgg {
		if _, seen := newAgg[code]; seen {
			continue
		}
		deltas[code] = signedDelta(htype, -oldQty)
	}
	return deltas
}

// inverseDeltas undoes a group: deleting a consume batch returns its
// quantities to the ledger, deleting a restock batch takes them back out.
func inverseDeltas(agg map[string]int64, htype string) map[string]int64 {
	deltas := make(map[string]int64, len(agg))
	for code, qty := range agg {
		deltas[code] = -signedDelta(htype, qty)
	}
	return deltas
}

// groupLabels are the free-form fields shared by every row of a group.
type groupLabels struct {
	Pattern    *string
	PatternURL *string
	PatternKey *string
	CategoryID *int64
	Source     *string
}

// labelOverrides carries the explicitly-present label fields of an edit
// request. A nil Has* means the field was absent and the prior value must
// be preserved.
type labelOverrides struct {
	Pattern       *string
	HasPattern    bool
	PatternURL    *string
	HasPatternURL bool
	PatternKey    *string
	HasPatternKey bool
	CategoryID    *int64
	HasCategoryID bool
}

// resolveGroupLabels merges an edit's label overrides over the group's
// current labels. Restock groups never carry labels beyond the pattern
// name; consume-only fields stay nil for them.
func resolveGroupLabels(snap *store.GroupSnapshot, ov labelOverrides, htype string) groupLabels {
	labels := groupLabels{
		Pattern:    normText(snap.Pattern, maxPatternLen),
		PatternURL: normText(snap.PatternURL, maxURLLen),
		PatternKey: normText(snap.PatternKey, maxURLLen),
		CategoryID: snap.CategoryID,
		Source:     normText(snap.Source, maxSourceLen),
	}
	if htype != models.HistoryTypeConsume {
		labels.CategoryID = nil
		return labels
	}
	if ov.HasPattern {
		labels.Pattern = normText(ov.Pattern, maxPatternLen)
	}
	if ov.HasPatternURL {
		labels.PatternURL = normText(ov.PatternURL, maxURLLen)
	}
	if ov.HasPatternKey {
		labels.PatternKey = normText(ov.PatternKey, maxURLLen)
	}
	if ov.HasCategoryID {
		labels.CategoryID = ov.CategoryID
	}
	return labels
}

// replacementRows builds the reinserted history rows for an edited group,
// carrying over the identity fields (created_at, batch_id, source) so the
// group keeps its gid. Deterministic code order.
func replacementRows(snap *store.GroupSnapshot, newAgg map[string]int64, labels groupLabels, htype string) []store.NewHistoryRow {
	createdAt := snap.CreatedAt
	var batchID *string
	if snap.Ref.Kind == models.GroupRefBatch {
		batchID = &snap.Ref.BatchID
	}

	rows := make([]store.NewHistoryRow, 0, len(newAgg))
	for _, d := range store.SortedDeltas(newAgg) {
		rows = append(rows, store.NewHistoryRow{
			Code:       d.Code,
			Type:       htype,
			Qty:        d.Delta,
			Pattern:    labels.Pattern,
			PatternURL: labels.PatternURL,
			PatternKey: labels.PatternKey,
			CategoryID: labels.CategoryID,
			Source:     labels.Source,
			BatchID:    batchID,
			CreatedAt:  &createdAt,
		})
	}
	return rows
}
