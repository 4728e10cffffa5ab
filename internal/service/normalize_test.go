package service

import (
	"encoding/json"
	"testing"
	"time"

	"bead-inventory-service/internal/models"
	"bead-inventory-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func i64p(n int64) *int64   { return &n }

func TestNormCode(t *testing.T) {
	assert.Equal(t, "H01", normCode("  h01 "))
	assert.Equal(t, "", normCode("   "))
}

func TestNormText(t *testing.T) {
	assert.Nil(t, normText(nil, 10))
	assert.Nil(t, normText(strp("   "), 10))
	assert.Equal(t, "owl", *normText(strp(" owl "), 10))
	assert.Equal(t, "abcde", *normText(strp("abcdefgh"), 5))
}

func TestMergeItemQtys(t *testing.T) {
	t.Run("merges duplicate codes", func(t *testing.T) {
		merged, err := mergeItemQtys([]ItemQty{
			{Code: "h01", Qty: 3},
			{Code: "H01", Qty: 2},
			{Code: "S05", Qty: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"H01": 5, "S05": 1}, merged)
	})

	t.Run("rejects bad lines", func(t *testing.T) {
		_, err := mergeItemQtys([]ItemQty{{Code: " ", Qty: 1}})
		assert.Equal(t, ErrMissingCode, err)

		_, err = mergeItemQtys([]ItemQty{{Code: "H01", Qty: 0}})
		assert.Equal(t, ErrInvalidQty, err)

		_, err = mergeItemQtys([]ItemQty{{Code: "H01", Qty: -2}})
		assert.Equal(t, ErrInvalidQty, err)

		_, err = mergeItemQtys(nil)
		assert.Equal(t, ErrEmptyItems, err)
	})
}

func TestSignedDelta(t *testing.T) {
	assert.Equal(t, int64(-4), signedDelta(models.HistoryTypeConsume, 4))
	assert.Equal(t, int64(4), signedDelta(models.HistoryTypeRestock, 4))
}

func TestComputeEditDeltas(t *testing.T) {
	t.Run("consume edit applies the negated diff", func(t *testing.T) {
		oldAgg := map[string]int64{"A": 10, "B": 5}
		newAgg := map[string]int64{"A": 6, "B": 5, "C": 3}

		deltas := computeEditDeltas(oldAgg, newAgg, models.HistoryTypeConsume)

		// A consumed 4 less, so 4 beads return; C now consumes 3 more.
		assert.Equal(t, map[string]int64{"A": 4, "C": -3}, deltas)
	})

	t.Run("restock edit applies the plain diff", func(t *testing.T) {
		deltas := computeEditDeltas(
			map[string]int64{"A": 10},
			map[string]int64{"A": 6, "C": 3},
			models.HistoryTypeRestock)

		assert.Equal(t, map[string]int64{"A": -4, "C": 3}, deltas)
	})

	t.Run("dropped codes are fully reverted", func(t *testing.T) {
		deltas := computeEditDeltas(
			map[string]int64{"A": 10, "B": 5},
			map[string]int64{"A": 10},
			models.HistoryTypeConsume)

		assert.Equal(t, map[string]int64{"B": 5}, deltas)
	})

	t.Run("no change means no deltas", func(t *testing.T) {
		agg := map[string]int64{"A": 10, "B": 5}
		assert.Empty(t, computeEditDeltas(agg, agg, models.HistoryTypeConsume))
	})
}

func TestInverseDeltas(t *testing.T) {
	agg := map[string]int64{"A": 10, "B": 5}

	assert.Equal(t, map[string]int64{"A": 10, "B": 5},
		inverseDeltas(agg, models.HistoryTypeConsume))
	assert.Equal(t, map[string]int64{"A": -10, "B": -5},
		inverseDeltas(agg, models.HistoryTypeRestock))
}

func TestResolveGroupLabels(t *testing.T) {
	snap := &store.GroupSnapshot{
		Pattern:    strp("owl"),
		PatternURL: strp("https://img/owl.png"),
		CategoryID: i64p(2),
		Source:     strp("todo"),
	}

	t.Run("absent fields keep the old values", func(t *testing.T) {
		labels := resolveGroupLabels(snap, labelOverrides{}, models.HistoryTypeConsume)
		assert.Equal(t, "owl", *labels.Pattern)
		assert.Equal(t, "https://img/owl.png", *labels.PatternURL)
		assert.Equal(t, int64(2), *labels.CategoryID)
		assert.Equal(t, "todo", *labels.Source)
	})

	t.Run("present fields replace, explicit null clears", func(t *testing.T) {
		labels := resolveGroupLabels(snap, labelOverrides{
			Pattern:       strp("fox"),
			HasPattern:    true,
			CategoryID:    nil,
			HasCategoryID: true,
		}, models.HistoryTypeConsume)
		assert.Equal(t, "fox", *labels.Pattern)
		assert.Nil(t, labels.CategoryID)
		assert.Equal(t, "https://img/owl.png", *labels.PatternURL)
	})

	t.Run("restock groups never carry a category", func(t *testing.T) {
		labels := resolveGroupLabels(snap, labelOverrides{
			Pattern:    strp("fox"),
			HasPattern: true,
		}, models.HistoryTypeRestock)
		assert.Nil(t, labels.CategoryID)
		// Overrides are consume-only; the base pattern survives.
		assert.Equal(t, "owl", *labels.Pattern)
	})
}

func TestReplacementRowsPreserveIdentity(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("batch group keeps its batch id and timestamp", func(t *testing.T) {
		snap := &store.GroupSnapshot{
			Ref:       models.GroupRef{Kind: models.GroupRefBatch, BatchID: "bh_x_y"},
			CreatedAt: createdAt,
		}
		rows := replacementRows(snap,
			map[string]int64{"B": 2, "A": 6},
			groupLabels{Pattern: strp("owl")},
			models.HistoryTypeConsume)

		require.Len(t, rows, 2)
		assert.Equal(t, "A", rows[0].Code)
		assert.Equal(t, "B", rows[1].Code)
		for _, r := range rows {
			require.NotNil(t, r.BatchID)
			assert.Equal(t, "bh_x_y", *r.BatchID)
			require.NotNil(t, r.CreatedAt)
			assert.Equal(t, createdAt, *r.CreatedAt)
			assert.Equal(t, models.HistoryTypeConsume, r.Type)
			assert.Equal(t, "owl", *r.Pattern)
		}
		assert.Equal(t, int64(6), rows[0].Qty)
		assert.Equal(t, int64(2), rows[1].Qty)
	})

	t.Run("inferred group keeps the timestamp, no batch id", func(t *testing.T) {
		snap := &store.GroupSnapshot{
			Ref:       models.GroupRef{Kind: models.GroupRefInferred, AnchorID: 9},
			CreatedAt: createdAt,
		}
		rows := replacementRows(snap,
			map[string]int64{"A": 1},
			groupLabels{},
			models.HistoryTypeRestock)

		require.Len(t, rows, 1)
		assert.Nil(t, rows[0].BatchID)
		assert.Equal(t, createdAt, *rows[0].CreatedAt)
	})
}

func TestNormalizeBatchItems(t *testing.T) {
	t.Run("item fields fall back to request defaults", func(t *testing.T) {
		rows, categoryIDs, err := normalizeBatchItems(
			[]BatchItem{
				{Code: "h01", Qty: 3},
				{Code: "S05", Qty: 1, Type: models.HistoryTypeRestock},
			},
			AdjustBatchRequest{
				Type:              models.HistoryTypeConsume,
				Pattern:           strp("owl"),
				PatternCategoryID: i64p(2),
			})
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, "H01", rows[0].Code)
		assert.Equal(t, models.HistoryTypeConsume, rows[0].Type)
		assert.Equal(t, "owl", *rows[0].Pattern)
		assert.Equal(t, int64(2), *rows[0].CategoryID)

		// The restock line keeps the pattern but drops the category.
		assert.Equal(t, models.HistoryTypeRestock, rows[1].Type)
		assert.Equal(t, "owl", *rows[1].Pattern)
		assert.Nil(t, rows[1].CategoryID)

		assert.Equal(t, []int64{2}, categoryIDs)
	})

	t.Run("rejects invalid lines", func(t *testing.T) {
		_, _, err := normalizeBatchItems(
			[]BatchItem{{Code: "H01", Qty: 1, Type: "swap"}}, AdjustBatchRequest{})
		assert.Equal(t, ErrInvalidType, err)

		_, _, err = normalizeBatchItems(
			[]BatchItem{{Code: "H01", Qty: 1}}, AdjustBatchRequest{})
		assert.Equal(t, ErrInvalidType, err)

		_, _, err = normalizeBatchItems(
			[]BatchItem{{Code: "H01", Qty: -1, Type: models.HistoryTypeConsume}},
			AdjustBatchRequest{})
		assert.Equal(t, ErrInvalidQty, err)

		_, _, err = normalizeBatchItems(
			[]BatchItem{{Code: "H01", Qty: 1, Type: models.HistoryTypeConsume,
				PatternCategoryID: i64p(0)}},
			AdjustBatchRequest{})
		assert.Equal(t, ErrInvalidCategory, err)
	})
}

func TestUpdateGroupRequestUnmarshal(t *testing.T) {
	t.Run("absent label fields stay unset", func(t *testing.T) {
		var req UpdateGroupRequest
		require.NoError(t, json.Unmarshal(
			[]byte(`{"gid":"b:bh_x_y","items":[{"code":"A","qty":1}]}`), &req))

		assert.False(t, req.HasPattern)
		assert.False(t, req.HasPatternURL)
		assert.False(t, req.HasCategoryID)
	})

	t.Run("explicit null is present but nil", func(t *testing.T) {
		var req UpdateGroupRequest
		require.NoError(t, json.Unmarshal(
			[]byte(`{"gid":"i:9","items":[{"code":"A","qty":1}],"pattern":null,"patternCategoryId":3}`), &req))

		assert.True(t, req.HasPattern)
		assert.Nil(t, req.Pattern)
		assert.True(t, req.HasCategoryID)
		assert.Equal(t, int64(3), *req.PatternCategoryID)
	})
}
