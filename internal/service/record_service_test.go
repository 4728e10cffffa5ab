package service

import (
	"context"
	"fmt"
	"testing"

	"bead-inventory-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int { return &n }

// Validation failures must reject before any store access, so these run
// against an empty service.
func TestListGroupsValidation(t *testing.T) {
	svc := &RecordService{}
	ctx := context.Background()

	t.Run("missing type is rejected", func(t *testing.T) {
		_, err := svc.ListGroups(ctx, 1, ListGroupsParams{})
		assert.Equal(t, ErrInvalidType, err)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		_, err := svc.ListGroups(ctx, 1, ListGroupsParams{Type: "swap"})
		assert.Equal(t, ErrInvalidType, err)
	})

	t.Run("explicit zero limit is rejected, not defaulted", func(t *testing.T) {
		_, err := svc.ListGroups(ctx, 1, ListGroupsParams{
			Type: models.HistoryTypeConsume, Limit: intp(0)})
		assert.Equal(t, ErrInvalidLimit, err)
	})

	t.Run("limit outside range is rejected", func(t *testing.T) {
		for _, n := range []int{-1, 201} {
			_, err := svc.ListGroups(ctx, 1, ListGroupsParams{
				Type: models.HistoryTypeConsume, Limit: intp(n)})
			assert.Equal(t, ErrInvalidLimit, err, "limit %d", n)
		}
	})

	t.Run("malformed cursor is rejected", func(t *testing.T) {
		_, err := svc.ListGroups(ctx, 1, ListGroupsParams{
			Type: models.HistoryTypeConsume, Cursor: "junk"})
		assert.Equal(t, ErrInvalidCursor, err)
	})

	t.Run("non-positive category is rejected", func(t *testing.T) {
		catID := int64(0)
		_, err := svc.ListGroups(ctx, 1, ListGroupsParams{
			Type: models.HistoryTypeConsume, CategoryID: &catID})
		assert.Equal(t, ErrInvalidCategory, err)
	})
}

func TestGroupOpsRejectMissingType(t *testing.T) {
	svc := &RecordService{}
	ctx := context.Background()

	_, err := svc.GroupDetail(ctx, 1, "b:bh_x_y", "")
	assert.Equal(t, ErrInvalidType, err)

	err = svc.UpdateGroup(ctx, 1, &UpdateGroupRequest{
		GID: "b:bh_x_y", Items: []ItemQty{{Code: "A", Qty: 1}}})
	assert.Equal(t, ErrInvalidType, err)

	err = svc.DeleteGroup(ctx, 1, "b:bh_x_y", "")
	assert.Equal(t, ErrInvalidType, err)
}

func TestBuildGroupPage(t *testing.T) {
	mkGroups := func(n int) []models.RecordGroup {
		groups := make([]models.RecordGroup, n)
		for i := range groups {
			groups[i] = models.RecordGroup{
				GID:   fmt.Sprintf("i:%d", 100-i),
				Ts:    int64(1700000000000 - i),
				MaxID: int64(100 - i),
			}
		}
		return groups
	}

	t.Run("overfetched row is trimmed and yields a cursor", func(t *testing.T) {
		page := buildGroupPage(mkGroups(4), 3)

		require.Len(t, page.Data, 3)
		assert.True(t, page.HasMore)
		require.NotNil(t, page.NextCursor)
		// The cursor points at the last row that survived the trim.
		assert.Equal(t, "1699999999998:98", *page.NextCursor)
	})

	t.Run("exactly limit rows means last page", func(t *testing.T) {
		page := buildGroupPage(mkGroups(3), 3)

		assert.Len(t, page.Data, 3)
		assert.False(t, page.HasMore)
		assert.Nil(t, page.NextCursor)
	})

	t.Run("empty result", func(t *testing.T) {
		page := buildGroupPage(nil, 30)

		assert.Empty(t, page.Data)
		assert.False(t, page.HasMore)
		assert.Nil(t, page.NextCursor)
	})
}
