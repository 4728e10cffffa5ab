package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGroupRef(t *testing.T) {
	t.Run("batch ref", func(t *testing.T) {
		ref, err := ParseGroupRef("b:bh_abc_123456")
		require.NoError(t, err)
		assert.Equal(t, GroupRefBatch, ref.Kind)
		assert.Equal(t, "bh_abc_123456", ref.BatchID)
		assert.Equal(t, "b:bh_abc_123456", ref.String())
	})

	t.Run("inferred ref", func(t *testing.T) {
		ref, err := ParseGroupRef("i:42")
		require.NoError(t, err)
		assert.Equal(t, GroupRefInferred, ref.Kind)
		assert.Equal(t, int64(42), ref.AnchorID)
		assert.Equal(t, "i:42", ref.String())
	})

	t.Run("rejects malformed refs", func(t *testing.T) {
		for _, gid := range []string{"", "b:", "i:", "i:0", "i:-3", "i:abc", "x:1", "42"} {
			_, err := ParseGroupRef(gid)
			assert.Error(t, err, "gid %q should not parse", gid)
		}
	})
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{Ts: 1700000000123, MaxID: 987}

	parsed, err := ParseCursor(c.String())
	require.NoError(t, err)
	assert.Equal(t, c, parsed)
}

func TestParseCursorRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "123", "a:b", "1:2:3", "12:"} {
		_, err := ParseCursor(raw)
		assert.Error(t, err, "cursor %q should not parse", raw)
	}
}

func TestNewBatchID(t *testing.T) {
	id := NewBatchID()
	assert.True(t, strings.HasPrefix(id, "bh_"))
	assert.Len(t, strings.Split(id, "_"), 3)

	// Collisions would merge unrelated mutations into one group.
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		next := NewBatchID()
		assert.False(t, seen[next])
		seen[next] = true
	}
}

func TestValidHistoryType(t *testing.T) {
	assert.True(t, ValidHistoryType(HistoryTypeConsume))
	assert.True(t, ValidHistoryType(HistoryTypeRestock))
	assert.False(t, ValidHistoryType(""))
	assert.False(t, ValidHistoryType("CONSUME"))
	assert.False(t, ValidHistoryType("refund"))
}
