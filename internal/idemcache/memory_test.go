package idemcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(maxSize int) (*Memory, *time.Time) {
	m := NewMemory(0, maxSize)
	now := time.Unix(1700000000, 0)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemoryGetSet(t *testing.T) {
	m, _ := newTestMemory(0)
	ctx := context.Background()

	_, ok, err := m.Get(ctx, "1:tok")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "1:tok", []byte(`{"ok":true}`)))

	payload, ok, err := m.Get(ctx, "1:tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"ok":true}`), payload)
}

func TestMemoryExpiry(t *testing.T) {
	m, now := newTestMemory(0)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "1:tok", []byte("x")))

	*now = now.Add(119 * time.Second)
	_, ok, _ := m.Get(ctx, "1:tok")
	assert.True(t, ok)

	*now = now.Add(2 * time.Second)
	_, ok, _ = m.Get(ctx, "1:tok")
	assert.False(t, ok)
}

func TestMemoryEvictsOldestOverCapacity(t *testing.T) {
	m, now := newTestMemory(3)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		*now = now.Add(time.Second)
		require.NoError(t, m.Set(ctx, fmt.Sprintf("1:k%d", i), []byte("x")))
	}

	// The earliest entry is gone, the rest survive.
	_, ok, _ := m.Get(ctx, "1:k0")
	assert.False(t, ok)
	for i := 1; i < 4; i++ {
		_, ok, _ := m.Get(ctx, fmt.Sprintf("1:k%d", i))
		assert.True(t, ok, "entry k%d should survive", i)
	}
}

func TestMemorySweepPrefersExpired(t *testing.T) {
	m, now := newTestMemory(2)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "1:old", []byte("x")))
	*now = now.Add(121 * time.Second)
	require.NoError(t, m.Set(ctx, "1:a", []byte("x")))
	require.NoError(t, m.Set(ctx, "1:b", []byte("x")))

	// The expired entry absorbed the overflow; fresh ones stay.
	_, ok, _ := m.Get(ctx, "1:a")
	assert.True(t, ok)
	_, ok, _ = m.Get(ctx, "1:b")
	assert.True(t, ok)
}

func TestMemoryDropPrefix(t *testing.T) {
	m, _ := newTestMemory(0)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "7:tok", []byte("x")))
	require.NoError(t, m.Set(ctx, "7:hash:abc", []byte("x")))
	require.NoError(t, m.Set(ctx, "70:tok", []byte("x")))

	require.NoError(t, m.DropPrefix(ctx, UserPrefix(7)))

	_, ok, _ := m.Get(ctx, "7:tok")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "7:hash:abc")
	assert.False(t, ok)
	// User 70 shares a digit prefix but not the key prefix.
	_, ok, _ = m.Get(ctx, "70:tok")
	assert.True(t, ok)
}

func TestKeyDerivation(t *testing.T) {
	t.Run("token keys are user scoped", func(t *testing.T) {
		assert.Equal(t, "5:abc", KeyFromToken(5, "abc"))
		assert.Equal(t, "", KeyFromToken(5, ""))
	})

	t.Run("long tokens are truncated", func(t *testing.T) {
		long := make([]byte, 200)
		for i := range long {
			long[i] = 'a'
		}
		key := KeyFromToken(5, string(long))
		assert.Len(t, key, len("5:")+MaxKeyTokenLen)
	})

	t.Run("body keys are stable", func(t *testing.T) {
		k1 := KeyFromBody(5, []byte(`{"items":[]}`))
		k2 := KeyFromBody(5, []byte(`{"items":[]}`))
		k3 := KeyFromBody(5, []byte(`{"items":[1]}`))
		assert.Equal(t, k1, k2)
		assert.NotEqual(t, k1, k3)
		assert.Contains(t, k1, ":hash:")
	})
}
