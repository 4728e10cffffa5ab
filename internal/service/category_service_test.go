package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormCategoryName(t *testing.T) {
	name, err := normCategoryName("  winter set ")
	require.NoError(t, err)
	assert.Equal(t, "winter set", name)

	_, err = normCategoryName("   ")
	assert.Error(t, err)

	// The limit counts runes, not bytes.
	name, err = normCategoryName("ドット絵パターン")
	require.NoError(t, err)
	assert.Equal(t, "ドット絵パターン", name)

	_, err = normCategoryName("abcdefghijklm")
	assert.Error(t, err)
}
