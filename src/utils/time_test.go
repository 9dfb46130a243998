package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUniqueKey(t *testing.T) {
	key := FormatUniqueKey(1700000000123)
	assert.Equal(t, "2023-11-14 22:13:20.123", key)

	parsed, err := ParseUniqueKey(key)
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), parsed)
}

func TestUniqueKeyOrdering(t *testing.T) {
	// lexicographic order must follow chronological order
	earlier := FormatUniqueKey(1700000000000)
	later := FormatUniqueKey(1700000000001)
	assert.Less(t, earlier, later)
}
