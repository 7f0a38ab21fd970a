package checkout

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderNumberFormat(t *testing.T) {
	at := time.Date(2025, 9, 1, 10, 30, 0, 0, time.UTC)

	number, err := newOrderNumber(at)
	require.NoError(t, err)

	parts := strings.Split(number, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "KC", parts[0])
	assert.Equal(t, "20250901", parts[1])
	assert.Len(t, parts[2], 6)
	for _, r := range parts[2] {
		assert.Contains(t, numberAlphabet, string(r))
	}
}

func TestOrderNumbersVary(t *testing.T) {
	at := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		number, err := newOrderNumber(at)
		require.NoError(t, err)
		seen[number] = true
	}
	assert.Greater(t, len(seen), 1)
}
