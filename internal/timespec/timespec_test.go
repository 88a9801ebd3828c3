package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	ms, err := Parse("90m", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-90*time.Minute).UnixMilli(), ms)

	ms, err = Parse("2026-03-01T06:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC).UnixMilli(), ms)

	for _, bad := range []string{"", "yesterday", "-1h"} {
		_, err := Parse(bad, now)
		assert.Error(t, err, bad)
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("2h", "1h", now)
	require.NoError(t, err)
	assert.True(t, r.Contains(now.Add(-90*time.Minute).UnixMilli()))
	assert.False(t, r.Contains(now.Add(-3*time.Hour).UnixMilli()))
	assert.False(t, r.Contains(now.UnixMilli()))

	open, err := ParseRange("", "", now)
	require.NoError(t, err)
	assert.True(t, open.Contains(0))

	_, err = ParseRange("1h", "2h", now)
	assert.ErrorContains(t, err, "--since must be before --until")

	_, err = ParseRange("soon", "", now)
	assert.ErrorContains(t, err, "invalid --since")
}
