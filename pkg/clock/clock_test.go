package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateKeyUsesClockLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	c := NewFixed(time.Date(2024, 3, 10, 1, 0, 0, 0, loc))

	// 2024-03-09 17:30 UTC 在 UTC+8 已经是 3月10日
	event := time.Date(2024, 3, 9, 17, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-10", DateKey(c, event))
	assert.Equal(t, "2024-03-10", Today(c))
}

func TestDaysBetween(t *testing.T) {
	n, err := DaysBetween("2024-02-28", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = DaysBetween("2024-03-01", "2024-02-28")
	require.NoError(t, err)
	assert.Equal(t, -2, n)

	_, err = DaysBetween("2024-13-01", "2024-03-01")
	assert.Error(t, err)
}

func TestAddDaysAndWeekday(t *testing.T) {
	d, err := AddDays("2024-12-31", 1)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", d)

	wd, err := Weekday("2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, wd)
}

func TestFixedAddDays(t *testing.T) {
	c := NewFixed(time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC))
	c.AddDays(1)
	assert.Equal(t, "2024-02-01", Today(c))
}
