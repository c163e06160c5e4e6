package summary

import (
	"testing"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/nutrition"
	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/Sound58he4/studio-sub000/internal/platform/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func TestApplyDeltaCreatesThenIncrements(t *testing.T) {
	db := dbtest.Open(t, &DailySummary{})
	meal := nutrition.Totals{Calories: 500, Protein: 30, FoodEntries: 1, EntryCount: 1}

	created, err := ApplyDelta(db, nil, "u1", "2026-10-15", meal, testNow)
	require.NoError(t, err)
	assert.EqualValues(t, 0, created.Version)

	existing, err := Find(db, "u1", "2026-10-15")
	require.NoError(t, err)
	require.NotNil(t, existing)

	updated, err := ApplyDelta(db, existing, "u1", "2026-10-15", meal, testNow)
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated.Version)
	assert.Equal(t, 1000.0, updated.Calories)
	assert.EqualValues(t, 2, updated.EntryCount)

	stored, err := Find(db, "u1", "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, updated.Totals, stored.Totals)
}

func TestApplyDeltaStaleRowConflicts(t *testing.T) {
	db := dbtest.Open(t, &DailySummary{})
	delta := nutrition.Totals{Calories: 100, FoodEntries: 1, EntryCount: 1}

	_, err := ApplyDelta(db, nil, "u1", "2026-10-15", delta, testNow)
	require.NoError(t, err)
	stale, err := Find(db, "u1", "2026-10-15")
	require.NoError(t, err)

	_, err = ApplyDelta(db, stale, "u1", "2026-10-15", delta, testNow)
	require.NoError(t, err)

	// 第二次使用同一个旧版本
	_, err = ApplyDelta(db, stale, "u1", "2026-10-15", delta, testNow)
	assert.ErrorIs(t, err, database.ErrConflict)
	assert.True(t, database.IsRetryableError(err))
}

func TestApplyDeltaDuplicateCreateIsRetryable(t *testing.T) {
	db := dbtest.Open(t, &DailySummary{})
	delta := nutrition.Totals{Calories: 100, EntryCount: 1}

	_, err := ApplyDelta(db, nil, "u1", "2026-10-15", delta, testNow)
	require.NoError(t, err)
	_, err = ApplyDelta(db, nil, "u1", "2026-10-15", delta, testNow)
	require.Error(t, err)
	assert.True(t, database.IsRetryableError(err))
}

func TestApplyDeltaAllowsNegativeTotals(t *testing.T) {
	db := dbtest.Open(t, &DailySummary{})

	row, err := ApplyDelta(db, nil, "u1", "2026-10-15", nutrition.Totals{Calories: 100, EntryCount: 1}, testNow)
	require.NoError(t, err)
	row, err = ApplyDelta(db, row, "u1", "2026-10-15", nutrition.Totals{Calories: -250, EntryCount: -1}, testNow)
	require.NoError(t, err)
	assert.Equal(t, -150.0, row.Calories)
	assert.EqualValues(t, 0, row.EntryCount)
}

func TestReplaceAll(t *testing.T) {
	db := dbtest.Open(t, &DailySummary{})
	_, err := ApplyDelta(db, nil, "u1", "2026-10-01", nutrition.Totals{Calories: 1}, testNow)
	require.NoError(t, err)
	_, err = ApplyDelta(db, nil, "u2", "2026-10-01", nutrition.Totals{Calories: 2}, testNow)
	require.NoError(t, err)

	err = ReplaceAll(db, "u1", map[string]nutrition.Totals{
		"2026-10-02": {Calories: 10, EntryCount: 1},
		"2026-10-03": {Calories: 20, EntryCount: 2},
	}, testNow)
	require.NoError(t, err)

	old, err := Find(db, "u1", "2026-10-01")
	require.NoError(t, err)
	assert.Nil(t, old)

	var count int64
	require.NoError(t, db.Model(&DailySummary{}).Where("user_id = ?", "u1").Count(&count).Error)
	assert.EqualValues(t, 2, count)

	other, err := Find(db, "u2", "2026-10-01")
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, 2.0, other.Calories)
}
