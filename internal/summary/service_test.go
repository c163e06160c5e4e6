package summary

import (
	"context"
	"testing"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/nutrition"
	"github.com/Sound58he4/studio-sub000/internal/platform/database/dbtest"
	"github.com/Sound58he4/studio-sub000/internal/profile"
	"github.com/Sound58he4/studio-sub000/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, cache SnapshotCache) (*Service, *gorm.DB, *clock.Fixed) {
	t.Helper()
	db := dbtest.Open(t, &DailySummary{}, &profile.Profile{})
	clk := clock.NewFixed(testNow)
	return NewService(db, clk, cache, zap.NewNop()), db, clk
}

func seed(t *testing.T, db *gorm.DB, userID, date string, calories float64) {
	t.Helper()
	_, err := ApplyDelta(db, nil, userID, date, nutrition.Totals{Calories: calories, FoodEntries: 1, EntryCount: 1}, testNow)
	require.NoError(t, err)
}

func TestGetSummary(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	seed(t, db, "u1", "2026-10-15", 300)
	ctx := context.Background()

	row, err := svc.GetSummary(ctx, "u1", "2026-10-15")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 300.0, row.Calories)

	row, err = svc.GetSummary(ctx, "u1", "2026-10-14")
	require.NoError(t, err)
	assert.Nil(t, row)

	_, err = svc.GetSummary(ctx, "u1", "15/10/2026")
	assert.True(t, apperror.Is(err, apperror.InvalidArgument))

	_, err = svc.GetSummary(ctx, "", "2026-10-15")
	assert.True(t, apperror.Is(err, apperror.InvalidArgument))
}

func TestGetSummaryRange(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	seed(t, db, "u1", "2026-10-03", 3)
	seed(t, db, "u1", "2026-10-01", 1)
	seed(t, db, "u1", "2026-10-09", 9)
	seed(t, db, "u2", "2026-10-02", 2)
	ctx := context.Background()

	rows, err := svc.GetSummaryRange(ctx, "u1", "2026-10-01", "2026-10-05")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-10-01", rows[0].Date)
	assert.Equal(t, "2026-10-03", rows[1].Date)

	rows, err = svc.GetSummaryRange(ctx, "u1", "2026-10-04", "2026-10-04")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = svc.GetSummaryRange(ctx, "u1", "2026-10-05", "2026-10-01")
	assert.True(t, apperror.Is(err, apperror.InvalidArgument))

	_, err = svc.GetSummaryRange(ctx, "u1", "2024-01-01", "2026-10-01")
	assert.True(t, apperror.Is(err, apperror.InvalidArgument))
}

func TestGetWeek(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	seed(t, db, "u1", "2026-10-12", 100)
	seed(t, db, "u1", "2026-10-15", 200)
	seed(t, db, "u1", "2026-10-18", 300)
	seed(t, db, "u1", "2026-10-19", 999)

	view, err := svc.GetWeek(context.Background(), "u1", "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-12", view.Start)
	assert.Equal(t, "2026-10-18", view.End)
	require.Len(t, view.Days, 7)
	assert.Equal(t, "Monday", view.Days[0].Weekday)
	assert.Equal(t, "Sunday", view.Days[6].Weekday)
	assert.Equal(t, 100.0, view.Days[0].Totals.Calories)
	assert.Equal(t, 0.0, view.Days[1].Totals.Calories)
	assert.Equal(t, 200.0, view.Days[3].Totals.Calories)
	assert.Equal(t, 600.0, view.Totals.Calories)
	assert.EqualValues(t, 3, view.Totals.EntryCount)

	// 周日属于同一周
	sunday, err := svc.GetWeek(context.Background(), "u1", "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-12", sunday.Start)
}

func TestGetTodaySnapshot(t *testing.T) {
	svc, db, clk := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.GetTodaySnapshot(ctx, "u1")
	assert.True(t, apperror.Is(err, apperror.NotFound))

	require.NoError(t, db.Create(&profile.Profile{
		UserID:    "u1",
		Today:     nutrition.Totals{Calories: 700, EntryCount: 2},
		TodayDate: "2026-10-15",
	}).Error)

	snap, err := svc.GetTodaySnapshot(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, snap.Stale)
	assert.Equal(t, 700.0, snap.Totals.Calories)

	// 跨天后快照过期，回退到今天的每日汇总，且不写资料行
	clk.AddDays(1)
	seed(t, db, "u1", "2026-10-16", 50)
	snap, err = svc.GetTodaySnapshot(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, snap.Stale)
	assert.Equal(t, "2026-10-16", snap.Date)
	assert.Equal(t, 50.0, snap.Totals.Calories)

	p, err := profile.Find(db, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", p.TodayDate)
	assert.Equal(t, 700.0, p.Today.Calories)
}
