package points

import (
	"context"
	"testing"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/platform/config"
	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/Sound58he4/studio-sub000/internal/platform/database/dbtest"
	"github.com/Sound58he4/studio-sub000/internal/streak"
	"github.com/Sound58he4/studio-sub000/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc    *Service
	streak *streak.Service
	db     *gorm.DB
	clock  *clock.Fixed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t, &PointsLedger{}, &streak.StreakRecord{}, &streak.DailyPointsRecord{}, &streak.RepairMark{})
	clk := clock.NewFixed(time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC))
	runner := database.NewTxRunner(db, 5, zap.NewNop(), database.WithBackoff(0, 0))
	streakSvc := streak.NewService(db, runner, clk, config.StreakConfig{Threshold: 10, BadgeEvery: 7}, zap.NewNop())
	return &fixture{
		svc:    NewService(runner, clk, streakSvc, zap.NewNop()),
		streak: streakSvc,
		db:     db,
		clock:  clk,
	}
}

func TestGetLedgerMissing(t *testing.T) {
	f := newFixture(t)
	l, err := f.svc.GetLedger(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, l)
}

func TestSetLedgerTotalNeverDecreases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var last int64
	for _, proposed := range []int64{100, 50, 150, 0, 149, 400} {
		l, err := f.svc.SetLedger(ctx, "u1", LedgerUpdate{TodayPoints: 1, TotalPoints: proposed})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, l.TotalPoints, last)
		last = l.TotalPoints
	}
	assert.EqualValues(t, 400, last)

	l, err := f.svc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 400, l.TotalPoints)
	assert.Equal(t, "2026-10-15", l.LastUpdatedDate)
}

func TestSetLedgerRollsOverBeforeClamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.clock.AddDays(-1)
	_, err := f.svc.SetLedger(ctx, "u1", LedgerUpdate{TodayPoints: 30, TotalPoints: 100})
	require.NoError(t, err)

	f.clock.AddDays(1)
	l, err := f.svc.SetLedger(ctx, "u1", LedgerUpdate{TodayPoints: 5, TotalPoints: 0})
	require.NoError(t, err)
	assert.EqualValues(t, 130, l.TotalPoints)
	assert.EqualValues(t, 5, l.TodayPoints)
	assert.Equal(t, "2026-10-15", l.LastUpdatedDate)
}

func TestGetLedgerPersistsRollover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.clock.AddDays(-2)
	_, err := f.svc.SetLedger(ctx, "u1", LedgerUpdate{TodayPoints: 20, TotalPoints: 0})
	require.NoError(t, err)
	f.clock.AddDays(2)

	first, err := f.svc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 20, first.TotalPoints)
	assert.EqualValues(t, 0, first.TodayPoints)

	stored, err := findLedger(f.db, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", stored.LastUpdatedDate)
	assert.EqualValues(t, 20, stored.TotalPoints)

	second, err := f.svc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.TotalPoints, second.TotalPoints)
	assert.Equal(t, first.Version, second.Version)
}

func TestSetLedgerValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SetLedger(context.Background(), "u1", LedgerUpdate{TodayPoints: -1})
	assert.True(t, apperror.Is(err, apperror.InvalidArgument))
}

func TestUpdateDailyPointsToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateDailyPoints(ctx, "u1", "2026-10-15", 6))
	require.NoError(t, f.svc.UpdateDailyPoints(ctx, "u1", "2026-10-15", 12))

	l, err := f.svc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.EqualValues(t, 12, l.TodayPoints)
	assert.EqualValues(t, 0, l.TotalPoints)

	v, err := f.streak.GetStreak(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.CurrentStreak)

	var hist []streak.DailyPointsRecord
	require.NoError(t, f.db.Where("user_id = ?", "u1").Find(&hist).Error)
	require.Len(t, hist, 1)
	assert.EqualValues(t, 12, hist[0].Points)
	assert.Equal(t, "Thursday", hist[0].DayOfWeek)

	// 第二天的积分把前一天并入总分
	f.clock.AddDays(1)
	require.NoError(t, f.svc.UpdateDailyPoints(ctx, "u1", "2026-10-16", 15))
	l, err = f.svc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 15, l.TodayPoints)
	assert.EqualValues(t, 12, l.TotalPoints)

	v, err = f.streak.GetStreak(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, v.CurrentStreak)
}

func TestUpdateDailyPointsBackfillMarksRepair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateDailyPoints(ctx, "u1", "2026-10-15", 12))
	require.NoError(t, f.svc.UpdateDailyPoints(ctx, "u1", "2026-10-14", 30))

	l, err := f.svc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 12, l.TodayPoints)
	assert.EqualValues(t, 0, l.TotalPoints)

	// 回填不改变连续打卡，直到修复
	v, err := f.streak.GetStreak(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.CurrentStreak)

	var marks int64
	require.NoError(t, f.db.Model(&streak.RepairMark{}).Where("user_id = ?", "u1").Count(&marks).Error)
	assert.EqualValues(t, 1, marks)

	v, err = f.streak.RecomputeFromHistory(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, v.CurrentStreak)
	assert.EqualValues(t, 2, v.LongestStreak)
}

func TestUpdateDailyPointsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		date   string
		points int64
	}{
		{"missing user", "", "2026-10-15", 1},
		{"bad date", "u1", "2026/10/15", 1},
		{"negative points", "u1", "2026-10-15", -3},
		{"future date", "u1", "2026-10-16", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.UpdateDailyPoints(ctx, tt.userID, tt.date, tt.points)
			assert.True(t, apperror.Is(err, apperror.InvalidArgument), "%v", err)
		})
	}

	l, err := f.svc.GetLedger(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, l)
}
