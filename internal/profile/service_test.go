package profile

import (
	"context"
	"testing"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/nutrition"
	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/Sound58he4/studio-sub000/internal/platform/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureProfile(t *testing.T) {
	db := dbtest.Open(t, &Profile{})
	svc := NewService(db, zap.NewNop())
	ctx := context.Background()

	p, err := svc.EnsureProfile(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Empty(t, p.TodayDate)

	// 再次调用不会重复创建，只更新显示名
	p, err = svc.EnsureProfile(ctx, "u1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.DisplayName)

	var count int64
	require.NoError(t, db.Model(&Profile{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	_, err = svc.EnsureProfile(ctx, " ", "")
	assert.True(t, apperror.Is(err, apperror.InvalidArgument))
}

func TestGetProfileNotFound(t *testing.T) {
	db := dbtest.Open(t, &Profile{})
	svc := NewService(db, zap.NewNop())

	_, err := svc.GetProfile(context.Background(), "ghost")
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestApplyTodayDelta(t *testing.T) {
	db := dbtest.Open(t, &Profile{})
	svc := NewService(db, zap.NewNop())
	_, err := svc.EnsureProfile(context.Background(), "u1", "")
	require.NoError(t, err)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	p, err := Find(db, "u1")
	require.NoError(t, err)

	// 快照从未写过，用当天汇总对齐
	day := nutrition.Totals{Calories: 300, FoodEntries: 1, EntryCount: 1}
	require.NoError(t, ApplyTodayDelta(db, p, "2026-10-15", day, day, now))

	// 同一天继续累加 delta，dayTotals 被忽略
	delta := nutrition.Totals{Calories: 200, FoodEntries: 1, EntryCount: 1}
	require.NoError(t, ApplyTodayDelta(db, p, "2026-10-15", delta, nutrition.Totals{Calories: 9999}, now))

	stored, err := Find(db, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", stored.TodayDate)
	assert.Equal(t, 500.0, stored.Today.Calories)
	assert.EqualValues(t, 2, stored.Today.EntryCount)
	require.NotNil(t, stored.TodayUpdatedAt)

	// 跨天后第一次写入整体覆盖为新一天的汇总
	next := nutrition.Totals{Calories: 80, FoodEntries: 1, EntryCount: 1}
	require.NoError(t, ApplyTodayDelta(db, stored, "2026-10-16", next, next, now.AddDate(0, 0, 1)))
	stored, err = Find(db, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", stored.TodayDate)
	assert.Equal(t, 80.0, stored.Today.Calories)

	snap := stored.Snapshot("2026-10-17")
	assert.True(t, snap.Stale)
}

func TestSetTodayStaleVersion(t *testing.T) {
	db := dbtest.Open(t, &Profile{})
	svc := NewService(db, zap.NewNop())
	_, err := svc.EnsureProfile(context.Background(), "u1", "")
	require.NoError(t, err)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	a, err := Find(db, "u1")
	require.NoError(t, err)
	b, err := Find(db, "u1")
	require.NoError(t, err)

	require.NoError(t, SetToday(db, a, "2026-10-15", nutrition.Totals{Calories: 1}, now))
	err = SetToday(db, b, "2026-10-15", nutrition.Totals{Calories: 2}, now)
	assert.ErrorIs(t, err, database.ErrConflict)

	stored, err := Find(db, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, stored.Today.Calories)
}
