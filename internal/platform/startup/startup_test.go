package startup

import (
	"context"
	"testing"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/entry"
	"github.com/Sound58he4/studio-sub000/internal/platform/config"
	"github.com/Sound58he4/studio-sub000/internal/platform/database/dbtest"
	"github.com/Sound58he4/studio-sub000/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitializeApplicationCreatesTables(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, InitializeApplication(db, zap.NewNop()))
	// 重复迁移不报错
	require.NoError(t, InitializeApplication(db, zap.NewNop()))

	for _, table := range []string{
		"metadata", "profiles", "log_entries", "daily_summaries",
		"points_ledgers", "streak_records", "daily_points_records", "streak_repair_marks",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestNewAppWithoutRedis(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, InitializeApplication(db, zap.NewNop()))

	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", MaxRetries: 3},
		Streak:   config.StreakConfig{Threshold: 10, BadgeEvery: 7},
	}
	clk := clock.NewFixed(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	app := NewApp(cfg, db, nil, clk, zap.NewNop())

	assert.Nil(t, app.SnapshotCache)
	assert.False(t, app.RedisStatus.IsRedisHealthy())
	assert.NoError(t, app.HandleRedisRecovery(context.Background()))

	ctx := context.Background()
	_, err := app.Profiles.EnsureProfile(ctx, "u1", "")
	require.NoError(t, err)
	_, err = app.Entries.AppendEntry(ctx, "u1", entry.AppendRequest{
		Kind:      entry.KindFood,
		Calories:  120,
		EventTime: clk.Now(),
	})
	require.NoError(t, err)

	snap, err := app.Summaries.GetTodaySnapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 120.0, snap.Totals.Calories)
}
