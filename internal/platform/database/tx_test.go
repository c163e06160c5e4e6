package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/Sound58he4/studio-sub000/internal/platform/database/dbtest"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type counter struct {
	ID      string `gorm:"primaryKey"`
	Value   int64
	Version int64
}

func newRunner(t *testing.T, attempts int) (*gorm.DB, *database.TxRunner) {
	db := dbtest.Open(t, &counter{})
	return db, database.NewTxRunner(db, attempts, zap.NewNop(), database.WithBackoff(0, 0))
}

func TestExecuteTransactionCommits(t *testing.T) {
	db, runner := newRunner(t, 3)

	err := runner.ExecuteTransaction(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&counter{ID: "a", Value: 1}).Error
	})
	require.NoError(t, err)

	var c counter
	require.NoError(t, db.First(&c, "id = ?", "a").Error)
	assert.EqualValues(t, 1, c.Value)
}

func TestExecuteTransactionRetriesConflict(t *testing.T) {
	db, runner := newRunner(t, 3)
	require.NoError(t, db.Create(&counter{ID: "a"}).Error)

	calls := 0
	err := runner.ExecuteTransaction(context.Background(), func(tx *gorm.DB) error {
		calls++
		if calls == 1 {
			return database.ErrConflict
		}
		return database.UpdateVersioned(tx, &counter{}, 0, map[string]any{"value": 7}, "id = ?", "a")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	var c counter
	require.NoError(t, db.First(&c, "id = ?", "a").Error)
	assert.EqualValues(t, 7, c.Value)
	assert.EqualValues(t, 1, c.Version)
}

func TestExecuteTransactionExhaustionCommitsNothing(t *testing.T) {
	db, runner := newRunner(t, 4)

	calls := 0
	err := runner.ExecuteTransaction(context.Background(), func(tx *gorm.DB) error {
		calls++
		if err := tx.Create(&counter{ID: fmt.Sprintf("row-%d", calls)}).Error; err != nil {
			return err
		}
		return database.ErrConflict
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.TransactionConflict))
	assert.ErrorIs(t, err, database.ErrConflict)
	assert.Equal(t, 4, calls)

	var count int64
	require.NoError(t, db.Model(&counter{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestExecuteTransactionDoesNotRetryAppErrors(t *testing.T) {
	_, runner := newRunner(t, 5)

	calls := 0
	err := runner.ExecuteTransaction(context.Background(), func(tx *gorm.DB) error {
		calls++
		return apperror.New(apperror.InvalidArgument, "test", "bad input")
	})
	assert.True(t, apperror.Is(err, apperror.InvalidArgument))
	assert.Equal(t, 1, calls)
}

func TestExecuteTransactionCancelledContext(t *testing.T) {
	db := dbtest.Open(t, &counter{})
	runner := database.NewTxRunner(db, 5, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := runner.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		calls++
		cancel()
		return database.ErrConflict
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestUpdateVersionedStaleVersion(t *testing.T) {
	db, _ := newRunner(t, 1)
	require.NoError(t, db.Create(&counter{ID: "a", Version: 3}).Error)

	err := database.UpdateVersioned(db, &counter{}, 2, map[string]any{"value": 1}, "id = ?", "a")
	assert.ErrorIs(t, err, database.ErrConflict)

	err = database.UpdateVersioned(db, &counter{}, 3, map[string]any{"value": 1}, "id = ?", "a")
	require.NoError(t, err)

	var c counter
	require.NoError(t, db.First(&c, "id = ?", "a").Error)
	assert.EqualValues(t, 4, c.Version)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conflict", database.ErrConflict, true},
		{"wrapped conflict", fmt.Errorf("写入汇总: %w", database.ErrConflict), true},
		{"duplicate key", gorm.ErrDuplicatedKey, true},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, true},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"pg syntax", &pgconn.PgError{Code: "42601"}, false},
		{"app error", apperror.New(apperror.NotFound, "op", "missing"), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, database.IsRetryableError(tt.err))
		})
	}
}

func TestStatus(t *testing.T) {
	var nilStatus *database.Status
	assert.False(t, nilStatus.IsRedisHealthy())

	s := database.NewStatus(true)
	assert.True(t, s.IsRedisHealthy())
	assert.False(t, s.UpdateRedis(true))
	assert.True(t, s.UpdateRedis(false))
	assert.False(t, s.IsRedisHealthy())
}
