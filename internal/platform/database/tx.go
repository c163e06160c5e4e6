package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/platform/metrics"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrConflict 表示带版本号的更新没有命中任何行，即读取之后有其他事务修改了该行
var ErrConflict = errors.New("乐观并发冲突: 行版本已变化")

// TxFunc 是在一次事务中执行的读-改-写逻辑。
// 它可能被执行多次，因此除了通过 tx 访问数据库之外不能有其他副作用。
type TxFunc func(tx *gorm.DB) error

// Transactor 是引擎唯一依赖的事务原语：原子地执行 fn，冲突时自动有限次重试。
type Transactor interface {
	ExecuteTransaction(ctx context.Context, fn TxFunc) error
}

// TxRunner 是基于 gorm 的 Transactor 实现
type TxRunner struct {
	db           *gorm.DB
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	logger       *zap.Logger
}

// TxOption 调整 TxRunner 的重试参数
type TxOption func(*TxRunner)

// WithBackoff 设置重试之间的退避时间，initial 为0时不休眠
func WithBackoff(initial, max time.Duration) TxOption {
	return func(r *TxRunner) {
		r.initialDelay = initial
		r.maxDelay = max
	}
}

// NewTxRunner 创建一个最多尝试 maxAttempts 次的事务执行器
func NewTxRunner(db *gorm.DB, maxAttempts int, logger *zap.Logger, opts ...TxOption) *TxRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &TxRunner{
		db:           db,
		maxAttempts:  maxAttempts,
		initialDelay: 8 * time.Millisecond,
		maxDelay:     200 * time.Millisecond,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ExecuteTransaction 在事务中执行 fn。
// 冲突或可重试的驱动错误会让整个事务从头重跑；重试耗尽后返回
// TransactionConflict，此时没有任何写入被提交。其他错误原样返回。
func (r *TxRunner) ExecuteTransaction(ctx context.Context, fn TxFunc) error {
	start := time.Now()
	defer func() { metrics.TransactionDuration.Observe(time.Since(start).Seconds()) }()

	delay := r.initialDelay
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		lastErr = r.db.WithContext(ctx).Transaction(fn)
		if lastErr == nil {
			metrics.TransactionsTotal.WithLabelValues("committed").Inc()
			return nil
		}
		if !IsRetryableError(lastErr) {
			metrics.TransactionsTotal.WithLabelValues("failed").Inc()
			return lastErr
		}
		if attempt == r.maxAttempts {
			break
		}

		metrics.TransactionRetries.Inc()
		r.logger.Debug("事务冲突，准备重试",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr))
		if err := sleepContext(ctx, delay); err != nil {
			metrics.TransactionsTotal.WithLabelValues("failed").Inc()
			return err
		}
		delay *= 2
		if delay > r.maxDelay {
			delay = r.maxDelay
		}
	}

	metrics.TransactionsTotal.WithLabelValues("exhausted").Inc()
	return &apperror.Error{
		Kind: apperror.TransactionConflict,
		Op:   "database.ExecuteTransaction",
		Msg:  fmt.Sprintf("%d 次尝试后仍然冲突", r.maxAttempts),
		Err:  lastErr,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetryableError 判断一个事务错误是否值得整体重跑
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	// 应用错误（如参数错误）永远不重试
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	// 两个事务同时创建同一行（如同一天的第一条记录）
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// UpdateVersioned 执行带版本号校验的更新（CAS）：
// 只有当行的 version 仍等于读取时的值才写入，并把 version 加一。
// 没有命中任何行时返回 ErrConflict。
func UpdateVersioned(tx *gorm.DB, model any, version int64, columns map[string]any, query string, args ...any) error {
	columns["version"] = version + 1
	res := tx.Model(model).Where(query, args...).Where("version = ?", version).Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}
