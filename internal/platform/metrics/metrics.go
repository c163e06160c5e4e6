// Package metrics 定义了引擎的Prometheus指标，通过 /metrics 暴露。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fitlog"

var (
	// TransactionsTotal 按结果统计聚合事务
	// result: committed, exhausted, failed
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_total",
		Help:      "Aggregate transactions by result",
	}, []string{"result"})

	// TransactionRetries 统计因冲突或可重试错误而重跑的次数
	TransactionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transaction_retries_total",
		Help:      "Transaction attempts restarted after a conflict",
	})

	TransactionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transaction_duration_seconds",
		Help:      "Wall time of ExecuteTransaction including retries",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	// EntriesTotal 统计日志条目操作
	// kind: food, exercise; op: append, duplicate, remove, remove_missing
	EntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entries_total",
		Help:      "Log entry operations by kind and outcome",
	}, []string{"kind", "op"})

	// SnapshotSkipped 统计因资料行缺失而跳过的今日快照写入
	SnapshotSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "today_snapshot_skipped_total",
		Help:      "Today snapshot updates skipped because the profile row is missing",
	})

	// LedgerClamps 统计被截断到已有总分的积分写入
	LedgerClamps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_total_clamped_total",
		Help:      "SetLedger calls whose proposed total was below the stored total",
	})

	// StreakRepairs 统计从历史重算连续打卡的次数
	// source: api, scheduler, cli
	StreakRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "streak_recomputes_total",
		Help:      "Streak records rebuilt from daily points history",
	}, []string{"source"})

	// CacheRequests 统计今日快照缓存命中情况
	// result: hit, miss, error, stale_set
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_cache_requests_total",
		Help:      "Today snapshot cache lookups",
	}, []string{"result"})
)
