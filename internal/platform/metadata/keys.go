package metadata

// --- 元数据键 ---
// 这些键用于 metadata 表的 key 列。
const (
	// LastStreakRepairAtKey 记录最近一次连续打卡修复任务成功完成的时间（RFC3339）
	LastStreakRepairAtKey = "last_streak_repair_at"

	// LastStreakRepairCountKey 记录最近一次修复任务处理的用户数
	LastStreakRepairCountKey = "last_streak_repair_count"
)
