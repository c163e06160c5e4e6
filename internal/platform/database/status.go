package database

import (
	"sync"
)

// Status 负责线程安全地记录Redis缓存的健康状态。
// 缓存只在健康时参与读写，不健康时所有读取直接落到数据库。
type Status struct {
	mu             sync.RWMutex
	isRedisHealthy bool
}

// NewStatus 创建状态管理器，healthy 是启动时的初始状态
func NewStatus(healthy bool) *Status {
	return &Status{isRedisHealthy: healthy}
}

// IsRedisHealthy 返回当前Redis的健康状态。nil 视为不健康。
func (s *Status) IsRedisHealthy() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRedisHealthy
}

// UpdateRedis 更新健康状态，返回状态是否发生了变化
func (s *Status) UpdateRedis(healthy bool) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed = s.isRedisHealthy != healthy
	s.isRedisHealthy = healthy
	return changed
}
