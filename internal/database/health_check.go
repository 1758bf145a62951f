package database

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// HealthStatus 数据库健康状态快照
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Latency      time.Duration `json:"latency"`
	OpenConns    int           `json:"open_conns"`
	InUseConns   int           `json:"in_use_conns"`
	IdleConns    int           `json:"idle_conns"`
	LastChecked  time.Time     `json:"last_checked"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// HealthChecker 数据库健康检查器，周期性Ping并缓存最近一次结果
type HealthChecker struct {
	db       *sql.DB
	interval time.Duration

	mu     sync.RWMutex
	status HealthStatus
	stop   chan struct{}
	once   sync.Once
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(db *sql.DB, interval time.Duration) *HealthChecker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthChecker{
		db:       db,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start 启动后台检查循环
func (hc *HealthChecker) Start() {
	go func() {
		ticker := time.NewTicker(hc.interval)
		defer ticker.Stop()

		hc.check()
		for {
			select {
			case <-ticker.C:
				hc.check()
			case <-hc.stop:
				return
			}
		}
	}()
}

// Stop 停止检查循环
func (hc *HealthChecker) Stop() {
	hc.once.Do(func() { close(hc.stop) })
}

// Status 返回最近一次检查结果
func (hc *HealthChecker) Status() HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.status
}

func (hc *HealthChecker) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	err := hc.db.PingContext(ctx)
	latency := time.Since(start)

	stats := hc.db.Stats()
	status := HealthStatus{
		Healthy:     err == nil,
		Latency:     latency,
		OpenConns:   stats.OpenConnections,
		InUseConns:  stats.InUse,
		IdleConns:   stats.Idle,
		LastChecked: time.Now(),
	}
	if err != nil {
		status.ErrorMessage = err.Error()
	}

	hc.mu.Lock()
	hc.status = status
	hc.mu.Unlock()
}
