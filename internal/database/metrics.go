package database

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 数据库连接池指标收集器
type MetricsCollector struct {
	db       *sql.DB
	interval time.Duration
	stop     chan struct{}
	once     sync.Once

	openConns  prometheus.Gauge
	inUseConns prometheus.Gauge
	idleConns  prometheus.Gauge
	waitCount  prometheus.Gauge
}

var (
	poolMetricsOnce sync.Once
	poolOpenConns   prometheus.Gauge
	poolInUseConns  prometheus.Gauge
	poolIdleConns   prometheus.Gauge
	poolWaitCount   prometheus.Gauge
)

// NewMetricsCollector 创建连接池指标收集器
func NewMetricsCollector(db *sql.DB, interval time.Duration) *MetricsCollector {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	// 指标注册进程内只执行一次
	poolMetricsOnce.Do(func() {
		poolOpenConns = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_open_connections",
			Help: "Number of established connections in the pool.",
		})
		poolInUseConns = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_in_use_connections",
			Help: "Number of connections currently in use.",
		})
		poolIdleConns = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_idle_connections",
			Help: "Number of idle connections.",
		})
		poolWaitCount = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_wait_count",
			Help: "Total number of connections waited for.",
		})
	})

	return &MetricsCollector{
		db:         db,
		interval:   interval,
		stop:       make(chan struct{}),
		openConns:  poolOpenConns,
		inUseConns: poolInUseConns,
		idleConns:  poolIdleConns,
		waitCount:  poolWaitCount,
	}
}

// Start 启动后台采集循环
func (mc *MetricsCollector) Start() {
	go func() {
		ticker := time.NewTicker(mc.interval)
		defer ticker.Stop()

		mc.collect()
		for {
			select {
			case <-ticker.C:
				mc.collect()
			case <-mc.stop:
				return
			}
		}
	}()
}

// Stop 停止采集
func (mc *MetricsCollector) Stop() {
	mc.once.Do(func() { close(mc.stop) })
}

func (mc *MetricsCollector) collect() {
	stats := mc.db.Stats()
	mc.openConns.Set(float64(stats.OpenConnections))
	mc.inUseConns.Set(float64(stats.InUse))
	mc.idleConns.Set(float64(stats.Idle))
	mc.waitCount.Set(float64(stats.WaitCount))
}
