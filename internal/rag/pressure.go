package rag

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"
)

// PressureLevel 内存压力等级
type PressureLevel int

const (
	PressureNormal PressureLevel = iota
	PressureElevated
	PressureCritical
)

func (l PressureLevel) String() string {
	switch l {
	case PressureElevated:
		return "elevated"
	case PressureCritical:
		return "critical"
	default:
		return "normal"
	}
}

// GovernorOptions 内存压力调节器配置
type GovernorOptions struct {
	// WorkingSetBytes 可用工作集上限，0表示使用运行时的HeapSys
	WorkingSetBytes uint64
	ElevatedRatio   float64
	CriticalRatio   float64
	YieldDelay      time.Duration
}

// Governor 内存压力调节器。只读取进程内存统计，不持有其他状态；
// 调用方在固定检查点查询压力并决定是否回收与让步。
type Governor struct {
	workingSet uint64
	elevated   float64
	critical   float64
	yieldDelay time.Duration
}

// NewGovernor 创建内存压力调节器
func NewGovernor(opts GovernorOptions) *Governor {
	if opts.ElevatedRatio <= 0 || opts.ElevatedRatio >= 1 {
		opts.ElevatedRatio = 0.90
	}
	if opts.CriticalRatio <= opts.ElevatedRatio || opts.CriticalRatio > 1 {
		opts.CriticalRatio = 0.95
	}
	if opts.YieldDelay <= 0 {
		opts.YieldDelay = 50 * time.Millisecond
	}
	return &Governor{
		workingSet: opts.WorkingSetBytes,
		elevated:   opts.ElevatedRatio,
		critical:   opts.CriticalRatio,
		yieldDelay: opts.YieldDelay,
	}
}

// Pressure 返回当前内存压力等级
func (g *Governor) Pressure() PressureLevel {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	limit := g.workingSet
	if limit == 0 {
		limit = stats.HeapSys
	}
	if limit == 0 {
		return PressureNormal
	}

	ratio := float64(stats.HeapAlloc) / float64(limit)
	switch {
	case ratio > g.critical:
		return PressureCritical
	case ratio > g.elevated:
		return PressureElevated
	default:
		return PressureNormal
	}
}

// Reclaim 请求一次显式内存回收
func (g *Governor) Reclaim() {
	runtime.GC()
	debug.FreeOSMemory()
}

// YieldIfElevated 检查压力，elevated及以上时回收并做一次有界让步。
// 让步在固定延迟后总会恢复，context取消时提前返回。返回检查时的压力等级。
func (g *Governor) YieldIfElevated(ctx context.Context) PressureLevel {
	level := g.Pressure()
	if level < PressureElevated {
		return level
	}

	g.Reclaim()

	timer := time.NewTimer(g.yieldDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	return level
}
