package rag

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGovernorDefaults(t *testing.T) {
	g := NewGovernor(GovernorOptions{})
	assert.Equal(t, 0.90, g.elevated)
	assert.Equal(t, 0.95, g.critical)
	assert.Equal(t, 50*time.Millisecond, g.yieldDelay)
}

func TestGovernorInvalidRatiosFallBack(t *testing.T) {
	g := NewGovernor(GovernorOptions{ElevatedRatio: 1.5, CriticalRatio: 0.2})
	assert.Equal(t, 0.90, g.elevated)
	assert.Equal(t, 0.95, g.critical)
}

func TestPressureNormalWithHugeWorkingSet(t *testing.T) {
	g := NewGovernor(GovernorOptions{WorkingSetBytes: math.MaxUint64 / 2})
	assert.Equal(t, PressureNormal, g.Pressure())
}

func TestPressureCriticalWithTinyWorkingSet(t *testing.T) {
	// 1字节工作集：任何堆占用都超过critical阈值
	g := NewGovernor(GovernorOptions{WorkingSetBytes: 1})
	assert.Equal(t, PressureCritical, g.Pressure())
}

func TestYieldIfElevatedReturnsQuicklyUnderNormalPressure(t *testing.T) {
	g := NewGovernor(GovernorOptions{WorkingSetBytes: math.MaxUint64 / 2, YieldDelay: time.Second})
	start := time.Now()
	level := g.YieldIfElevated(context.Background())
	assert.Equal(t, PressureNormal, level)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestYieldIfElevatedIsBounded(t *testing.T) {
	g := NewGovernor(GovernorOptions{WorkingSetBytes: 1, YieldDelay: 20 * time.Millisecond})
	start := time.Now()
	level := g.YieldIfElevated(context.Background())
	elapsed := time.Since(start)

	assert.Equal(t, PressureCritical, level)
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestYieldIfElevatedHonorsContextCancel(t *testing.T) {
	g := NewGovernor(GovernorOptions{WorkingSetBytes: 1, YieldDelay: 10 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	g.YieldIfElevated(ctx)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPressureLevelString(t *testing.T) {
	assert.Equal(t, "normal", PressureNormal.String())
	assert.Equal(t, "elevated", PressureElevated.String())
	assert.Equal(t, "critical", PressureCritical.String())
}
