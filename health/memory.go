package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryChecker reports heap usage against a fixed budget.
type MemoryChecker struct {
	maxAlloc uint64
	warn     float64
	critical float64
}

// NewMemoryChecker creates a checker that is degraded above 80% of
// maxAlloc and unhealthy above 95%. A zero maxAlloc uses the memory
// obtained from the OS as the budget.
func NewMemoryChecker(maxAlloc uint64) *MemoryChecker {
	return &MemoryChecker{maxAlloc: maxAlloc, warn: 0.8, critical: 0.95}
}

// Name returns the name of this checker.
func (m *MemoryChecker) Name() string {
	return "memory"
}

// Check performs the memory health check.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	budget := m.maxAlloc
	if budget == 0 {
		budget = stats.Sys
	}
	if budget == 0 {
		return Healthy("memory stats unavailable")
	}

	ratio := float64(stats.Alloc) / float64(budget)
	details := map[string]any{
		"alloc_bytes":   stats.Alloc,
		"budget_bytes":  budget,
		"usage_percent": ratio * 100,
		"num_gc":        stats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	switch {
	case ratio >= m.critical:
		return Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.warn:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("memory usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}
