// Package metrics logs periodic process resource usage during long
// conversions of large documents.
package metrics

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Snapshot holds one sample of process and system resource usage.
type Snapshot struct {
	CPUPercent        float64 // system-wide CPU usage (0-100%)
	ProcessCPUPercent float64 // this process, per core (can exceed 100%)
	ProcessRSSMB      float64
	MemoryPercent     float64
	Timestamp         time.Time
}

// Collector periodically samples and logs resource usage.
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process

	mu   sync.RWMutex
	last *Snapshot
}

// NewCollector creates a collector sampling at the given interval.
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// Start begins periodic collection. Returns when the context is
// cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// Last returns the most recent sample, or nil before the first one.
func (c *Collector) Last() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *Collector) collect() {
	snap := &Snapshot{Timestamp: time.Now()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		snap.CPUPercent = pct[0]
	}
	if c.proc != nil {
		if procCPU, err := c.proc.Percent(0); err == nil {
			snap.ProcessCPUPercent = procCPU
		}
		if info, err := c.proc.MemoryInfo(); err == nil && info != nil {
			snap.ProcessRSSMB = float64(info.RSS) / (1024 * 1024)
		}
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		snap.MemoryPercent = vmem.UsedPercent
	}

	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()

	c.logger.Info("Resource usage",
		zap.Float64("sys_cpu", snap.CPUPercent),
		zap.Float64("proc_cpu", snap.ProcessCPUPercent),
		zap.Float64("rss_mb", snap.ProcessRSSMB),
		zap.Float64("mem_pct", snap.MemoryPercent),
	)
}
