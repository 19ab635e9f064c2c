// Package health samples process and datastore health on a fixed
// interval, classifies each sample, and pushes snapshots to the
// operator monitoring room.
package health

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/careerbox/presenced/internal/gateway"
	"github.com/careerbox/presenced/internal/metrics"
	"github.com/careerbox/presenced/internal/rooms"
	"github.com/careerbox/presenced/internal/store"
	"github.com/careerbox/presenced/pkg/protocol"
	"github.com/careerbox/presenced/pkg/state"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type Thresholds struct {
	DegradedRTTMs  int64
	UnhealthyRTTMs int64
}

func DefaultThresholds() Thresholds {
	return Thresholds{DegradedRTTMs: 2000, UnhealthyRTTMs: 5000}
}

// Classify is a pure function of the sampled metrics, evaluated in
// documented order: datastore down or slow beyond the unhealthy bound,
// then heap pressure, then the degraded bounds.
func Classify(t Thresholds, datastoreUp bool, rttMs int64, heapUsed, heapTotal uint64) string {
	if !datastoreUp || rttMs > t.UnhealthyRTTMs {
		return StatusUnhealthy
	}
	var heapRatio float64
	if heapTotal > 0 {
		heapRatio = float64(heapUsed) / float64(heapTotal)
	}
	if heapRatio > 0.90 {
		return StatusUnhealthy
	}
	if heapRatio > 0.80 {
		return StatusDegraded
	}
	if rttMs > t.DegradedRTTMs {
		return StatusDegraded
	}
	return StatusHealthy
}

type Monitor struct {
	states     state.Manager
	pinger     store.Pinger
	log        store.HealthLog
	bcast      gateway.Broadcaster
	interval   time.Duration
	thresholds Thresholds
	logger     *slog.Logger

	proc      *process.Process
	startedAt time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewMonitor(states state.Manager, pinger store.Pinger, log store.HealthLog, bcast gateway.Broadcaster, interval time.Duration, thresholds Thresholds, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Monitor{
		states:     states,
		pinger:     pinger,
		log:        log,
		bcast:      bcast,
		interval:   interval,
		thresholds: thresholds,
		logger:     logger.With(slog.String("component", "health")),
		proc:       proc,
		startedAt:  time.Now(),
	}
}

// Sample takes one snapshot of process and datastore health.
func (m *Monitor) Sample(ctx context.Context) protocol.HealthSnapshot {
	metrics := protocol.HealthMetrics{
		UptimeSeconds: time.Since(m.startedAt).Seconds(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.HeapUsedBytes = ms.HeapAlloc
	metrics.HeapTotalBytes = ms.HeapSys

	if m.proc != nil {
		if cpu, err := m.proc.CPUPercent(); err == nil {
			metrics.CPUPercent = cpu
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(m.thresholds.UnhealthyRTTMs)*time.Millisecond)
	rtt, err := m.pinger.Ping(pingCtx)
	cancel()
	if err != nil {
		metrics.DatastoreUp = false
		m.logger.Warn("datastore ping failed", slog.Any("error", err))
	} else {
		metrics.DatastoreUp = true
		metrics.DatastoreRTTMs = rtt.Milliseconds()
	}

	if m.states != nil {
		idents := m.states.AllIdentities()
		metrics.TotalIdentities = len(idents)
		metrics.ActiveIdentities = m.states.ConnectionCount()
	}

	return protocol.HealthSnapshot{
		Status:    Classify(m.thresholds, metrics.DatastoreUp, metrics.DatastoreRTTMs, metrics.HeapUsedBytes, metrics.HeapTotalBytes),
		Timestamp: time.Now().UTC(),
		Metrics:   metrics,
	}
}

// Start begins periodic sampling. Idempotent: starting again replaces
// the running interval instead of duplicating it.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go m.run(runCtx)
	m.logger.Info("health monitoring started", slog.Duration("interval", m.interval))
}

// Stop halts sampling. Safe to call without a prior Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.publish(ctx)
		}
	}
}

func (m *Monitor) publish(ctx context.Context) {
	snapshot := m.Sample(ctx)
	metrics.SetHealthStatus(snapshot.Status)

	frame, err := protocol.Encode(protocol.EventSystemHealth, "", snapshot)
	if err != nil {
		m.logger.Error("failed to encode health snapshot", slog.Any("error", err))
		return
	}
	if err := m.bcast.ToRoom(rooms.OperatorMonitoringRoom, frame); err != nil {
		m.logger.Warn("health broadcast failed", slog.Any("error", err))
	}

	// Log append is best-effort; an unreachable log collection never
	// stops the broadcast above.
	if m.log != nil {
		logCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := m.log.Append(logCtx, snapshot); err != nil {
			m.logger.Warn("failed to append health log", slog.Any("error", err))
		}
		cancel()
	}
}
