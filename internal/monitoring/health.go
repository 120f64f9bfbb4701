package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultProbeTimeout = 3 * time.Second

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates probe results.
type HealthReport struct {
	Status ProbeStatus   `json:"status"`
	Checks []ProbeResult `json:"checks"`
}

// Healthy reports whether the service can take traffic. Degraded components
// do not make it unhealthy.
func (r HealthReport) Healthy() bool {
	return r.Status != StatusDown
}

// Probe is one dependency check. An optional probe that fails only
// degrades the report.
type Probe struct {
	Name     string
	Optional bool
	Run      func(ctx context.Context) ProbeResult
}

// HealthManager runs the registered probes.
type HealthManager struct {
	timeout time.Duration

	mu     sync.RWMutex
	probes []Probe
}

// NewHealthManager constructs an empty manager. timeout bounds each probe;
// zero uses a 3s default.
func NewHealthManager(timeout time.Duration) *HealthManager {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HealthManager{timeout: timeout}
}

// Register appends a probe. Probes without a name or function are ignored.
func (m *HealthManager) Register(probe Probe) {
	if m == nil || probe.Name == "" || probe.Run == nil {
		return
	}
	m.mu.Lock()
	m.probes = append(m.probes, probe)
	m.mu.Unlock()
}

// Evaluate runs every probe concurrently and folds the results in
// registration order.
func (m *HealthManager) Evaluate(ctx context.Context) HealthReport {
	report := HealthReport{Status: StatusUp}
	if m == nil {
		return report
	}

	m.mu.RLock()
	probes := append([]Probe(nil), m.probes...)
	m.mu.RUnlock()

	results := make([]ProbeResult, len(probes))
	var g errgroup.Group
	for i, probe := range probes {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()
			results[i] = runProbe(probeCtx, probe)
			return nil
		})
	}
	_ = g.Wait()

	report.Checks = results
	for _, result := range results {
		report.Status = worst(report.Status, result.Status)
	}
	return report
}

func runProbe(ctx context.Context, probe Probe) (result ProbeResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: fmt.Sprintf("panic: %v", rec)}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		if probe.Optional && result.Status == StatusDown {
			result.Status = StatusDegraded
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		result.Component = probe.Name
	}()

	return probe.Run(ctx)
}

func worst(a, b ProbeStatus) ProbeStatus {
	switch {
	case a == StatusDown || b == StatusDown:
		return StatusDown
	case a == StatusDegraded || b == StatusDegraded:
		return StatusDegraded
	default:
		return StatusUp
	}
}

// ResultFromError converts err into a ProbeResult. Timeouts degrade rather
// than fail.
func ResultFromError(err error, duration time.Duration) ProbeResult {
	if err == nil {
		return ProbeResult{Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}
	return ProbeResult{Status: status, Details: err.Error(), Duration: duration}
}
