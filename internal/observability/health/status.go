package health

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Status is a component health state
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckFunc probes one component
type CheckFunc func(ctx context.Context) error

// ComponentStatus is the result of one component probe
type ComponentStatus struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Report aggregates component statuses
type Report struct {
	Status     Status            `json:"status"`
	Components []ComponentStatus `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Checker runs registered probes on demand: storage backends, the
// metrics sink, and the replay pipeline all register here so the server
// health endpoint reflects the full training path.
type Checker struct {
	logger *logrus.Logger

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker creates an empty health checker
func NewChecker(logger *logrus.Logger) *Checker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Checker{logger: logger, checks: make(map[string]CheckFunc)}
}

// Register adds or replaces a component probe
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check probes every registered component. Overall status is healthy
// only when every probe passes; any failure degrades the report.
func (c *Checker) Check(ctx context.Context) *Report {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	report := &Report{Status: StatusHealthy, Timestamp: time.Now().UTC()}
	for name, fn := range checks {
		status := ComponentStatus{Name: name, Status: StatusHealthy, CheckedAt: time.Now().UTC()}
		if err := fn(ctx); err != nil {
			status.Status = StatusUnhealthy
			status.Error = err.Error()
			report.Status = StatusDegraded
			c.logger.WithError(err).WithField("component", name).Warn("Health check failed")
		}
		report.Components = append(report.Components, status)
	}
	if len(report.Components) == 0 {
		report.Status = StatusHealthy
	}
	return report
}
