package healthcheck

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusUp      Status = "up"
	StatusDown    Status = "down"
)

const (
	checkTimeout = 5 * time.Second

	// DefaultInterval replaces a non-positive interval passed to HealthCheck.
	DefaultInterval = 30 * time.Second
)

// CheckFunc returns nil when the dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Target is a monitored dependency and its last observed status.
type Target struct {
	name      string
	check     CheckFunc
	mutex     sync.Mutex
	status    Status
	lastCheck time.Time
}

func NewTarget(name string, check CheckFunc) *Target {
	return &Target{
		name:   name,
		check:  check,
		status: StatusUnknown,
	}
}

func (t *Target) Name() string {
	return t.name
}

func (t *Target) Status() Status {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.status
}

func (t *Target) IsHealthy() bool {
	return t.Status() == StatusUp
}

// SetHealthy records the result of a check.
// Returns true if the status changed.
func (t *Target) SetHealthy(healthy bool) (changed bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	status := StatusDown
	if healthy {
		status = StatusUp
	}
	t.lastCheck = time.Now()

	if t.status == status {
		return false
	}
	t.status = status
	return true
}

// LastCheck returns when the target was last checked, zero if never.
func (t *Target) LastCheck() time.Time {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.lastCheck
}

// Check runs the target's check once and updates its status.
func Check(ctx context.Context, target *Target, logger *slog.Logger) {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	err := target.check(checkCtx)
	if ctx.Err() != nil {
		return
	}

	healthy := err == nil
	if !target.SetHealthy(healthy) {
		return
	}

	if healthy {
		logger.Info("Dependency is up", slog.String("target", target.Name()))
	} else {
		logger.Warn("Dependency is down",
			slog.String("target", target.Name()),
			slog.Any("err", err))
	}
}

// HealthCheck checks target immediately and then on every interval tick until
// ctx is cancelled.
func HealthCheck(
	ctx context.Context,
	target *Target,
	interval time.Duration,
	logger *slog.Logger,
) {
	if interval <= 0 {
		logger.Warn("Invalid health check interval, using default",
			slog.String("target", target.Name()),
			slog.Duration("interval", interval),
			slog.Duration("default", DefaultInterval))
		interval = DefaultInterval
	}

	Check(ctx, target, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped", slog.String("target", target.Name()))
			return

		case <-ticker.C:
			Check(ctx, target, logger)
		}
	}
}
