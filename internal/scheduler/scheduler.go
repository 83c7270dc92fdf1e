// Package scheduler runs ingestion on a cron schedule.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Manager wraps a cron runner with named jobs and a clean stop.
type Manager struct {
	cron *cron.Cron
}

func New() *Manager {
	return &Manager{cron: cron.New()}
}

// AddJob registers fn under a standard 5-field cron spec.
func (m *Manager) AddJob(spec, name string, fn func()) error {
	id, err := m.cron.AddFunc(spec, func() {
		zap.L().Info("scheduler: job firing", zap.String("job", name))
		fn()
	})
	if err != nil {
		return eris.Wrapf(err, "scheduler: add job %s with spec %q", name, spec)
	}
	zap.L().Info("scheduler: job registered",
		zap.String("job", name),
		zap.String("spec", spec),
		zap.Int("entry_id", int(id)),
	)
	return nil
}

// Start begins firing jobs in the background.
func (m *Manager) Start() {
	m.cron.Start()
	zap.L().Info("scheduler: started", zap.Int("jobs", len(m.cron.Entries())))
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (m *Manager) Stop(ctx context.Context) {
	done := m.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		zap.L().Warn("scheduler: stop timed out with jobs still running")
	}
	zap.L().Info("scheduler: stopped")
}

// Jobs returns the number of registered entries.
func (m *Manager) Jobs() int {
	return len(m.cron.Entries())
}
