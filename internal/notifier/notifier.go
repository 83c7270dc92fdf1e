// Package notifier delivers run outcomes to people and systems: email for
// operators, a JSON webhook for machines. Delivery failures are the caller's
// to log; a run never fails because its notification did.
package notifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/linkedin-ingestor/internal/model"
)

// Event is the run outcome payload handed to every notifier.
type Event struct {
	Kind        string            `json:"kind"` // "success", "failure", "skipped"
	RunID       string            `json:"run_id"`
	SourcePath  string            `json:"source_path"`
	Status      model.RunStatus   `json:"status"`
	Error       string            `json:"error,omitempty"`
	Counters    model.RunCounters `json:"counters"`
	ReportText  string            `json:"report_text,omitempty"`
	PackagePath string            `json:"package_path,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

const (
	KindSuccess = "success"
	KindFailure = "failure"
	KindSkipped = "skipped"
)

// Notifier delivers one run event.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Multi fans one event out to several notifiers. Individual failures are
// logged and swallowed so one broken channel cannot silence the others.
type Multi struct {
	notifiers []Notifier
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, event Event) error {
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			zap.L().Error("notifier: delivery failed",
				zap.String("run_id", event.RunID),
				zap.String("kind", event.Kind),
				zap.Error(err),
			)
		}
	}
	return nil
}
