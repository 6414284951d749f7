// Package outbox runs the best-effort work that follows a committed
// transaction. Tasks run one after another, each under its own timeout, and a
// failing task never stops the ones after it.
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/notarypros/booking-service/internal/metrics"
	"github.com/notarypros/booking-service/pkg/logging"
)

type Task struct {
	Name string
	Run  func(ctx context.Context) error
	// OnFailure is called with the task's error, for example to queue a retry.
	OnFailure func(ctx context.Context, err error)
}

type Outcome struct {
	Task     string
	Err      error
	Duration time.Duration
}

type Runner struct {
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

func NewRunner(timeout time.Duration, logger *logging.Logger, m *metrics.BookingMetrics) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{timeout: timeout, logger: logger, metrics: m}
}

// Run executes tasks in order. The caller's cancellation is detached so a
// client hanging up does not abort work for an already committed booking.
func (r *Runner) Run(ctx context.Context, tasks ...Task) []Outcome {
	base := context.WithoutCancel(ctx)
	outcomes := make([]Outcome, 0, len(tasks))

	for _, task := range tasks {
		start := time.Now()
		err := r.runOne(base, task)
		out := Outcome{Task: task.Name, Err: err, Duration: time.Since(start)}
		outcomes = append(outcomes, out)

		r.metrics.ObserveSideEffect(task.Name, err == nil)
		if err != nil {
			r.logger.Warn("post-commit task failed", "task", task.Name, "duration_ms", out.Duration.Milliseconds(), "error", err)
			if task.OnFailure != nil {
				task.OnFailure(base, err)
			}
			continue
		}
		r.logger.Debug("post-commit task done", "task", task.Name, "duration_ms", out.Duration.Milliseconds())
	}
	return outcomes
}

func (r *Runner) runOne(ctx context.Context, task Task) (err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, p)
		}
	}()
	return task.Run(ctx)
}

// Failed returns the outcomes that carry an error.
func Failed(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}
