package email

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/models"
)

// Notifier sends admin notifications
type Notifier interface {
	ProgramSubmitted(ctx context.Context, program *models.Program) error
	ReportFiled(ctx context.Context, report *models.ProgramReport) error
	ProgramFeatured(ctx context.Context, program *models.Program) error
}

// Ensure SESNotifier implements Notifier
var _ Notifier = (*SESNotifier)(nil)

// Async sends through next on background goroutines so a slow or failing mail
// provider never holds up a request. Failures are logged and dropped.
type Async struct {
	next    Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps next. A non-positive timeout defaults to 15 seconds.
func NewAsync(next Notifier, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Async{next: next, timeout: timeout}
}

func (a *Async) ProgramSubmitted(_ context.Context, program *models.Program) error {
	snapshot := *program
	a.dispatch("program_submitted", func(ctx context.Context) error {
		return a.next.ProgramSubmitted(ctx, &snapshot)
	})
	return nil
}

func (a *Async) ReportFiled(_ context.Context, report *models.ProgramReport) error {
	snapshot := *report
	a.dispatch("report_filed", func(ctx context.Context) error {
		return a.next.ReportFiled(ctx, &snapshot)
	})
	return nil
}

func (a *Async) ProgramFeatured(_ context.Context, program *models.Program) error {
	snapshot := *program
	a.dispatch("program_featured", func(ctx context.Context) error {
		return a.next.ProgramFeatured(ctx, &snapshot)
	})
	return nil
}

// Wait blocks until in-flight notifications finish or ctx is done
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) dispatch(kind string, send func(ctx context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		// Detached from the request: the response is usually written before the send.
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := send(ctx); err != nil {
			logger.Log.Warn("Admin notification failed", zap.String("kind", kind), zap.Error(err))
		}
	}()
}
