package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Processor drains a queue and blocks until every task has run.
type Processor interface {
	Process(ctx context.Context, q *Queue) error
}

// InlineProcessor runs queued tasks in the calling goroutine, in order.
// A failing task does not stop the tasks behind it.
type InlineProcessor struct {
	Logger logrus.FieldLogger
}

var _ Processor = (*InlineProcessor)(nil)

// NewInlineProcessor creates an InlineProcessor. A nil logger discards output.
func NewInlineProcessor(logger logrus.FieldLogger) *InlineProcessor {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	return &InlineProcessor{Logger: logger}
}

// Process runs every task on q and returns the joined task errors.
func (p *InlineProcessor) Process(ctx context.Context, q *Queue) error {
	var errs []error
	for _, task := range q.Drain() {
		start := time.Now()
		entry := p.Logger.WithFields(logrus.Fields{"task": task.Name, "task_id": task.ID})
		if err := task.Run(ctx); err != nil {
			entry.WithError(err).Warn("batch task failed")
			errs = append(errs, fmt.Errorf("%s: %w", task.Name, err))
			continue
		}
		entry.WithField("duration", time.Since(start)).Debug("batch task finished")
	}
	return errors.Join(errs...)
}
