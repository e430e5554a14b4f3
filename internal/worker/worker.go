package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/internal/confirmations"
	"github.com/PittChallenge/pittchallenge.com/pkg/queue"
)

// ConfirmationProcessor consumes confirmation jobs: send the email, then mark the check-in record.
type ConfirmationProcessor struct {
	svc     *confirmations.Service
	queue   *queue.Queue
	backoff time.Duration
	logger  *zap.Logger
}

// NewConfirmationProcessor creates a confirmation job processor.
func NewConfirmationProcessor(svc *confirmations.Service, q *queue.Queue, logger *zap.Logger) *ConfirmationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfirmationProcessor{svc: svc, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one confirmation job.
func (p *ConfirmationProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := queue.DecodeConfirmation(job)
	if err != nil {
		return err
	}
	sent, err := p.svc.Process(ctx, payload)
	if err != nil {
		return err
	}
	if !sent {
		p.logger.Info("confirmation already sent", zap.String("attendee_id", payload.AttendeeID))
		return nil
	}
	p.logger.Info("confirmation delivered", zap.String("attendee_id", payload.AttendeeID), zap.String("job_id", job.ID))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ConfirmationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("confirmation worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *ConfirmationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
