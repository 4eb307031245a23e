// Package notifier delivers outbound messages to sets of recipients,
// respecting the platform's batch-size limit and pacing calls with a rate
// limiter.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"highnoon/internal/line"
	"highnoon/pkg/logx"
)

// Notifier pushes a list of text messages to a list of recipient ids.
type Notifier interface {
	Push(ctx context.Context, recipients []string, messages []string) error
}

// Sender is the outbound transport (satisfied by *line.Client).
type Sender interface {
	Multicast(ctx context.Context, to []string, texts ...string) error
}

type Config struct {
	RatePerSec int // multicast calls per second, minimum 1
	BatchSize  int // 0 means the platform maximum
}

type Service struct {
	sender  Sender
	limiter *rate.Limiter
	batch   int
	log     logx.Logger
}

func New(cfg Config, sender Sender, log logx.Logger) *Service {
	rps := cfg.RatePerSec
	if rps < 1 {
		rps = 1
	}
	batch := cfg.BatchSize
	if batch <= 0 || batch > line.MaxMulticastRecipients {
		batch = line.MaxMulticastRecipients
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		batch:   batch,
		log:     log.With(logx.String("component", "notifier")),
	}
}

// Push delivers messages to every recipient, in batches no larger than the
// platform limit. A failed batch is reported but does not stop the rest;
// the combined error names the failed batches.
func (s *Service) Push(ctx context.Context, recipients []string, messages []string) error {
	if len(recipients) == 0 || len(messages) == 0 {
		return nil
	}

	var errs []error
	sent := 0
	for start := 0; start < len(recipients); start += s.batch {
		end := min(start+s.batch, len(recipients))
		chunk := recipients[start:end]

		if err := s.limiter.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.sender.Multicast(ctx, chunk, messages...); err != nil {
			s.log.Error("batch delivery failed",
				logx.Int("batch_start", start),
				logx.Int("batch_size", len(chunk)),
				logx.Err(err))
			errs = append(errs, fmt.Errorf("batch %d-%d: %w", start, end, err))
			continue
		}
		sent += len(chunk)
	}

	s.log.Info("push done",
		logx.Int("recipients", len(recipients)),
		logx.Int("delivered", sent),
		logx.Int("failed_batches", len(errs)))
	return errors.Join(errs...)
}
