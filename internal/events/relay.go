package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/metrics"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/repository"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

// Relay drains the outbox into a Publisher. Delivery is at-least-once: an
// event is marked published only after the publisher accepted it, and a
// failed publish leaves the row pending for the next pass.
type Relay struct {
	outbox    repository.OutboxRepository
	publisher Publisher
	clock     utils.Clock
	batch     int
	logger    *logrus.Logger
}

func NewRelay(outbox repository.OutboxRepository, publisher Publisher, clock utils.Clock, batch int, logger *logrus.Logger) *Relay {
	if batch <= 0 {
		batch = 100
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		clock:     clock,
		batch:     batch,
		logger:    logger,
	}
}

// RunOnce publishes one batch and returns how many events were delivered.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.ListPendingEvents(ctx, r.batch)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, event := range pending {
		data, err := Encode(event)
		if err == nil {
			err = r.publisher.Publish(ctx, event.Topic, data)
		}
		if err != nil {
			metrics.OutboxRelayed.WithLabelValues("failed").Inc()
			r.logger.WithError(err).WithFields(logrus.Fields{
				"event_id": event.ID,
				"topic":    event.Topic,
			}).Warn("Failed to publish outbox event")
			if markErr := r.outbox.MarkEventFailed(ctx, event.ID, err.Error()); markErr != nil {
				r.logger.WithError(markErr).Error("Failed to record outbox failure")
			}
			continue
		}

		if err := r.outbox.MarkEventPublished(ctx, event.ID, r.clock.Now()); err != nil {
			return delivered, err
		}
		metrics.OutboxRelayed.WithLabelValues("published").Inc()
		delivered++
	}
	return delivered, nil
}

// Run relays on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.WithError(err).Error("Outbox relay pass failed")
			}
		}
	}
}
