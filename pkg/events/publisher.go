package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/borud/broker"
)

// Topic carries run lifecycle events.
const Topic = "/run"

const publishTimeout = 1 * time.Second

// Publisher publishes lifecycle events. A Publisher without a broker
// drops everything, so callers need not check.
type Publisher struct {
	broker  *broker.Broker
	timeout time.Duration
}

// NewPublisher wraps b, which may be nil.
func NewPublisher(b *broker.Broker) *Publisher {
	return &Publisher{broker: b, timeout: publishTimeout}
}

// Publish sends evt to the /run topic.
func (p *Publisher) Publish(evt any) error {
	if p == nil || p.broker == nil {
		return nil
	}
	if err := p.broker.Publish(Topic, evt, p.timeout); err != nil {
		return fmt.Errorf("publishing %T: %w", evt, err)
	}
	return nil
}

// Watch logs every lifecycle event at debug level until ctx is done.
func Watch(ctx context.Context, b *broker.Broker, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	subscriber, err := b.Subscribe(Topic)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", Topic, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-subscriber.Messages():
				if !ok {
					return
				}
				logEvent(logger, msg.Payload)
			}
		}
	}()
	return nil
}

func logEvent(logger *slog.Logger, payload any) {
	switch evt := payload.(type) {
	case ServerStarted:
		logger.Debug("Server started", "run", evt.RunID, "url", evt.URL, "port", evt.Port)
	case BrowserLaunched:
		logger.Debug("Browser launched", "run", evt.RunID, "browser", evt.Browser)
	case RunStarted:
		logger.Debug("Run started", "run", evt.RunID, "transport", evt.Transport)
	case RunFinished:
		logger.Debug("Run finished", "run", evt.RunID, "status", evt.Status)
	case RunFailed:
		logger.Debug("Run failed", "run", evt.RunID, "error", evt.Error)
	case TeardownComplete:
		logger.Debug("Teardown complete", "run", evt.RunID, "errors", evt.Errors)
	default:
		logger.Debug("Unknown event", "type", fmt.Sprintf("%T", payload))
	}
}
