package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Dispatcher fans messages from several broker channels into one Handler.
type Dispatcher struct {
	broker  Broker
	handler Handler
	logger  zerolog.Logger
}

func NewDispatcher(broker Broker, handler Handler, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{broker: broker, handler: handler, logger: logger}
}

// Run subscribes to every channel and blocks until ctx is done and all
// subscriptions have drained. Handler errors are logged and do not stop
// consumption.
func (d *Dispatcher) Run(ctx context.Context, channels ...string) error {
	var wg sync.WaitGroup
	for _, channel := range channels {
		msgs, err := d.broker.Subscribe(ctx, channel)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}

		wg.Add(1)
		go func(channel string, msgs <-chan []byte) {
			defer wg.Done()
			for msg := range msgs {
				if err := d.handler(ctx, channel, msg); err != nil {
					d.logger.Error().
						Err(err).
						Str("channel", channel).
						Msg("Failed to handle message")
				}
			}
		}(channel, msgs)
	}

	wg.Wait()
	return ctx.Err()
}
