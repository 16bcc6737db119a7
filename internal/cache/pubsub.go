package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// LocationsInvalidateChannel carries the partner whose locations changed.
const LocationsInvalidateChannel = "locations:invalidate"

type Notifier struct {
	client redis.UniversalClient
}

func NewNotifier(client redis.UniversalClient) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) Publish(ctx context.Context, channel, message string) error {
	if err := n.client.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("redis publish %s failed: %w", channel, err)
	}
	return nil
}

// Subscribe delivers channel messages to handle until ctx is done.
func (n *Notifier) Subscribe(ctx context.Context, channel string, handle func(message string)) error {
	sub := n.client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s failed: %w", channel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			handle(msg.Payload)
		}
	}
}
