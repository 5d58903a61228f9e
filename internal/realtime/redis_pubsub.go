package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	sessionChannel = "pulsepoll:session"
	publishTTL     = 5 * time.Second
)

// redisPayload is the message published to Redis for cross-instance broadcast.
type redisPayload struct {
	Origin string          `json:"origin"`
	Scope  string          `json:"scope"`
	Role   string          `json:"role,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	At     int64           `json:"at"`
}

// RedisPubSub implements Publisher and Subscriber over Redis pub/sub so
// session broadcasts reach clients connected to other instances.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for session events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, logger: logger}
}

// PublishEvent publishes an event to the session channel.
func (r *RedisPubSub) PublishEvent(origin, scope, role, event string, payload []byte) error {
	body, err := json.Marshal(redisPayload{
		Origin: origin,
		Scope:  scope,
		Role:   role,
		Event:  event,
		Data:   payload,
		At:     time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTTL)
	defer cancel()
	return r.client.Publish(ctx, sessionChannel, body).Err()
}

// Subscribe subscribes to the session channel and calls handler for each
// message. Returns a cancel function to stop the subscription.
func (r *RedisPubSub) Subscribe(handler func(origin, scope, role, event string, payload []byte)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, sessionChannel)
	if _, err = pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p redisPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					r.logger.Debug("malformed session event", zap.Error(err))
					continue
				}
				handler(p.Origin, p.Scope, p.Role, p.Event, p.Data)
			}
		}
	}()
	return func() { cancelCtx() }, nil
}
