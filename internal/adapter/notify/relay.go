package notify

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
)

const relayChannel = "doctrack:docs_updated"

// Relay carries hub broadcasts over Redis pub/sub.
type Relay struct {
	rdb *redis.Client
}

func NewRelay(rdb *redis.Client) *Relay { return &Relay{rdb: rdb} }

func (r *Relay) Publish(ctx context.Context, payload []byte) error {
	return r.rdb.Publish(ctx, relayChannel, payload).Err()
}

// Start subscribes and feeds every relayed message to h until ctx ends. It
// returns once the subscription is confirmed.
func (r *Relay) Start(ctx context.Context, h *Hub) error {
	sub := r.rdb.Subscribe(ctx, relayChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if rec := recover(); rec != nil {
							slog.Error("notify: relay handler panic", "panic", rec, "stack", string(debug.Stack()))
						}
					}()
					h.BroadcastLocal([]byte(msg.Payload))
				}()
			}
		}
	}()
	return nil
}
