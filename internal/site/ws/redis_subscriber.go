package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/competitions-bet-platform/pkg/contracts/events"
)

// Handler recebe cada mudança do catálogo lida do canal
type Handler func(ctx context.Context, e events.CatalogChanged)

// StartRedisSubscriber escuta o canal de mudanças do catálogo e repassa
// cada mensagem para os handlers, na ordem (cache antes do hub, por exemplo).
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, handlers ...Handler) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				Dispatch(ctx, log, []byte(msg.Payload), handlers...)
			}
		}
	}()
}

// Dispatch decodifica uma mensagem do canal e chama os handlers
func Dispatch(ctx context.Context, log *zap.Logger, payload []byte, handlers ...Handler) {
	var e events.CatalogChanged
	if err := json.Unmarshal(payload, &e); err != nil {
		log.Warn("catalog broadcast unmarshal error", zap.Error(err))
		return
	}
	for _, h := range handlers {
		h(ctx, e)
	}
}
