package producer

import (
	"context"

	"github.com/segmentio/kafka-go"

	sharedkafka "github.com/radieske/competitions-bet-platform/internal/shared/kafka"
	"github.com/radieske/competitions-bet-platform/pkg/contracts/events"
)

// KafkaPublisher publica depósitos e apostas no tópico de atividade.
// A chave é o cliente, então os eventos de um mesmo cliente ficam ordenados.
type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) PublishActivity(ctx context.Context, e events.ClientActivity) error {
	return sharedkafka.WriteJSON(ctx, p.Writer, e.ClientID, e)
}

func (p *KafkaPublisher) Close() error { return p.Writer.Close() }
