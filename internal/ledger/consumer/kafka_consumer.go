package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/competitions-bet-platform/pkg/contracts/events"
)

// Reader é a parte do *kafka.Reader usada aqui
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Writer é a parte do *kafka.Writer usada para a DLQ
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Repo grava um evento; false quando já existia
type Repo interface {
	Record(ctx context.Context, e events.ClientActivity) (bool, error)
}

// ErrPoison marca mensagens que nunca vão passar: vão direto para a DLQ
var ErrPoison = errors.New("poison message")

// Processor consome client_activity e grava no livro-razão.
// Callbacks de métricas são opcionais.
type Processor struct {
	Log    *zap.Logger
	Reader Reader
	Repo   Repo
	DLQ    Writer // nil desliga a DLQ

	Retries int
	Backoff func(attempt int) time.Duration

	OnConsumed  func()
	OnRecorded  func()
	OnDuplicate func()
	OnDLQ       func()
	OnError     func(phase string)
}

func (p *Processor) metric(fn func()) {
	if fn != nil {
		fn()
	}
}

func (p *Processor) failed(phase string) {
	if p.OnError != nil {
		p.OnError(phase)
	}
}

// Run lê até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.failed("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		p.metric(p.OnConsumed)
		if err := p.Handle(ctx, m); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Decode valida a mensagem; qualquer erro aqui é ErrPoison
func Decode(b []byte) (events.ClientActivity, error) {
	var e events.ClientActivity
	if err := json.Unmarshal(b, &e); err != nil {
		return e, fmt.Errorf("%w: %v", ErrPoison, err)
	}
	if _, err := uuid.Parse(e.EventID); err != nil {
		return e, fmt.Errorf("%w: event_id %q", ErrPoison, e.EventID)
	}
	if _, err := uuid.Parse(e.ClientID); err != nil {
		return e, fmt.Errorf("%w: client_id %q", ErrPoison, e.ClientID)
	}
	switch e.Kind {
	case events.KindFundsAdded:
	case events.KindBetPlaced:
		if _, err := uuid.Parse(e.StageID); err != nil {
			return e, fmt.Errorf("%w: stage_id %q", ErrPoison, e.StageID)
		}
	default:
		return e, fmt.Errorf("%w: kind %q", ErrPoison, e.Kind)
	}
	return e, nil
}

// Handle processa uma mensagem: decodifica, grava com retry e, se não der, manda para a DLQ
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	e, err := Decode(m.Value)
	if err != nil {
		p.Log.Warn("invalid client activity", zap.Error(err))
		p.failed("decode")
		return p.deadLetter(ctx, m, err)
	}

	var inserted bool
	for attempt := 0; ; attempt++ {
		inserted, err = p.Repo.Record(ctx, e)
		if err == nil || attempt >= p.Retries {
			break
		}
		p.failed("db")
		wait := 300 * time.Duration(attempt+1) * time.Millisecond
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		p.Log.Error("ledger insert failed", zap.String("event_id", e.EventID), zap.Error(err))
		return p.deadLetter(ctx, m, err)
	}

	if inserted {
		p.metric(p.OnRecorded)
		p.Log.Debug("ledger entry recorded", zap.String("event_id", e.EventID), zap.String("kind", e.Kind))
	} else {
		p.metric(p.OnDuplicate)
	}
	return nil
}

// deadLetter copia a mensagem original para a DLQ com o motivo no header
func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, cause error) error {
	if p.DLQ == nil {
		return cause
	}
	dlq := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Time:  time.Now(),
		Headers: append(m.Headers,
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "source_topic", Value: []byte(m.Topic)},
		),
	}
	if err := p.DLQ.WriteMessages(ctx, dlq); err != nil {
		p.failed("dlq")
		return fmt.Errorf("write dlq: %w", err)
	}
	p.metric(p.OnDLQ)
	return cause
}
