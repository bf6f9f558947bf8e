package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hykura1501/e-commerce/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	CheckoutExchange  = "cart.events"
	RouteCheckoutOK   = "cart.checkout.succeeded"
	RouteCheckoutFail = "cart.checkout.failed"
)

// Publisher is the part of *amqp.Channel the producer needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// CheckoutPublisher implements usecase.EventPublisher on a topic exchange.
type CheckoutPublisher struct {
	ch       Publisher
	exchange string
	now      func() time.Time
}

// DeclareTopic sets up a durable topic exchange; safe to repeat.
func DeclareTopic(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

func NewCheckoutPublisher(ch Publisher, exchange string) *CheckoutPublisher {
	if exchange == "" {
		exchange = CheckoutExchange
	}
	return &CheckoutPublisher{ch: ch, exchange: exchange, now: time.Now}
}

func (p *CheckoutPublisher) PublishCheckout(ctx context.Context, ev usecase.CheckoutEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal checkout event: %w", err)
	}
	key := RouteCheckoutOK
	if !ev.Success {
		key = RouteCheckoutFail
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		MessageId:    uuid.NewString(),
		Timestamp:    p.now(),
		Type:         key,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, key, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

var _ usecase.EventPublisher = (*CheckoutPublisher)(nil)
