package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hykura1501/e-commerce/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{exchange, key, msg})
	return nil
}

func TestCheckoutPublisher_RoutesByOutcome(t *testing.T) {
	ch := &fakeChannel{}
	p := NewCheckoutPublisher(ch, "")
	ctx := context.Background()

	require.NoError(t, p.PublishCheckout(ctx, usecase.CheckoutEvent{SessionID: "s-1", Success: true, OrderID: "o-1", Total: "23.00"}))
	require.NoError(t, p.PublishCheckout(ctx, usecase.CheckoutEvent{SessionID: "s-1", Code: usecase.CodeOrderRejected, Message: "out of stock"}))

	require.Len(t, ch.sent, 2)
	assert.Equal(t, CheckoutExchange, ch.sent[0].exchange)
	assert.Equal(t, RouteCheckoutOK, ch.sent[0].key)
	assert.Equal(t, RouteCheckoutFail, ch.sent[1].key)
	assert.Equal(t, amqp.Persistent, ch.sent[0].msg.DeliveryMode)
	assert.NotEmpty(t, ch.sent[0].msg.MessageId)

	var ev usecase.CheckoutEvent
	require.NoError(t, json.Unmarshal(ch.sent[1].msg.Body, &ev))
	assert.Equal(t, usecase.CodeOrderRejected, ev.Code)
	assert.Equal(t, "out of stock", ev.Message)
}

func TestCheckoutPublisher_WrapsBrokerError(t *testing.T) {
	boom := errors.New("channel closed")
	err := NewCheckoutPublisher(&fakeChannel{err: boom}, "x").PublishCheckout(context.Background(), usecase.CheckoutEvent{})
	assert.ErrorIs(t, err, boom)
}

type ack struct {
	acked, nacked, requeued bool
}

func (a *ack) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *ack) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *ack) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

type ender struct{ ended []string }

func (e *ender) End(id string) { e.ended = append(e.ended, id) }

func deliver(t *testing.T, h Handler, body string) *ack {
	t.Helper()
	r := &Router{callTimeout: time.Second, requeueOnErr: true}
	a := &ack{}
	r.dispatch(context.Background(), slog.New(slog.DiscardHandler), h, amqp.Delivery{Acknowledger: a, DeliveryTag: 1, Body: []byte(body)})
	return a
}

func TestSessionEnded_Dispatch(t *testing.T) {
	e := &ender{}
	h := JSONHandler[usecase.SessionEndedMsg]{HandleFunc: SessionEndedHandler{Sessions: e}.HandleEnded}

	ok := deliver(t, h, `{"session_id":"s-1"}`)
	assert.True(t, ok.acked)
	assert.Equal(t, []string{"s-1"}, e.ended)

	bad := deliver(t, h, `{nope`)
	assert.True(t, bad.nacked)
	assert.False(t, bad.requeued, "poison is dropped")

	empty := deliver(t, h, `{}`)
	assert.True(t, empty.nacked)
	assert.False(t, empty.requeued)
}

type flaky struct{}

func (flaky) Handle(context.Context, amqp.Delivery) error { return errors.New("temporary") }

func TestRouter_RequeuesTransientErrors(t *testing.T) {
	a := deliver(t, flaky{}, `{}`)
	assert.True(t, a.nacked)
	assert.True(t, a.requeued)
}
