package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hykura1501/e-commerce/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Router runs one consumer per registered queue on a single AMQP channel.
type Router struct {
	ch            *amqp.Channel
	prefetch      int
	callTimeout   time.Duration
	requeueOnErr  bool
	log           *slog.Logger
	registrations []registration
}

type registration struct {
	queue    string
	exchange string
	key      string
	handler  Handler
}

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }

// NewRouter defaults: prefetch=50, timeout=10s, requeueOnErr=true.
func NewRouter(ch *amqp.Channel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		prefetch:     50,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
		log:          logging.New("rmq-router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bind registers h for a durable queue bound to exchange with key.
func (r *Router) Bind(queue, exchange, key string, h Handler) {
	r.registrations = append(r.registrations, registration{queue: queue, exchange: exchange, key: key, handler: h})
}

// Start declares the topology and begins consuming; non-blocking. Consumers
// stop when ctx is done or the channel closes.
func (r *Router) Start(ctx context.Context) error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}
	for _, reg := range r.registrations {
		if err := r.declare(reg); err != nil {
			return err
		}
		tag := "c_" + reg.queue
		deliveries, err := r.ch.Consume(reg.queue, tag, false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", reg.queue, err)
		}
		go r.loop(ctx, reg, deliveries)
	}
	return nil
}

func (r *Router) declare(reg registration) error {
	if err := DeclareTopic(r.ch, reg.exchange); err != nil {
		return err
	}
	if _, err := r.ch.QueueDeclare(reg.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", reg.queue, err)
	}
	if err := r.ch.QueueBind(reg.queue, reg.key, reg.exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", reg.queue, err)
	}
	return nil
}

func (r *Router) loop(ctx context.Context, reg registration, msgs <-chan amqp.Delivery) {
	log := r.log.With("queue", reg.queue)
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				log.Warn("consumer stopped")
				return
			}
			r.dispatch(ctx, log, reg.handler, d)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, log *slog.Logger, h Handler, d amqp.Delivery) {
	callCtx, cancel := context.WithTimeout(logging.WithCtx(ctx, log), r.callTimeout)
	err := h.Handle(callCtx, d)
	cancel()

	if err == nil {
		_ = d.Ack(false)
		return
	}
	requeue := r.requeueOnErr && !errors.Is(err, ErrPoison)
	log.Error("handler error", "rk", d.RoutingKey, "err", err, "requeue", requeue)
	_ = d.Nack(false, requeue)
}
