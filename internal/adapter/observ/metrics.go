package observ

import (
	"context"

	"github.com/hykura1501/e-commerce/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	Checkouts    *prometheus.CounterVec
	CartErrors   *prometheus.CounterVec
	LoginEvents  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		}, []string{"method", "path"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_checkouts_total",
			Help: "Checkout attempts by outcome",
		}, []string{"outcome"}),
		CartErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_errors_total",
			Help: "Cart operation failures returned to clients, by error code",
		}, []string{"code"}),
		LoginEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_login_events_total",
			Help: "user.logged_in messages handled, by result",
		}, []string{"result"}),
	}
	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.Checkouts, m.CartErrors, m.LoginEvents)
	return m
}

// CountingPublisher counts checkout outcomes and forwards the event.
type CountingPublisher struct {
	Next    usecase.EventPublisher
	Metrics *Metrics
}

func (p CountingPublisher) PublishCheckout(ctx context.Context, ev usecase.CheckoutEvent) error {
	outcome := "success"
	if !ev.Success {
		outcome = string(ev.Code)
		if outcome == "" {
			outcome = "error"
		}
	}
	p.Metrics.Checkouts.WithLabelValues(outcome).Inc()
	if p.Next == nil {
		return nil
	}
	return p.Next.PublishCheckout(ctx, ev)
}
