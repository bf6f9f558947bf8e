package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hykura1501/e-commerce/internal/usecase"
)

// MySQLOutboxRepo parks checkout events that could not reach the broker.
// A relay drains PENDING rows by channel.
type MySQLOutboxRepo struct{ db *sql.DB }

func NewMySQLOutboxRepo(db *sql.DB) *MySQLOutboxRepo { return &MySQLOutboxRepo{db: db} }

const (
	ChannelCheckoutSucceeded = "cart.checkout.succeeded"
	ChannelCheckoutFailed    = "cart.checkout.failed"
)

func (r *MySQLOutboxRepo) PublishCheckout(ctx context.Context, ev usecase.CheckoutEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	channel := ChannelCheckoutSucceeded
	if !ev.Success {
		channel = ChannelCheckoutFailed
	}
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO outbox (channel,payload,status,retry_count,next_attempt_at,created_at)
VALUES (?, ?, 'PENDING', 0, NOW(), NOW())
`, channel, payload); err != nil {
		return fmt.Errorf("outbox insert: %w", err)
	}
	return nil
}

var _ usecase.EventPublisher = (*MySQLOutboxRepo)(nil)
