package queue

import (
	"context"

	"github.com/hykura1501/e-commerce/internal/logging"
	"github.com/hykura1501/e-commerce/internal/usecase"
)

const (
	SessionExchange   = "session.events"
	RouteSessionEnded = "session.ended"
	SessionEndedQueue = "cart.session.ended.q"
)

// SessionEnder forgets a visitor session.
type SessionEnder interface {
	End(sessionID string)
}

type SessionEndedHandler struct {
	Sessions SessionEnder
}

// HandleEnded is used with JSONHandler[usecase.SessionEndedMsg].
func (h SessionEndedHandler) HandleEnded(ctx context.Context, msg usecase.SessionEndedMsg) error {
	if msg.SessionID == "" {
		return ErrPoison
	}
	h.Sessions.End(msg.SessionID)
	logging.FromCtx(ctx).Info("session ended", "session_id", msg.SessionID)
	return nil
}
