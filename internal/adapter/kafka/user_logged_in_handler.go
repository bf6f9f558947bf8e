package kafka

import (
	"context"
	"errors"

	"github.com/hykura1501/e-commerce/internal/adapter/observ"
	"github.com/hykura1501/e-commerce/internal/logging"
	"github.com/hykura1501/e-commerce/internal/usecase"
)

const TopicUserLoggedIn = "user.logged_in"

var errIncompleteLogin = errors.New("login event without session or user")

// Login switches an anonymous session to its user's remote cart.
type Login interface {
	Login(ctx context.Context, sessionID, userID string) error
}

type UserLoggedInHandler struct {
	Sessions Login
	Metrics  *observ.Metrics // optional
}

func (h *UserLoggedInHandler) Handle(ctx context.Context, ev usecase.UserLoggedInMsg) error {
	if ev.SessionID == "" || ev.UserID == "" {
		h.count("invalid")
		logging.FromCtx(ctx).Warn("login event dropped", "err", errIncompleteLogin)
		return nil
	}
	if err := h.Sessions.Login(ctx, ev.SessionID, ev.UserID); err != nil {
		h.count("failed")
		return err
	}
	h.count("applied")
	logging.FromCtx(ctx).Info("session logged in", "session_id", ev.SessionID, "user_id", ev.UserID)
	return nil
}

func (h *UserLoggedInHandler) count(result string) {
	if h.Metrics != nil {
		h.Metrics.LoginEvents.WithLabelValues(result).Inc()
	}
}
