package usecase

import "time"

// CheckoutEvent is emitted once per checkout attempt, successful or not.
type CheckoutEvent struct {
	SessionID  string    `json:"sessionId"`
	UserID     string    `json:"userId,omitempty"`
	Success    bool      `json:"success"`
	OrderID    string    `json:"orderId,omitempty"`
	Code       Code      `json:"code,omitempty"`
	Message    string    `json:"message,omitempty"`
	Total      string    `json:"total,omitempty"`
	ProductIDs []string  `json:"productIds"`
	At         time.Time `json:"at"`
}

// Sent by the auth service on Kafka when a visitor signs in.
type UserLoggedInMsg struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// Sent by the auth service on RabbitMQ when a visitor signs out or the
// session expires upstream.
type SessionEndedMsg struct {
	SessionID string `json:"session_id"`
}
