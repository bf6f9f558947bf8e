package usecase

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeEmptySelection     Code = "empty_selection"
	CodeUnauthenticated    Code = "unauthenticated"
	CodeIncompleteProfile  Code = "incomplete_profile"
	CodeRemoteRejected     Code = "remote_rejected"
	CodeOrderRejected      Code = "order_rejected"
	CodePersistenceFailure Code = "persistence_failure"
	CodeNotReady           Code = "not_ready"
	CodeItemNotFound       Code = "item_not_found"
	CodeInvalidQuantity    Code = "invalid_quantity"
)

// User-facing messages.
const (
	MsgEmptySelection     = "Please select items to checkout"
	MsgUnauthenticated    = "Please log in to before checkout"
	MsgIncompleteProfile  = "Please update your information before checkout"
	MsgRemoteRejected     = "The cart service rejected the change, please try again"
	MsgOrderRejected      = "We could not place your order, please try again"
	MsgPersistenceFailure = "Your cart could not be saved on this device and may be out of date"
	MsgNotReady           = "The cart is still loading"
	MsgItemNotFound       = "Item not in cart"
	MsgInvalidQuantity    = "Quantity must be between 1 and 999"
)

// CartError carries a stable code, a message fit for display, and the cause if any.
type CartError struct {
	Code    Code
	Message string
	Err     error
}

func (e *CartError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CartError) Unwrap() error { return e.Err }

// Is matches on Code so errors.Is(err, ErrOrderRejected) works for any message.
func (e *CartError) Is(target error) bool {
	t, ok := target.(*CartError)
	return ok && t.Code == e.Code
}

var (
	ErrEmptySelection     = &CartError{Code: CodeEmptySelection, Message: MsgEmptySelection}
	ErrUnauthenticated    = &CartError{Code: CodeUnauthenticated, Message: MsgUnauthenticated}
	ErrIncompleteProfile  = &CartError{Code: CodeIncompleteProfile, Message: MsgIncompleteProfile}
	ErrRemoteRejected     = &CartError{Code: CodeRemoteRejected, Message: MsgRemoteRejected}
	ErrOrderRejected      = &CartError{Code: CodeOrderRejected, Message: MsgOrderRejected}
	ErrPersistenceFailure = &CartError{Code: CodePersistenceFailure, Message: MsgPersistenceFailure}
	ErrNotReady           = &CartError{Code: CodeNotReady, Message: MsgNotReady}
	ErrItemNotFound       = &CartError{Code: CodeItemNotFound, Message: MsgItemNotFound}
	ErrInvalidQuantity    = &CartError{Code: CodeInvalidQuantity, Message: MsgInvalidQuantity}
)

var ErrDuplicate = errors.New("duplicate idempotency key")

func newRemoteRejected(op string, st RemoteStatus, err error) *CartError {
	msg := st.Message
	if msg == "" {
		msg = MsgRemoteRejected
	}
	if err == nil {
		err = fmt.Errorf("remote %s: status %d", op, st.Code)
	} else {
		err = fmt.Errorf("remote %s: %w", op, err)
	}
	return &CartError{Code: CodeRemoteRejected, Message: msg, Err: err}
}

func newOrderRejected(msg string, err error) *CartError {
	if msg == "" {
		msg = MsgOrderRejected
	}
	return &CartError{Code: CodeOrderRejected, Message: msg, Err: err}
}

func newPersistenceFailure(err error) *CartError {
	return &CartError{Code: CodePersistenceFailure, Message: MsgPersistenceFailure, Err: err}
}

// CodeOf extracts the CartError code, or "" for foreign errors.
func CodeOf(err error) Code {
	var ce *CartError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// MessageOf returns the display message of a CartError, or a generic one.
func MessageOf(err error) string {
	var ce *CartError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return "internal error"
}
