// Package apperr holds the error taxonomy shared by the ledger, the order
// orchestrator and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindInsufficientStock   Kind = "INSUFFICIENT_STOCK"
	KindAlreadyCanceled     Kind = "ALREADY_CANCELED"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindInvalid             Kind = "INVALID"
	KindConflict            Kind = "CONFLICT"
	KindInternal            Kind = "INTERNAL"
)

// Sentinels for errors.Is; any *Error of the same Kind matches.
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInsufficientStock   = &Error{Kind: KindInsufficientStock}
	ErrAlreadyCanceled     = &Error{Kind: KindAlreadyCanceled}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	ErrInvalid             = &Error{Kind: KindInvalid}
	ErrConflict            = &Error{Kind: KindConflict}
)

type Error struct {
	Kind      Kind
	ProductID string
	OrderID   string
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.ProductID != "":
		msg = fmt.Sprintf("%s (product %s)", msg, e.ProductID)
	case e.OrderID != "":
		msg = fmt.Sprintf("%s (order %s)", msg, e.OrderID)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NotFound(productID, msg string) *Error {
	return &Error{Kind: KindNotFound, ProductID: productID, Msg: msg}
}

func OrderNotFound(orderID string) *Error {
	return &Error{Kind: KindNotFound, OrderID: orderID, Msg: "order not found"}
}

func InsufficientStock(productID string) *Error {
	return &Error{Kind: KindInsufficientStock, ProductID: productID, Msg: "insufficient stock"}
}

func AlreadyCanceled(orderID string) *Error {
	return &Error{Kind: KindAlreadyCanceled, OrderID: orderID, Msg: "order already canceled"}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

func Upstream(productID string, err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, ProductID: productID, Msg: "upstream unavailable", Err: err}
}

func Invalid(msg string) *Error {
	return &Error{Kind: KindInvalid, Msg: msg}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code the HTTP surface reports.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientStock, KindAlreadyCanceled, KindInvalid:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Public is the message safe to return to a caller. Internal errors are not exposed.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		if e.Kind == KindUpstreamUnavailable {
			return (&Error{Kind: e.Kind, ProductID: e.ProductID, OrderID: e.OrderID, Msg: e.Msg}).Error()
		}
		return e.Error()
	}
	return "internal server error"
}
