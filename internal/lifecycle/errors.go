package lifecycle

import (
	"errors"
	"net/http"
)

// Shared error taxonomy for the table/ticket/order engines. Handlers map
// these onto HTTP status codes; services wrap them with context via %w.
var (
	ErrTableNotFound    = errors.New("table not found")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrItemNotFound     = errors.New("line item not found")
	ErrMenuItemNotFound = errors.New("menu item not found")

	ErrIndexOutOfRange   = errors.New("item index out of range")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrTicketClosed      = errors.New("ticket is closed")
	ErrOrderTerminal     = errors.New("order is in a terminal state")
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrConcurrentUpdate is returned after the optimistic retry budget for
	// a guarded write is exhausted.
	ErrConcurrentUpdate = errors.New("concurrent update conflict")

	// ErrAllocationExhausted is returned when the pickup code allocator
	// cannot draw randomness at all; collisions alone never produce it
	// because the allocator falls back to a time-derived code.
	ErrAllocationExhausted = errors.New("pickup code allocation exhausted")
)

// HTTPStatus translates an engine error into the status code the API
// surfaces. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrTableNotFound),
		errors.Is(err, ErrTicketNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrMenuItemNotFound),
		errors.Is(err, ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrTicketClosed),
		errors.Is(err, ErrOrderTerminal),
		errors.Is(err, ErrIllegalTransition):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, ErrAllocationExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
