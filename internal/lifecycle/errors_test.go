package lifecycle

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ErrTableNotFound, http.StatusNotFound},
		{ErrTicketNotFound, http.StatusNotFound},
		{ErrOrderNotFound, http.StatusNotFound},
		{ErrItemNotFound, http.StatusNotFound},
		{ErrMenuItemNotFound, http.StatusNotFound},
		{ErrIndexOutOfRange, http.StatusNotFound},
		{ErrInvalidArgument, http.StatusBadRequest},
		{ErrTicketClosed, http.StatusPreconditionFailed},
		{ErrOrderTerminal, http.StatusPreconditionFailed},
		{ErrIllegalTransition, http.StatusPreconditionFailed},
		{ErrConcurrentUpdate, http.StatusConflict},
		{ErrAllocationExhausted, http.StatusServiceUnavailable},
		{errors.New("something else"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestHTTPStatusUnwrapsContext(t *testing.T) {
	wrapped := fmt.Errorf("updating ticket t_1: %w", ErrConcurrentUpdate)
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))

	wrapped = fmt.Errorf("closing ticket t_1: %w", ErrTicketClosed)
	assert.Equal(t, http.StatusPreconditionFailed, HTTPStatus(wrapped))
}
