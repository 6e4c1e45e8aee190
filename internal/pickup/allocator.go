package pickup

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"ms-tableside/internal/lifecycle"
)

// Alphabet excludes visually ambiguous characters (0, O, I, l, 1) so codes
// read cleanly off a pickup screen.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of characters in a pickup code.
const CodeLength = 6

// DefaultMaxAttempts bounds the uniqueness-check loop before the
// deterministic fallback kicks in.
const DefaultMaxAttempts = 5

// CodeLookup answers whether a code is already held by a live order.
type CodeLookup interface {
	CodeInUse(ctx context.Context, code string) (bool, error)
}

// Reserver optionally holds a short-lived reservation on a drawn code,
// narrowing the window between the uniqueness check and the order insert.
// A nil Reserver disables reservations; allocation still works on the
// lookup alone.
type Reserver interface {
	ReserveCode(ctx context.Context, code string) (bool, error)
}

// Allocator draws pickup codes and checks them against existing orders.
// It never blocks indefinitely: after MaxAttempts collisions it falls back
// to a composite of a time-derived fragment and a random fragment, trading
// a negligible collision risk for liveness.
type Allocator struct {
	Orders      CodeLookup
	Guard       Reserver
	MaxAttempts int
}

func NewAllocator(orders CodeLookup, guard Reserver) *Allocator {
	return &Allocator{Orders: orders, Guard: guard, MaxAttempts: DefaultMaxAttempts}
}

// Allocate returns a code unique among live orders at allocation time.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	attempts := a.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	for i := 0; i < attempts; i++ {
		code, err := draw(CodeLength)
		if err != nil {
			return "", fmt.Errorf("%w: %v", lifecycle.ErrAllocationExhausted, err)
		}

		inUse, err := a.Orders.CodeInUse(ctx, code)
		if err != nil {
			return "", fmt.Errorf("pickup code lookup: %w", err)
		}
		if inUse {
			continue
		}

		if a.Guard != nil {
			reserved, err := a.Guard.ReserveCode(ctx, code)
			if err != nil || !reserved {
				// Reservation races or a degraded guard both mean redraw.
				continue
			}
		}

		return code, nil
	}

	return a.fallback()
}

// fallback composes the last three base36 digits of the current
// unix-milli timestamp with three random alphabet characters. It is
// deterministic enough to guarantee forward progress under bad luck or a
// stale lookup.
func (a *Allocator) fallback() (string, error) {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	if len(ts) > 3 {
		ts = ts[len(ts)-3:]
	}

	random, err := draw(3)
	if err != nil {
		return "", fmt.Errorf("%w: %v", lifecycle.ErrAllocationExhausted, err)
	}
	return ts + random, nil
}

func draw(n int) (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = Alphabet[idx.Int64()]
	}
	return string(b), nil
}
