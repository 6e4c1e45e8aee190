package pickup_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-tableside/internal/pickup"
)

type MockCodeLookup struct {
	mock.Mock
}

func (m *MockCodeLookup) CodeInUse(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

type MockReserver struct {
	mock.Mock
}

func (m *MockReserver) ReserveCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func assertWellFormed(t *testing.T, code string) {
	t.Helper()
	assert.Len(t, code, pickup.CodeLength)
	for _, c := range code {
		assert.True(t, strings.ContainsRune(pickup.Alphabet, c), "character %q not in alphabet", c)
	}
}

func TestAllocateReturnsUnusedCode(t *testing.T) {
	lookup := new(MockCodeLookup)
	lookup.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)

	allocator := pickup.NewAllocator(lookup, nil)
	code, err := allocator.Allocate(context.Background())

	assert.NoError(t, err)
	assertWellFormed(t, code)
	lookup.AssertNumberOfCalls(t, "CodeInUse", 1)
}

func TestAllocateRetriesOnCollision(t *testing.T) {
	lookup := new(MockCodeLookup)
	lookup.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(true, nil).Twice()
	lookup.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(false, nil).Once()

	allocator := pickup.NewAllocator(lookup, nil)
	code, err := allocator.Allocate(context.Background())

	assert.NoError(t, err)
	assertWellFormed(t, code)
	lookup.AssertNumberOfCalls(t, "CodeInUse", 3)
}

func TestAllocateFallsBackAfterExhaustion(t *testing.T) {
	lookup := new(MockCodeLookup)
	lookup.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(true, nil)

	allocator := pickup.NewAllocator(lookup, nil)
	code, err := allocator.Allocate(context.Background())

	// The fallback never re-checks the lookup, so it always yields a code.
	assert.NoError(t, err)
	assert.Len(t, code, pickup.CodeLength)
	lookup.AssertNumberOfCalls(t, "CodeInUse", pickup.DefaultMaxAttempts)
}

func TestAllocateRedrawsWhenReservationLost(t *testing.T) {
	lookup := new(MockCodeLookup)
	lookup.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)

	guard := new(MockReserver)
	guard.On("ReserveCode", mock.Anything, mock.AnythingOfType("string")).Return(false, nil).Once()
	guard.On("ReserveCode", mock.Anything, mock.AnythingOfType("string")).Return(true, nil).Once()

	allocator := pickup.NewAllocator(lookup, guard)
	code, err := allocator.Allocate(context.Background())

	assert.NoError(t, err)
	assertWellFormed(t, code)
	guard.AssertNumberOfCalls(t, "ReserveCode", 2)
}

func TestDistinctCodesAcrossAllocations(t *testing.T) {
	lookup := new(MockCodeLookup)
	lookup.On("CodeInUse", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)

	allocator := pickup.NewAllocator(lookup, nil)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := allocator.Allocate(context.Background())
		assert.NoError(t, err)
		assert.False(t, seen[code], "code %s allocated twice", code)
		seen[code] = true
	}
}
