package orders

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	for _, s := range []string{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded, StatusReturned} {
		assert.True(t, IsValid(s), s)
	}
	assert.False(t, IsValid("archived"))
	assert.False(t, IsValid(""))
}

func TestCanCancel(t *testing.T) {
	assert.True(t, CanCancel(StatusPending))
	assert.True(t, CanCancel(StatusProcessing))
	assert.False(t, CanCancel(StatusShipped))
	assert.False(t, CanCancel(StatusDelivered))
	assert.False(t, CanCancel(StatusCancelled))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusProcessing))
	assert.True(t, CanTransition(StatusProcessing, StatusShipped))
	assert.True(t, CanTransition(StatusShipped, StatusDelivered))
	assert.True(t, CanTransition(StatusDelivered, StatusReturned))

	// No going backwards
	assert.False(t, CanTransition(StatusDelivered, StatusProcessing))
	assert.False(t, CanTransition(StatusShipped, StatusPending))

	// Cancelled/refunded are only reachable via their dedicated operations
	assert.False(t, CanTransition(StatusPending, StatusCancelled))
	assert.False(t, CanTransition(StatusDelivered, StatusRefunded))

	// Terminal states go nowhere
	assert.False(t, CanTransition(StatusCancelled, StatusProcessing))
	assert.False(t, CanTransition(StatusRefunded, StatusShipped))
}

func TestNewOrderNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-[0-9A-Z]+-[0-9A-F]{4}$`)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := NewOrderNumber()
		assert.True(t, pattern.MatchString(n), n)
		assert.True(t, strings.HasPrefix(n, "ORD-"))
		seen[n] = true
	}
	// The random suffix should keep numbers minted in the same millisecond apart
	assert.Greater(t, len(seen), 90)
}
