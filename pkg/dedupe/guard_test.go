package dedupe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldDispatchSuppressesWithinWindow(t *testing.T) {
	guard := NewGuard()

	assert.True(t, guard.ShouldDispatch("trade-1", 50*time.Millisecond))
	assert.False(t, guard.ShouldDispatch("trade-1", 50*time.Millisecond))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, guard.ShouldDispatch("trade-1", 50*time.Millisecond))
}

func TestShouldDispatchIndependentKeys(t *testing.T) {
	guard := NewGuard()

	assert.True(t, guard.ShouldDispatch("trade-1", time.Minute))
	assert.True(t, guard.ShouldDispatch("exit_trade-1", time.Minute))
	assert.False(t, guard.ShouldDispatch("trade-1", time.Minute))
}

func TestClaimIsExclusiveUntilReleased(t *testing.T) {
	guard := NewGuard()

	assert.True(t, guard.Claim("sub:1"))
	assert.False(t, guard.Claim("sub:1"))

	guard.Release("sub:1")
	assert.True(t, guard.Claim("sub:1"))
}

func TestReleaseUnclaimedKeyIsNoOp(t *testing.T) {
	guard := NewGuard()

	guard.Release("sub:missing")
	assert.True(t, guard.Claim("sub:missing"))
}
