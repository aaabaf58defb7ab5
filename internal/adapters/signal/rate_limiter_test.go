package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoomRateLimiter(t *testing.T) {
	clock := time.Unix(1000, 0)
	rl := NewRoomRateLimiter(2, 10*time.Second)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "limits are per connection")

	clock = clock.Add(11 * time.Second)
	assert.True(t, rl.Allow("a"), "window slid past old attempts")

	rl.Forget("a")
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
}
