package rtimer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArmFiresAfterTimeout(t *testing.T) {
	c := New(20*time.Millisecond, 3)
	c.Arm()
	assert.False(t, c.Fired())
	time.Sleep(60 * time.Millisecond)
	assert.True(t, c.Fired())
	assert.False(t, c.Fired(), "Fired should clear after being observed")
	assert.Equal(t, 1, c.Count())
}

func TestDisarmCancelsPendingExpiry(t *testing.T) {
	c := New(20*time.Millisecond, 3)
	c.Arm()
	c.Disarm()
	time.Sleep(40 * time.Millisecond)
	assert.False(t, c.Fired())
	assert.Equal(t, 0, c.Count())
}

func TestResetCountZeroesRetryBudget(t *testing.T) {
	c := New(20*time.Millisecond, 3)
	c.Arm()
	time.Sleep(40 * time.Millisecond)
	c.Fired()
	assert.Equal(t, 1, c.Count())
	c.ResetCount()
	assert.Equal(t, 0, c.Count())
	assert.False(t, c.Exhausted())
}

func TestExhausted(t *testing.T) {
	c := New(5*time.Millisecond, 2)
	for i := 0; i < 3; i++ {
		c.Arm()
		time.Sleep(15 * time.Millisecond)
		c.Fired()
	}
	assert.True(t, c.Exhausted())
}
