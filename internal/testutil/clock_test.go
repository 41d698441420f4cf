package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_StartsAtEpoch(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestFakeClock_AdvanceFiresDueTimersInOrder(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	var fired []string

	clock.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	clock.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	clock.AfterFunc(5*time.Second, func() { fired = append(fired, "late") })

	clock.Advance(2 * time.Second)

	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, 1, clock.Pending())
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Now())
}

func TestFakeClock_StopPreventsCall(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	called := false

	stop := clock.AfterFunc(time.Second, func() { called = true })
	assert.True(t, stop())
	assert.False(t, stop(), "second stop reports nothing prevented")

	clock.Advance(time.Minute)
	assert.False(t, called)
	assert.Equal(t, 0, clock.Pending())
}

func TestFakeClock_CallbackCanReschedule(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	ticks := 0

	var tick func()
	tick = func() {
		ticks++
		if ticks < 5 {
			clock.AfterFunc(time.Second, tick)
		}
	}
	clock.AfterFunc(time.Second, tick)

	clock.Advance(3 * time.Second)
	assert.Equal(t, 3, ticks)

	clock.Advance(10 * time.Second)
	assert.Equal(t, 5, ticks)
	assert.Equal(t, 0, clock.Pending())
}

func TestFakeClock_StopAfterFireReturnsFalse(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	stop := clock.AfterFunc(time.Second, func() {})
	clock.Advance(time.Second)
	assert.False(t, stop())
}
