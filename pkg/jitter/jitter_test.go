package jitter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff_NoJitter(t *testing.T) {
	base, maxDelay := time.Second, 10*time.Second

	assert.Equal(t, 1*time.Second, ExponentialBackoff(base, maxDelay, 0, 0))
	assert.Equal(t, 2*time.Second, ExponentialBackoff(base, maxDelay, 1, 0))
	assert.Equal(t, 4*time.Second, ExponentialBackoff(base, maxDelay, 2, 0))
	assert.Equal(t, 8*time.Second, ExponentialBackoff(base, maxDelay, 3, 0))
	assert.Equal(t, 10*time.Second, ExponentialBackoff(base, maxDelay, 4, 0))
	assert.Equal(t, 10*time.Second, ExponentialBackoff(base, maxDelay, 20, 0))
}

func TestExponentialBackoff_BaseAboveMax(t *testing.T) {
	assert.Equal(t, time.Second, ExponentialBackoff(5*time.Second, time.Second, 0, 0))
}

func TestExponentialBackoff_JitterStaysUnderMax(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 10 * time.Second, Jitter: DefaultJitter}

	for i := 0; i < 1000; i++ {
		assert.LessOrEqual(t, b.Next(6), b.Max)
		assert.LessOrEqual(t, b.Next(60), b.Max)
	}
}

func TestExponentialBackoff_JitterBelowMax(t *testing.T) {
	base, maxDelay := time.Second, 10*time.Second
	for i := 0; i < 100; i++ {
		got := ExponentialBackoff(base, maxDelay, 1, DefaultJitter)
		assert.GreaterOrEqual(t, got, 2*time.Second)
		assert.LessOrEqual(t, got, 3*time.Second)
	}
}

func TestDuration_JitterRange(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		got := Duration(d, DefaultJitter)
		assert.GreaterOrEqual(t, got, d)
		assert.LessOrEqual(t, got, d+d/2)
	}
}

func TestBackoff_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := Backoff{Base: time.Hour, Max: time.Hour}
	assert.False(t, b.Sleep(ctx, 0))
}

func TestBackoff_SleepElapses(t *testing.T) {
	b := Backoff{Base: time.Millisecond, Max: time.Millisecond}
	assert.True(t, b.Sleep(context.Background(), 3))
}
