// Package jitter предоставляет экспоненциальные интервалы отступления (backoff) с опциональной
// случайной добавкой, чтобы повторные запросы разных экземпляров не совпадали по времени.
package jitter

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DefaultJitter - стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

var (
	globalRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	randMutex  sync.Mutex
)

// Duration возвращает продолжительность с применённым джиттером.
// Результат находится в диапазоне [d, d*(1+jitterFactor)]. При jitterFactor <= 0 возвращает d.
func Duration(d time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return d
	}

	randMutex.Lock()
	jitter := globalRand.Float64() * jitterFactor * float64(d)
	randMutex.Unlock()
	return d + time.Duration(jitter)
}

// ExponentialBackoff вычисляет base*2^attempt, добавляет джиттер и ограничивает результат maxDelay.
// Джиттер не выводит задержку за maxDelay. attempt нумеруется с нуля.
func ExponentialBackoff(base, maxDelay time.Duration, attempt int, jitterFactor float64) time.Duration {
	backoff := base
	for i := 0; i < attempt && backoff < maxDelay; i++ {
		backoff *= 2
	}
	return min(Duration(min(backoff, maxDelay), jitterFactor), maxDelay)
}

// Backoff - параметры экспоненциального отступления, удобные для передачи через конфиг.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

// Next возвращает задержку перед попыткой attempt+1.
func (b Backoff) Next(attempt int) time.Duration {
	return ExponentialBackoff(b.Base, b.Max, attempt, b.Jitter)
}

// Sleep ждёт задержку для attempt или завершения контекста.
// Возвращает false, если контекст завершился раньше.
func (b Backoff) Sleep(ctx context.Context, attempt int) bool {
	timer := time.NewTimer(b.Next(attempt))
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
