// Package jitter добавляет случайность в интервалы повторов, чтобы клиенты,
// упавшие одновременно, не повторяли запросы синхронно.
package jitter

import (
	"math/rand/v2"
	"time"
)

// DefaultJitter — стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

// Duration возвращает d, увеличенную на случайную долю в диапазоне [0, jitterFactor).
func Duration(d time.Duration, jitterFactor float64) time.Duration {
	return withRand(d, jitterFactor, rand.Float64)
}

// ExponentialBackoff удваивает base на каждой попытке (нумерация с нуля), не превышая max,
// и добавляет джиттер.
func ExponentialBackoff(base, max time.Duration, attempt int, jitterFactor float64) time.Duration {
	return Duration(backoff(base, max, attempt), jitterFactor)
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}

	return d
}

func withRand(d time.Duration, jitterFactor float64, float func() float64) time.Duration {
	if jitterFactor <= 0 || d <= 0 {
		return d
	}

	return d + time.Duration(float()*jitterFactor*float64(d))
}
