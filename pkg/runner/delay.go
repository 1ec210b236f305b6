package runner

import (
	"context"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultDelay is the pause after each remote call when none is configured.
	DefaultDelay = 1200 * time.Millisecond

	// MinDelay is the smallest pause allowed between remote calls.
	MinDelay = 250 * time.Millisecond
)

// ClampDelay applies the default for zero or negative values and the floor for small ones.
func ClampDelay(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultDelay
	}
	if d < MinDelay {
		return MinDelay
	}
	return d
}

// ParseDelay accepts a Go duration ("1.5s") or a bare millisecond count ("1200").
// Unparseable input yields DefaultDelay.
func ParseDelay(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultDelay
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		return ClampDelay(time.Duration(ms * float64(time.Millisecond)))
	}
	if d, err := time.ParseDuration(s); err == nil {
		return ClampDelay(d)
	}
	return DefaultDelay
}

// WaitFunc pauses for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default WaitFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
