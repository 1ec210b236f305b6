package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampDelay(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"zero uses default", 0, DefaultDelay},
		{"negative uses default", -time.Second, DefaultDelay},
		{"below floor", 100 * time.Millisecond, MinDelay},
		{"at floor", MinDelay, MinDelay},
		{"above floor", 3 * time.Second, 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampDelay(tt.in))
		})
	}
}

func TestParseDelay(t *testing.T) {
	assert.Equal(t, DefaultDelay, ParseDelay(""))
	assert.Equal(t, DefaultDelay, ParseDelay("abc"))
	assert.Equal(t, DefaultDelay, ParseDelay("0"))
	assert.Equal(t, MinDelay, ParseDelay("100"))
	assert.Equal(t, 1500*time.Millisecond, ParseDelay("1500"))
	assert.Equal(t, 2*time.Second, ParseDelay("2s"))
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
