package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff_NextStaysWithinHalfOpenBand(t *testing.T) {
	b := NewBackoff()
	for i := 0; i < 10; i++ {
		d := b.Next()
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.LessOrEqual(t, d, b.Max)
	}
}

func TestBackoff_ClampsAtMaxAfterManyAttempts(t *testing.T) {
	b := NewBackoff()
	b.Attempt = 40 // overflow territory for Base << Attempt
	d := b.Next()
	require.LessOrEqual(t, d, b.Max)
}

func TestBackoff_ResetZeroesAttempt(t *testing.T) {
	b := NewBackoff()
	b.Next()
	b.Next()
	require.Greater(t, b.Attempt, 0)
	b.Reset()
	require.Equal(t, 0, b.Attempt)
}
