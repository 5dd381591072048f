package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestIDRoundTripsThroughContext(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	require.Equal(t, "req-1", RequestIDFromContext(ctx))
	require.Equal(t, "", RequestIDFromContext(context.Background()))
}

func TestSubscriptionIDRoundTripsThroughContext(t *testing.T) {
	ctx := ContextWithSubscriptionID(context.Background(), "sub-1")
	require.Equal(t, "sub-1", SubscriptionIDFromContext(ctx))
}

func TestRequestIDFromContext_NilContextIsSafe(t *testing.T) {
	require.Equal(t, "", RequestIDFromContext(nil))
}
