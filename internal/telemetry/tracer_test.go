package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProvider_DisabledUsesNoopProviderAndShutsDownCleanly(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_EnabledRejectsUnknownExporterType(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "carrier-pigeon"})
	require.Error(t, err)
}

func TestTracer_ReturnsUsableTracer(t *testing.T) {
	tracer := Tracer("videofeedd-test")
	_, span := tracer.Start(context.Background(), "op")
	defer span.End()
	require.NotNil(t, span)
}
