package tracing

import (
	"context"
	"testing"

	"github.com/nspcc-dev/txlogger/internal/config"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetup(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		prev := otel.GetTracerProvider()

		shutdown, err := Setup(context.Background(), config.Tracing{Endpoint: "http://192.0.2.1:4318"})
		require.NoError(t, err)
		require.Equal(t, prev, otel.GetTracerProvider())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, shutdown(ctx))
	})

	t.Run("enabled", func(t *testing.T) {
		prev := otel.GetTracerProvider()
		t.Cleanup(func() { otel.SetTracerProvider(prev) })

		// non-routable address, nothing is exported
		shutdown, err := Setup(context.Background(), config.Tracing{
			Enabled:  true,
			Endpoint: "http://192.0.2.1:4318",
			Service:  "txlogger-test",
		})
		require.NoError(t, err)
		require.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())

		require.NoError(t, shutdown(context.Background()))
	})
}
