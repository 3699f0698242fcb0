package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/finance-concierge/internal/config"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestSetup(t *testing.T) {
	t.Run("none installs nothing", func(t *testing.T) {
		shutdown, err := Setup(context.Background(), &config.Config{OTelExporter: config.ExporterNone})
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))
	})

	t.Run("unknown exporter", func(t *testing.T) {
		_, err := Setup(context.Background(), &config.Config{OTelExporter: "zipkin"})
		require.Error(t, err)
	})

	t.Run("stdout", func(t *testing.T) {
		shutdown, err := Setup(context.Background(), &config.Config{
			OTelExporter:    config.ExporterStdout,
			OTelServiceName: "finance-concierge-test",
		})
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))
	})
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	t.Run("records instruments", func(t *testing.T) {
		t.Parallel()
		reader := sdkmetric.NewManualReader()
		m, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
		require.NoError(t, err)

		ctx := context.Background()
		m.ExpenseCreated(ctx)
		m.ExpenseCreated(ctx)
		m.ChatMessage(ctx)
		m.AgentDuration(ctx, 1500*time.Microsecond)
		m.BudgetOverLimit(ctx, 3)
		m.BudgetOverLimit(ctx, 0)

		data := collect(t, reader)

		created := data["expenses.created"].(metricdata.Sum[int64])
		require.Equal(t, int64(2), created.DataPoints[0].Value)

		over := data["budget.over_limit"].(metricdata.Sum[int64])
		require.Equal(t, int64(3), over.DataPoints[0].Value)

		hist := data["chat.agent.duration"].(metricdata.Histogram[float64])
		require.Equal(t, uint64(1), hist.DataPoints[0].Count)
		require.InDelta(t, 1.5, hist.DataPoints[0].Sum, 0.0001)
	})

	t.Run("nil metrics is a no-op", func(t *testing.T) {
		t.Parallel()
		var m *Metrics
		m.ExpenseCreated(context.Background())
		m.ChatMessage(context.Background())
		m.AgentDuration(context.Background(), time.Second)
		m.BudgetOverLimit(context.Background(), 1)
	})
}
