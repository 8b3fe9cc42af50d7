package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// findFamily возвращает семейство метрик по имени из снимка регистра.
func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	t.Fatalf("metric family %q not found", name)
	return nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, pair := range metric.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}

func TestOrderMetricsRecordOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetricsWithRegisterer(reg)

	m.RecordOperation("order_create", ResultOK, 5*time.Millisecond)
	m.RecordOperation("order_create", "not_found", time.Millisecond)
	m.RecordOrderPriced(30, 1)

	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("order_create", ResultOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("order_create", "not_found")))

	family := findFamily(t, reg, "ordersvc_order_total_amount")
	require.Equal(t, dto.MetricType_HISTOGRAM, family.GetType())
	require.Equal(t, uint64(1), family.GetMetric()[0].GetHistogram().GetSampleCount())
	require.Equal(t, 30.0, family.GetMetric()[0].GetHistogram().GetSampleSum())
}

func TestOrderMetricsReuseRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewOrderMetricsWithRegisterer(reg)
	second := NewOrderMetricsWithRegisterer(reg)

	first.RecordOperation("product_create", ResultOK, time.Millisecond)
	second.RecordOperation("product_create", ResultOK, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(first.operations.WithLabelValues("product_create", ResultOK)))
}

func TestNilMetricsAreNoop(t *testing.T) {
	var orders *OrderMetrics
	var outbox *OutboxMetrics
	var api *HTTPMetrics

	require.NotPanics(t, func() {
		orders.RecordOperation("x", ResultOK, time.Second)
		orders.RecordOrderPriced(1, 1)
		outbox.RecordPublish(OutboxSent)
		outbox.SetBacklog(1, time.Now(), time.Now())
	})

	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	require.NotNil(t, api.Instrument("noop", handler))
}

func TestOutboxMetricsBacklog(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	now := time.Now()
	m.SetBacklog(3, now.Add(-10*time.Second), now)
	m.RecordPublish(OutboxSent)
	m.RecordPublish(OutboxRetryError)
	m.RecordPublish(OutboxRetryError)

	require.Equal(t, 3.0, testutil.ToFloat64(m.PendingRecords()))
	require.InDelta(t, 10.0, testutil.ToFloat64(m.oldestPendingAge), 0.001)
	require.Equal(t, 2.0, testutil.ToFloat64(m.PublishAttempts().WithLabelValues(OutboxRetryError)))
}

func TestHTTPMetricsInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	handler := m.Instrument("orders_get", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/1", nil))

	family := findFamily(t, reg, "ordersvc_http_requests_total")
	require.Len(t, family.GetMetric(), 1)
	metric := family.GetMetric()[0]
	require.Equal(t, "orders_get", labelValue(metric, "handler"))
	require.Equal(t, "get", labelValue(metric, "method"))
	require.Equal(t, "404", labelValue(metric, "code"))
	require.Equal(t, 1.0, metric.GetCounter().GetValue())
}
