package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ordersvc/internal/httpapi"
	"github.com/vladislavdragonenkov/ordersvc/internal/metrics"
	"github.com/vladislavdragonenkov/ordersvc/internal/pricing"
	"github.com/vladislavdragonenkov/ordersvc/internal/service/customers"
	"github.com/vladislavdragonenkov/ordersvc/internal/service/orders"
	"github.com/vladislavdragonenkov/ordersvc/internal/service/products"
	"github.com/vladislavdragonenkov/ordersvc/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.NewStore()
	handler := httpapi.NewHandler(
		orders.NewService(store, pricing.NewEngine()),
		customers.NewService(store, nil, nil),
		products.NewService(store, nil, nil),
		metrics.NewHTTPMetrics(prometheus.NewRegistry()),
		nil,
	)
	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(addr string, mode loadMode) config {
	return config{
		addr:         addr,
		total:        12,
		concurrency:  4,
		timeout:      2 * time.Second,
		mode:         mode,
		customerCode: "LOAD-C",
		productCode:  "LOAD-P",
		unitPrice:    decimal.RequireFromString("2.50"),
		quantity:     2,
	}
}

func TestParseMode(t *testing.T) {
	for _, mode := range []loadMode{modeCreate, modeCreateGet, modeCreateUpdateDelete} {
		got, err := parseMode(" " + string(mode) + " ")
		require.NoError(t, err)
		require.Equal(t, mode, got)
	}

	_, err := parseMode("create-pay")
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := testConfig("http://localhost:8080", modeCreate)
	require.NoError(t, valid.validate())

	tests := map[string]func(*config){
		"addr is required":       func(c *config) { c.addr = "" },
		"duration must be >= 0":  func(c *config) { c.duration = -time.Second },
		"total must be > 0":      func(c *config) { c.total = 0 },
		"concurrency must be":    func(c *config) { c.concurrency = 0 },
		"timeout must be":        func(c *config) { c.timeout = 0 },
		"quantity must be":       func(c *config) { c.quantity = 0 },
		"unit-price must be":     func(c *config) { c.unitPrice = decimal.NewFromInt(-1) },
		"customer-code is":       func(c *config) { c.customerCode = " " },
		"product-code is":        func(c *config) { c.productCode = "" },
	}
	for want, mutate := range tests {
		t.Run(want, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			require.ErrorContains(t, cfg.validate(), want)
		})
	}

	withDuration := valid
	withDuration.duration = time.Second
	withDuration.total = 0
	require.NoError(t, withDuration.validate())
}

func TestRun_Modes(t *testing.T) {
	srv := newTestServer(t)

	for _, mode := range []loadMode{modeCreate, modeCreateGet, modeCreateUpdateDelete} {
		t.Run(string(mode), func(t *testing.T) {
			result, err := run(context.Background(), testConfig(srv.URL, mode))
			require.NoError(t, err)
			require.EqualValues(t, 12, result.TotalScenarios)
			require.Zero(t, result.FailedScenarios)
			require.EqualValues(t, 12, result.Calls["create_order"].Success)

			switch mode {
			case modeCreateGet:
				require.EqualValues(t, 12, result.Calls["get_order"].Statuses["200"])
			case modeCreateUpdateDelete:
				require.EqualValues(t, 12, result.Calls["update_order"].Success)
				require.EqualValues(t, 12, result.Calls["delete_order"].Statuses["204"])
			}
		})
	}
}

func TestRun_FixturesAreIdempotent(t *testing.T) {
	srv := newTestServer(t)
	cfg := testConfig(srv.URL, modeCreate)
	cfg.total = 1

	_, err := run(context.Background(), cfg)
	require.NoError(t, err)

	result, err := run(context.Background(), cfg)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.Calls["setup_customer"].Statuses["409"])
	require.Zero(t, result.FailedScenarios)
}

func TestRun_FailedScenarios(t *testing.T) {
	srv := newTestServer(t)
	cfg := testConfig(srv.URL, modeCreate)
	cfg.total = 3
	// товар с ценой 2.50 уже создан, а ожидаемая сумма считается от 3.00
	_, err := run(context.Background(), cfg)
	require.NoError(t, err)

	cfg.unitPrice = decimal.RequireFromString("3.00")
	result, err := run(context.Background(), cfg)
	require.NoError(t, err)
	require.EqualValues(t, 3, result.FailedScenarios)
	require.InDelta(t, 1.0, result.ErrorRate, 0.0001)
}

func TestRun_Unreachable(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1", modeCreate)
	cfg.timeout = 200 * time.Millisecond

	_, err := run(context.Background(), cfg)
	require.ErrorContains(t, err, "prepare fixtures")
}

func TestDispatchJobs(t *testing.T) {
	jobs := make(chan int, 10)
	dispatchJobs(context.Background(), jobs, config{total: 5})

	var got []int
	for id := range jobs {
		got = append(got, id)
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, got)

	jobs = make(chan int)
	done := make(chan struct{})
	go func() {
		dispatchJobs(context.Background(), jobs, config{duration: 30 * time.Millisecond})
		close(done)
	}()
	for range jobs {
	}
	<-done
}

func TestLatencySummaryAndPercentile(t *testing.T) {
	summary := buildLatencySummary([]float64{4, 1, 3, 2})
	require.Equal(t, 1.0, summary.Min)
	require.Equal(t, 4.0, summary.Max)
	require.Equal(t, 2.5, summary.Avg)
	require.Equal(t, 2.5, summary.P50)

	require.Zero(t, percentile(nil, 50))
	require.Equal(t, 7.0, percentile([]float64{7}, 99))
	require.Zero(t, ratio(1, 0))
}

func TestRootCommand_WritesReport(t *testing.T) {
	srv := newTestServer(t)
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--addr", srv.URL,
		"--total", "5",
		"--concurrency", "2",
		"--mode", string(modeCreateGet),
		"--unit-price", "1.25",
		"--output", "report.json",
	})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "mode=create-get run=count:5 total=5 success=5 failed=0")

	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	var saved report
	require.NoError(t, json.Unmarshal(data, &saved))
	require.EqualValues(t, 5, saved.TotalScenarios)
}

func TestWriteJSONReport_RejectsOutsidePaths(t *testing.T) {
	require.Error(t, writeJSONReport(".", report{}))
	require.Error(t, writeJSONReport("../report.json", report{}))
}
