// Команда loadtest создаёт нагрузку на HTTP API заказов и печатает отчёт
// о задержках и ошибках по каждому вызову.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type loadMode string

const (
	modeCreate             loadMode = "create"
	modeCreateGet          loadMode = "create-get"
	modeCreateUpdateDelete loadMode = "create-update-delete"
)

type config struct {
	addr         string
	total        int
	totalSet     bool
	duration     time.Duration
	concurrency  int
	timeout      time.Duration
	mode         loadMode
	customerCode string
	productCode  string
	unitPrice    decimal.Decimal
	quantity     int
	outputPath   string
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeCreate, modeCreateGet, modeCreateUpdateDelete:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func (c config) validate() error {
	if strings.TrimSpace(c.addr) == "" {
		return errors.New("addr is required")
	}
	if c.duration < 0 {
		return errors.New("duration must be >= 0")
	}
	if c.duration == 0 && c.total <= 0 {
		return errors.New("total must be > 0 when duration is not set")
	}
	if c.duration > 0 && c.totalSet && c.total <= 0 {
		return errors.New("total must be > 0 when explicitly set with duration")
	}
	if c.concurrency <= 0 {
		return errors.New("concurrency must be > 0")
	}
	if c.timeout <= 0 {
		return errors.New("timeout must be > 0")
	}
	if c.quantity <= 0 {
		return errors.New("quantity must be > 0")
	}
	if c.unitPrice.IsNegative() {
		return errors.New("unit-price must be >= 0")
	}
	if strings.TrimSpace(c.customerCode) == "" {
		return errors.New("customer-code is required")
	}
	if strings.TrimSpace(c.productCode) == "" {
		return errors.New("product-code is required")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		cfg        config
		modeValue  string
		priceValue string
	)

	cmd := &cobra.Command{
		Use:          "loadtest",
		Short:        "Generate load against the order HTTP API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := parseMode(modeValue)
			if err != nil {
				return err
			}
			cfg.mode = mode

			price, err := decimal.NewFromString(strings.TrimSpace(priceValue))
			if err != nil {
				return fmt.Errorf("parse unit-price: %w", err)
			}
			cfg.unitPrice = price
			cfg.totalSet = cmd.Flags().Changed("total")

			if err := cfg.validate(); err != nil {
				return err
			}

			result, err := run(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), result, cfg)
			if cfg.outputPath != "" {
				if err := writeJSONReport(cfg.outputPath, result); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			}
			if result.FailedScenarios > 0 {
				return fmt.Errorf("%d scenarios failed", result.FailedScenarios)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.addr, "addr", "http://localhost:8080", "base URL of the order HTTP API")
	flags.IntVar(&cfg.total, "total", 400, "total scenarios in count mode; with --duration only used when set explicitly")
	flags.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m)")
	flags.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	flags.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	flags.StringVar(&modeValue, "mode", string(modeCreate), "load mode: create | create-get | create-update-delete")
	flags.StringVar(&cfg.customerCode, "customer-code", "LOAD-C", "customer code used for orders")
	flags.StringVar(&cfg.productCode, "product-code", "LOAD-P", "product code used for order lines")
	flags.StringVar(&priceValue, "unit-price", "1.00", "unit price of the load product")
	flags.IntVar(&cfg.quantity, "quantity", 1, "quantity per order line")
	flags.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")

	return cmd
}

// run готовит клиента и товар, затем гоняет сценарии в cfg.concurrency воркерах.
func run(ctx context.Context, cfg config) (report, error) {
	col := newCollector()
	client := newAPIClient(cfg.addr, cfg.timeout, col)

	if err := client.ensureFixtures(ctx, cfg); err != nil {
		return report{}, fmt.Errorf("prepare fixtures: %w", err)
	}

	startedAt := time.Now()
	jobs := make(chan int, cfg.concurrency*2)

	var g errgroup.Group
	for range cfg.concurrency {
		g.Go(func() error {
			for range jobs {
				_ = runScenario(ctx, client, cfg)
			}
			return nil
		})
	}

	dispatchJobs(ctx, jobs, cfg)
	_ = g.Wait()

	return col.buildReport(startedAt, time.Since(startedAt)), nil
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func runScenario(ctx context.Context, client *apiClient, cfg config) (err error) {
	start := time.Now()
	defer func() {
		client.col.record(scenarioMetric, time.Since(start), 0, err == nil)
	}()

	id, err := client.createOrder(ctx, cfg)
	if err != nil {
		return err
	}

	switch cfg.mode {
	case modeCreateGet:
		return client.getOrder(ctx, id)
	case modeCreateUpdateDelete:
		if err := client.updateOrder(ctx, cfg, id); err != nil {
			return err
		}
		return client.deleteOrder(ctx, id)
	}
	return nil
}
