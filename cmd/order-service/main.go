package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/ordersvc/internal/app"
	"github.com/vladislavdragonenkov/ordersvc/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("log_level", level).Warn("unknown log level, using info")
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

func newRootCommand(run func(ctx context.Context, cfg app.Config) error) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "order-service",
		Short:        "Order management HTTP service",
		Version:      version.String(),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				configPath = os.Getenv("ORDERSVC_CONFIG")
			}
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			setupLogger(cfg.LogLevel)

			log.WithFields(log.Fields{
				"http_addr":      cfg.HTTPAddr,
				"grpc_addr":      cfg.GRPCAddr,
				"metrics_addr":   cfg.MetricsAddr,
				"storage_driver": cfg.StorageDriver,
				"version":        version.GetVersion(),
			}).Info("запускаем order-service")

			if err := run(cmd.Context(), cfg); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info("order-service остановлен")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (fallback: ORDERSVC_CONFIG)")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(app.Run).ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("приложение завершилось с ошибкой")
		os.Exit(1)
	}
}
