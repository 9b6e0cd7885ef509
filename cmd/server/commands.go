package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpRouter "currency-converter/internal/adapter/http"
	"currency-converter/internal/config"
	"currency-converter/internal/domain/model"
	"currency-converter/internal/metrics"
	"currency-converter/pkg/logger"
	"currency-converter/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "currency-converter",
		Short:        "Convert amounts between currencies using several rate providers",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCommand(), convertCommand())
	return rootCmd
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func convertCommand() *cobra.Command {
	var amount, from, to string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an amount once and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			log := logger.NewLogger(cfg.LogLevel)

			value, err := utils.ParseAmount(amount)
			if err != nil {
				return err
			}

			a := newApp(cfg, log, metrics.NewMetrics(prometheus.NewRegistry()))
			result, err := a.engine.Convert(cmd.Context(), value, model.Currency(from), model.Currency(to))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "1", "amount to convert")
	cmd.Flags().StringVar(&from, "from", "USD", "source currency code")
	cmd.Flags().StringVar(&to, "to", "EUR", "target currency code")
	return cmd
}

func runServe(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Starting currency converter service")

	appMetrics := metrics.NewMetrics(prometheus.DefaultRegisterer)
	a := newApp(cfg, log, appMetrics)

	handler := httpRouter.NewHandler(a.engine, log)
	router := httpRouter.NewRouter(handler, log, appMetrics)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go sweepCache(sweepCtx, a.rateCache, cfg.Cache.TTL, log)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error("HTTP server error", "error", err)
		return err
	case <-quit:
	}
	log.Info("Shutting down server...")

	cancelSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		return err
	}

	log.Info("Server exited")
	return nil
}
