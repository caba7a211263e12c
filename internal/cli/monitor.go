package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/efredriksson/provvakt/internal/adapter/driven/trafikverket"
	httphandler "github.com/efredriksson/provvakt/internal/adapter/driving/http"
	"github.com/efredriksson/provvakt/internal/application"
)

// MonitorCmd returns the monitor command: the long-running loop that polls
// every configured location, keeps the session alive in the background, and
// serves the diagnostics API.
func MonitorCmd() *cobra.Command {
	var (
		examTypeName string
		interval     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Continuously poll for newly opened exam slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			examType, err := parseExamType(examTypeName)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if interval > 0 {
				cfg.PollInterval = interval
			}

			locations := cfg.Locations[examType]
			if len(locations) == 0 {
				slog.Warn("no locations configured for exam type", "exam_type", examType)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeQuietly(db)

			sessions := newSessionManager(cfg)
			client := trafikverket.NewClient(sessions, cfg.SwedishSSN, userAgent(cfg), examType)

			sessions.StartBackgroundRenewal(cfg.RenewalCheckInterval)
			defer sessions.StopBackgroundRenewal()

			monitor := application.NewMonitorService(client, store, sessions, examType, locations, cfg.PollInterval)
			go monitor.Start(ctx)

			handler := httphandler.NewHandler(store, sessions, examType, slog.Default())
			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           httphandler.NewServeMux(handler, slog.Default()),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			go func() {
				slog.Info("diagnostics server starting", "addr", cfg.ListenAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("diagnostics server error", "error", err)
				}
			}()

			slog.Info("provvakt monitoring started",
				"exam_type", examType,
				"locations", len(locations),
				"poll_interval", cfg.PollInterval,
			)

			<-ctx.Done()
			slog.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("diagnostics server shutdown error", "error", err)
			}

			slog.Info("shutdown complete")
			return nil
		},
	}

	examTypeFlag(cmd, &examTypeName)
	cmd.Flags().DurationVarP(&interval, "interval", "i", 0,
		"poll interval override (default from config)")

	return cmd
}
