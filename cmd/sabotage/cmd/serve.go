package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cryptocrew/internal/config"
	"cryptocrew/internal/domain"
	"cryptocrew/internal/logging"
	"cryptocrew/internal/ports"
	"cryptocrew/internal/ports/ledger"
	"cryptocrew/internal/ports/ws"
)

type serveOptions struct {
	addr         string
	configPath   string
	logDir       string
	logLevel     string
	ledgerURL    string
	ledgerSecret string
	tick         time.Duration
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket match gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", ":8080", "listen address")
	f.StringVar(&opts.configPath, "config", "data/game_config.json", "game config JSON")
	f.StringVar(&opts.logDir, "log-dir", "", "directory for per-game audit logs")
	f.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	f.StringVar(&opts.ledgerURL, "ledger-url", "", "payout ledger endpoint (overrides config)")
	f.StringVar(&opts.ledgerSecret, "ledger-secret", "", "payout ledger signing secret (overrides config)")
	f.DurationVar(&opts.tick, "tick", time.Second, "match tick interval")
	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	logger := logging.New(os.Stderr, logging.ParseLevel(opts.logLevel))

	cfg := config.GameConfig{}
	if err := config.LoadGameConfig(opts.configPath); err != nil {
		logger.Warn("serve: Could not load game config, using defaults: %v", err)
	} else {
		cfg = *config.GetGameConfig()
	}
	if opts.ledgerURL != "" {
		cfg.LedgerURL = opts.ledgerURL
	}
	if opts.ledgerSecret != "" {
		cfg.LedgerSecret = opts.ledgerSecret
	}
	if opts.logDir != "" {
		if err := os.MkdirAll(opts.logDir, 0o755); err != nil {
			return err
		}
	}

	var sink ports.PayoutSink = ports.PayoutSinkFunc(func(_ context.Context, st domain.Settlement) error {
		logger.Warn("serve: No ledger configured; game %s settled %d GC locally", st.GameID, st.Total())
		return nil
	})
	if cfg.LedgerURL != "" {
		sink = ledger.NewClient(cfg.LedgerURL, cfg.LedgerSecret, nil)
	}

	hub := ws.NewHub(ctx, ws.Config{
		Rules:        cfg.Rules(),
		TickInterval: opts.tick,
		LogDir:       opts.logDir,
		Sink:         sink,
		Logger:       logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: opts.addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serve: Websocket server listening on %s", opts.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("serve: Stopped")
	return nil
}
