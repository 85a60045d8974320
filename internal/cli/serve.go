package cli

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	web "noticeboard/internal/adapters/http"
	"noticeboard/internal/adapters/http/middleware"
	"noticeboard/internal/adapters/metrics"
	"noticeboard/internal/application/board"
	"noticeboard/internal/config"
)

// sweepInterval is how often idle sessions and rate-limit buckets are purged.
const sweepInterval = time.Minute

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the notice board HTTP server.

Configuration comes from the optional YAML file, then NOTICEBOARD_* environment
variables, then flags.

Example:
  noticeboard serve
  noticeboard serve --config ./noticeboard.yaml --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if opts.Addr != "" {
				cfg.Server.Addr = opts.Addr
			}
			slog.SetDefault(newLogger(cfg.Log, cmd.ErrOrStderr()))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, opts.Version)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")

	return cmd
}

// newLogger builds the process logger from config.
// PRE: lc has passed config validation
func newLogger(lc config.Log, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// app is the wired server with its background janitors.
type app struct {
	handler  http.Handler
	sessions *middleware.SessionStore
	limiter  *middleware.RateLimiter
}

// newApp wires metrics, sessions, and the middleware chain from cfg.
func newApp(cfg *config.Config) (*app, error) {
	key, err := cfg.CSRFKey()
	if err != nil {
		return nil, err
	}
	if key == nil {
		// Tokens issued under this key stop validating when the process exits.
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		slog.Warn("csrf key not configured, using an ephemeral key")
	}

	m := metrics.New()
	seed := cfg.Board.SeedSamples
	sessions := middleware.NewSessionStore(middleware.SessionOptions{
		CookieName:    cfg.Session.CookieName,
		IdleTTL:       cfg.Session.IdleTTL,
		SecureCookies: cfg.Session.SecureCookies,
		Observer:      m,
		NewBoard: func() *board.Board {
			b := board.New(board.Deps{})
			if seed {
				b.Seed(board.Samples()...)
			}
			return b
		},
	})
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, time.Second)

	handler := web.NewMux(web.Options{
		Sessions: sessions,
		Metrics:  m,
		CSRF: middleware.CSRFOptions{
			Key:            key,
			TrustedOrigins: cfg.CSRF.TrustedOrigins,
			Plaintext:      cfg.CSRF.Plaintext,
		},
		RateLimiter: limiter,
		SlowRequest: time.Duration(cfg.SlowRequestMs) * time.Millisecond,
	})
	return &app{handler: handler, sessions: sessions, limiter: limiter}, nil
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, cfg *config.Config, version string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}
	srv := &http.Server{
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go a.sessions.Run(ctx, sweepInterval)
	go a.limiter.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting", "version", version, "addr", ln.Addr().String(), "env", cfg.Env)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
