package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/ardentid"
	"github.com/MrEthical07/ardentid/httpapi"
	"github.com/MrEthical07/ardentid/internal/config"
	"github.com/MrEthical07/ardentid/internal/logger"
	"github.com/MrEthical07/ardentid/mailer"
	promexport "github.com/MrEthical07/ardentid/metrics/export/prometheus"
	"github.com/MrEthical07/ardentid/store/memory"
	"github.com/MrEthical07/ardentid/store/postgres"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// closers run in reverse order of registration.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	defer func() { _ = log.Sync() }()

	var cleanup closers
	defer cleanup.run()

	var checks []func(context.Context) error

	users, err := openUserStore(ctx, cfg, log, &cleanup, &checks)
	if err != nil {
		return err
	}

	rdb, err := openRedis(ctx, cfg, log, &cleanup)
	if err != nil {
		return err
	}
	if rdb != nil {
		checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	mail, err := openMailer(cfg, log)
	if err != nil {
		return err
	}

	b := ardentid.New().
		WithConfig(cfg.Engine()).
		WithUserStore(users).
		WithMailer(mail).
		WithLogger(log)
	if rdb != nil {
		b.WithRedis(rdb)
	}
	if cfg.Audit.Enabled {
		b.WithAuditSink(ardentid.NewZapSink(log))
	}
	engine, err := b.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	cleanup.add(engine.Close)

	report := engine.SecurityReport()
	log.Info("engine ready",
		zap.String("secret_cache", report.SecretCache),
		zap.Duration("token_ttl", report.TokenTTL),
		zap.Uint32("argon2_memory_kb", report.Argon2.Memory),
	)
	for _, w := range report.Warnings {
		log.Warn("security", zap.String("warning", w))
	}

	opts := httpapi.Options{
		Engine: engine,
		Logger: log,
		Health: func(ctx context.Context) error {
			for _, check := range checks {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}
	if cfg.Metrics.Enabled {
		rm := httpapi.NewRequestMetrics()
		h, err := promexport.NewCollector(engine).Handler(rm.Collectors()...)
		if err != nil {
			return fmt.Errorf("metrics handler: %w", err)
		}
		opts.Metrics = h
		opts.RequestMetrics = rm
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewRouter(opts),
		ReadTimeout:       config.Duration(cfg.Server.ReadTimeout),
		ReadHeaderTimeout: config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout:      config.Duration(cfg.Server.WriteTimeout),
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Driver), zap.String("cache", cfg.Cache.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func openUserStore(ctx context.Context, cfg *config.Config, log *zap.Logger, cleanup *closers, checks *[]func(context.Context) error) (ardentid.UserStore, error) {
	if cfg.Storage.Driver != "postgres" {
		log.Warn("using in-memory user store; records are lost on restart")
		return memory.New(), nil
	}

	pool, err := postgres.Open(ctx, cfg.Storage.DSN, cfg.Storage.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	cleanup.add(pool.Close)
	*checks = append(*checks, pool.Ping)

	store := postgres.New(pool)
	if cfg.Storage.Migrate {
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("schema migrated")
	}
	return store, nil
}

// openRedis returns nil when OTP secrets stay in process memory.
func openRedis(ctx context.Context, cfg *config.Config, log *zap.Logger, cleanup *closers) (*redis.Client, error) {
	if cfg.Cache.Kind != "redis" {
		return nil, nil
	}

	addr := cfg.Cache.Redis.Addr
	if cfg.Cache.Redis.Embedded {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start embedded redis: %w", err)
		}
		cleanup.add(mr.Close)
		addr = mr.Addr()
		log.Warn("using embedded redis", zap.String("addr", addr))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	cleanup.add(func() { _ = rdb.Close() })

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

func openMailer(cfg *config.Config, log *zap.Logger) (ardentid.Mailer, error) {
	templates := mailer.DefaultTemplates()
	if cfg.Mail.Templates != "" {
		t, err := mailer.LoadTemplatesFile(cfg.Mail.Templates)
		if err != nil {
			return nil, err
		}
		templates = t
	}

	if cfg.Mail.Driver != "smtp" {
		if cfg.App.Env == "prod" {
			log.Warn("mail driver is log; verification codes are written to the log")
		}
		return mailer.NewLogMailer(templates, log), nil
	}

	smtp := cfg.Mail.SMTP
	sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:               smtp.Host,
		Port:               smtp.Port,
		Username:           smtp.Username,
		Password:           smtp.Password,
		From:               smtp.From,
		TLSMode:            smtp.TLSMode,
		InsecureSkipVerify: smtp.InsecureSkipVerify,
	}, templates, log)
	if err != nil {
		return nil, fmt.Errorf("smtp mailer: %w", err)
	}
	return sender, nil
}
