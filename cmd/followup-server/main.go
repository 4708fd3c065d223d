// followup-server — HTTP API и цикл follow-up рассылки в одном процессе.
//
// Использование:
//
//	followup-server [--config followup.yaml]
//
// Конфигурация: YAML файл, .env и переменные окружения (см. internal/config).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/followup/internal/api"
	"github.com/shaiso/followup/internal/config"
	"github.com/shaiso/followup/internal/followup"
	"github.com/shaiso/followup/internal/intake"
	"github.com/shaiso/followup/internal/lock"
	"github.com/shaiso/followup/internal/mq"
	"github.com/shaiso/followup/internal/notify"
	"github.com/shaiso/followup/internal/repo"
	"github.com/shaiso/followup/internal/scheduler"
	"github.com/shaiso/followup/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "followup-server",
		Short:         "Lead follow-up scheduler and admin API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return run(ctx, cfg)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config (default: $"+config.PathEnv+")")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting followup-server", "version", version)

	// База данных
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	leadRepo := repo.NewLeadRepo(pool)
	notifier := newNotifier(cfg.Mail, logger)
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	// RabbitMQ (опционально)
	var publisher *mq.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err := mq.Dial(cfg.RabbitMQURL, logger)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		defer conn.Close()

		if err := mq.SetupTopology(ctx, conn); err != nil {
			return err
		}
		publisher = mq.NewPublisher(conn, logger)
	}

	locker, closeLocker, err := newLocker(ctx, cfg, pool)
	if err != nil {
		return err
	}
	defer closeLocker()

	dispatcherCfg := followup.Config{
		Repo:        leadRepo,
		Notifier:    notifier,
		Metrics:     metrics,
		Logger:      logger.With("component", "dispatcher"),
		OpTimeout:   cfg.Scheduler.OpTimeout,
		Concurrency: cfg.Scheduler.Concurrency,
	}
	intakeCfg := intake.Config{
		Repo:      leadRepo,
		Notifier:  notifier,
		Logger:    logger.With("component", "intake"),
		OpTimeout: cfg.Scheduler.OpTimeout,
	}
	// Интерфейс с typed nil внутри не равен nil: присваиваем только реальный publisher.
	if publisher != nil {
		dispatcherCfg.Publisher = publisher
		intakeCfg.Publisher = publisher
	}

	loop, err := scheduler.New(scheduler.Config{
		Runner:      followup.NewDispatcher(dispatcherCfg),
		Locker:      locker,
		Schedule:    cfg.Scheduler.Schedule,
		PassTimeout: cfg.Scheduler.PassTimeout,
		RunOnStart:  cfg.Scheduler.RunOnStart,
		Metrics:     metrics,
		Logger:      logger.With("component", "scheduler"),
	})
	if err != nil {
		return err
	}

	handler := api.NewHandler(api.Config{
		Leads:  intake.NewService(intakeCfg),
		Passes: loop,
		Logger: logger.With("component", "api"),
	})

	router := chi.NewRouter()
	router.Get("/healthz", healthz(pool))
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := loop.Start(ctx); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-serveErr:
		logger.Error("server error", "error", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	// Stop дожидается текущего прохода.
	if err := loop.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown error", "error", err)
	}

	logger.Info("stopped")
	return runErr
}

func newNotifier(cfg config.MailConfig, logger *slog.Logger) followup.Notifier {
	switch cfg.Driver {
	case config.MailSMTP:
		return notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			From:     cfg.From,
		}, logger.With("component", "smtp"))
	case config.MailHTTP:
		return notify.NewHTTP(notify.HTTPConfig{
			URL:    cfg.APIURL,
			APIKey: cfg.APIKey,
			From:   cfg.From,
		}, logger.With("component", "mail-api"))
	default:
		logger.Warn("mail driver is 'log': emails are logged, not delivered")
		return notify.NewLog(logger.With("component", "mail"))
	}
}

func newLocker(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (lock.Locker, func(), error) {
	switch cfg.Scheduler.LockBackend {
	case config.LockPostgres:
		return lock.NewPostgres(pool, lock.DefaultAdvisoryKey), func() {}, nil
	case config.LockRedis:
		client, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		ttl := scheduler.LockTTL(cfg.Scheduler.PassTimeout, cfg.Scheduler.OpTimeout)
		return lock.NewRedis(client, lock.DefaultRedisKey, ttl), func() { _ = client.Close() }, nil
	default:
		return lock.Noop{}, func() {}, nil
	}
}

func healthz(pool *pgxpool.Pool) http.HandlerFunc {
	startTime := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	}
}
