// Command labscheduler serves the school computer-lab booking API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/example/lab-scheduler/internal/application"
	"github.com/example/lab-scheduler/internal/cache"
	"github.com/example/lab-scheduler/internal/config"
	httptransport "github.com/example/lab-scheduler/internal/http"
	"github.com/example/lab-scheduler/internal/logging"
	"github.com/example/lab-scheduler/internal/notify"
	"github.com/example/lab-scheduler/internal/persistence"
	"github.com/example/lab-scheduler/internal/persistence/memory"
	"github.com/example/lab-scheduler/internal/persistence/postgres"
	"github.com/example/lab-scheduler/internal/persistence/sqlite"
	"github.com/example/lab-scheduler/internal/recurrence"
)

// storage is what every backend in internal/persistence provides.
type storage interface {
	persistence.UserRepository
	persistence.BookingRepository
	Ping(ctx context.Context) error
	Close() error
}

type options struct {
	migrateOnly      bool
	adminUsername    string
	adminDisplayName string
}

func main() {
	var opts options
	flag.BoolVar(&opts.migrateOnly, "migrate-only", false, "apply schema migrations and exit")
	flag.StringVar(&opts.adminUsername, "create-admin", "", "create an administrator with this username (password from LABSCHED_ADMIN_PASSWORD) and exit")
	flag.StringVar(&opts.adminDisplayName, "admin-name", "Administrator", "display name used with -create-admin")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("labscheduler stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts options, logger *slog.Logger) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if opts.migrateOnly {
		logger.Info("schema is up to date", "storage", cfg.Storage)
		return nil
	}

	queryCache, closeCache := openCache(ctx, cfg, logger)
	defer closeCache()
	notifier, closeNotifier := openNotifier(cfg, logger)
	defer closeNotifier()

	a := newApp(cfg, store, queryCache, notifier, time.Now, logger)

	if opts.adminUsername != "" {
		return createAdmin(ctx, a.users, opts, os.Getenv("LABSCHED_ADMIN_PASSWORD"), logger)
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("lab scheduler API listening", "addr", server.Addr, "storage", cfg.Storage)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

type app struct {
	router        *echo.Echo
	bookings      *application.BookingService
	users         *application.UserService
	auth          *application.AuthService
	notifications *application.NotificationService
}

func newApp(cfg config.Config, store storage, queryCache application.QueryCache, notifier application.Notifier, now func() time.Time, logger *slog.Logger) *app {
	bookings := application.NewBookingServiceWithDeps(application.BookingServiceDeps{
		Bookings: newBookingRepositoryAdapter(store),
		Engine:   recurrence.NewEngine(cfg.MaxOccurrences),
		Cache:    queryCache,
		Notifier: notifier,
		Location: cfg.Location,
		Now:      now,
		Logger:   logger,
	})
	users := application.NewUserServiceWithLogger(newUserRepositoryAdapter(store), nil, uuid.NewString, now, logger)
	auth := application.NewAuthServiceWithLogger(newCredentialStoreAdapter(store), nil, cfg.TokenSecret, cfg.TokenTTL, now, logger)
	notifications := application.NewNotificationService(notifier, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(auth, logger),
		Users:     httptransport.NewUserHandler(users, logger),
		Schedules: httptransport.NewScheduleHandler(bookings, logger),
		Push:      httptransport.NewPushHandler(notifications),
		Tokens:    auth,
		Storage:   store,
		Logger:    logger,
	})

	return &app{router: router, bookings: bookings, users: users, auth: auth, notifications: notifications}
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		return store, nil
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil
	default:
		store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLiteDSN), logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return store, nil
	}
}

// openCache prefers Redis and falls back to a process local cache when Redis is
// not configured or unreachable.
func openCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (application.QueryCache, func()) {
	local := application.NewMemoryQueryCache(cfg.CacheTTL, 0, nil)
	if cfg.RedisAddr == "" {
		return local, func() {}
	}

	client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, using in-process query cache", "error", err)
		return local, func() {}
	}
	return cache.NewRedisQueryCache(client, "", cfg.CacheTTL), func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}
}

// openNotifier connects to RabbitMQ when configured. Notifications are best
// effort, so a broker outage at startup only disables them.
func openNotifier(cfg config.Config, logger *slog.Logger) (application.Notifier, func()) {
	if cfg.RabbitMQURL == "" {
		return notify.Nop{}, func() {}
	}
	publisher, err := notify.DialRabbit(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable, notifications disabled", "error", err)
		return notify.Nop{}, func() {}
	}
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close rabbitmq publisher", "error", err)
		}
	}
}

func createAdmin(ctx context.Context, users *application.UserService, opts options, password string, logger *slog.Logger) error {
	if password == "" {
		return errors.New("LABSCHED_ADMIN_PASSWORD must be set to create an administrator")
	}
	user, err := users.Bootstrap(ctx, application.UserInput{
		Username:    opts.adminUsername,
		Password:    password,
		DisplayName: opts.adminDisplayName,
	})
	if err != nil {
		return fmt.Errorf("create administrator: %w", err)
	}
	logger.Info("administrator created", "user_id", user.ID, "username", user.Username)
	return nil
}
