package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"search-analytics-service/internal/adapters/cache"
	"search-analytics-service/internal/adapters/locker"
	logger_adapter "search-analytics-service/internal/adapters/logger"
	"search-analytics-service/internal/adapters/memory"
	"search-analytics-service/internal/adapters/notifier"
	postgres_adapter "search-analytics-service/internal/adapters/postgres"
	rabbitmq_adapter "search-analytics-service/internal/adapters/rabbitmq"
	"search-analytics-service/internal/adapters/rest"
	"search-analytics-service/internal/adapters/scheduler"
	"search-analytics-service/internal/configs"
	"search-analytics-service/internal/constants"
	"search-analytics-service/internal/core/analytics"
	"search-analytics-service/internal/core/attrfilter"
	"search-analytics-service/internal/core/availability"
	"search-analytics-service/internal/core/port"
	"search-analytics-service/internal/core/usecase"
	fluentlogger "search-analytics-service/pkg/fluent_logger"
	"search-analytics-service/pkg/postgres"
	"search-analytics-service/pkg/rabbitmq/rabbitmq_common"
	"search-analytics-service/pkg/rabbitmq/rabbitmq_consumer"
	"search-analytics-service/pkg/rabbitmq/rabbitmq_producer"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

// storage is what both persistence drivers provide.
type storage interface {
	port.PropertyStoragePort
	port.BookingStoragePort
	port.ReviewStoragePort
}

type App struct {
	config    *configs.AppConfig
	dbPool    *pgxpool.Pool
	apiServer *rest.Server

	catalogCache   *cache.CachedPropertyStorage
	sseNotifier    *notifier.SSENotifier
	connManager    *rabbitmq_common.ConnectionManager
	eventPublisher *rabbitmq_producer.Publisher
	listeners      map[string]port.EventListenerPort

	logger       port.LoggerPort
	fluentClient *fluent.Fluent
}

func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	app := &App{
		config:    appConfig,
		listeners: make(map[string]port.EventListenerPort),
	}

	// --- loggers ---
	activeLoggers := []port.LoggerPort{
		logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
			Level:    parseLogLevel(appConfig.StdoutLogger.Level),
			IsJSON:   false,
			UseColor: true,
		}),
	}

	if appConfig.FluentBit.Enabled {
		fluentClient, err := fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
		})
		if err != nil {
			log.Printf("Warning: failed to initialize Fluent Bit client, logs go to stdout only: %v", err)
		} else {
			app.fluentClient = fluentClient
			fluentLogger, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
			if err != nil {
				log.Printf("Warning: failed to create Fluent Bit logger adapter: %v", err)
			} else {
				activeLoggers = append(activeLoggers, fluentLogger)
			}
		}
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}
	baseLogger := multiLogger.WithFields(port.Fields{"service_name": appConfig.AppName})
	app.logger = baseLogger.WithFields(port.Fields{"component": "app"})
	app.logger.Info("Logger system initialized", port.Fields{"active_loggers_count": len(activeLoggers)})

	// --- storage ---
	store, err := app.initStorage()
	if err != nil {
		app.closeResources()
		return nil, err
	}

	var remote cache.RemoteCache
	if host := appConfig.Cache.MemcachedHost; host != "" {
		remote = memcache.New(host)
		app.logger.Info("Memcached second level enabled", port.Fields{"host": host})
	}
	app.catalogCache = cache.NewCachedPropertyStorage(store, remote, cache.Config{
		TTL:       appConfig.Cache.TTL,
		RemoteTTL: appConfig.Cache.RemoteTTL,
		MaxSize:   appConfig.Cache.MaxSize,
	})

	// --- events ---
	var bookingEvents port.BookingEventPublisherPort = rabbitmq_adapter.DisabledBookingEventsAdapter{}
	if appConfig.RabbitMQ.Enabled {
		publisher, err := app.initBroker(baseLogger)
		if err != nil {
			app.closeResources()
			return nil, err
		}
		bookingEvents = rabbitmq_adapter.NewBookingEventsEnqueueAdapter(publisher)
	} else {
		app.logger.Warn("RabbitMQ disabled, booking events are not published", nil)
	}

	app.sseNotifier = notifier.NewSSENotifier(baseLogger)

	// --- core ---
	calculator := availability.NewCalculator(store, appConfig.Storage.Timeout)
	filterEngine, err := attrfilter.NewEngine(appConfig.Search.Operators)
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("failed to build filter engine: %w", err)
	}
	unitLocker := locker.NewUnitLocker()

	searchUC := usecase.NewSearchPropertiesUseCase(app.catalogCache, calculator, filterEngine, usecase.SearchSettings{
		Pages: usecase.PageSettings{
			DefaultSize: appConfig.Search.DefaultPageSize,
			MaxSize:     appConfig.Search.MaxPageSize,
		},
		Order:          appConfig.Search.Order,
		Workers:        appConfig.Search.Workers,
		StorageTimeout: appConfig.Storage.Timeout,
	})
	bookingWindowUC := usecase.NewGetBookingWindowAnalysisUseCase(app.catalogCache, store,
		analytics.NewBookingWindowAnalyzer(analytics.NewUSHolidayCalendar()))
	performanceUC := usecase.NewGetPropertyPerformanceUseCase(app.catalogCache, store, store, analytics.NewPerformanceAggregator())
	checkAvailabilityUC := usecase.NewCheckAvailabilityUseCase(app.catalogCache, calculator)
	createBookingUC := usecase.NewCreateBookingUseCase(app.catalogCache, store, unitLocker)
	getBookingUC := usecase.NewGetBookingByIDUseCase(store)
	confirmBookingUC := usecase.NewConfirmBookingUseCase(store, unitLocker, bookingEvents, app.sseNotifier)
	cancelBookingUC := usecase.NewCancelBookingUseCase(store, bookingEvents, app.sseNotifier)
	expireUC := usecase.NewExpirePendingBookingsUseCase(store, bookingEvents, app.sseNotifier)
	invalidateUC := usecase.NewInvalidateCatalogUseCase(app.catalogCache)

	// --- listeners ---
	expiryScheduler, err := scheduler.NewPendingExpiryScheduler(scheduler.ExpiryConfig{
		Schedule:   appConfig.Booking.ExpirySchedule,
		PendingTTL: appConfig.Booking.PendingTTL,
	}, expireUC, baseLogger)
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("failed to create expiry scheduler: %w", err)
	}
	app.listeners["PendingExpiryScheduler"] = expiryScheduler

	if app.connManager != nil {
		catalogListener, err := rabbitmq_adapter.NewCatalogChangesConsumerAdapter(
			catalogConsumerConfig(appConfig.RabbitMQ.URL, baseLogger), invalidateUC, appConfig.RabbitMQ.MaxInFlight, app.connManager, baseLogger)
		if err != nil {
			app.closeResources()
			return nil, fmt.Errorf("failed to create catalog changes listener: %w", err)
		}
		app.listeners["CatalogChangesListener"] = catalogListener
	}

	// --- REST ---
	handlers := rest.NewHandlers(rest.UseCases{
		Search:            searchUC,
		BookingWindow:     bookingWindowUC,
		Performance:       performanceUC,
		CheckAvailability: checkAvailabilityUC,
		CreateBooking:     createBookingUC,
		GetBooking:        getBookingUC,
		ConfirmBooking:    confirmBookingUC,
		CancelBooking:     cancelBookingUC,
	}, app.sseNotifier)
	app.apiServer = rest.NewServer(rest.ServerConfig{
		Port:           appConfig.Rest.Port,
		AllowedOrigins: appConfig.Rest.AllowedOrigins,
	}, handlers, baseLogger)

	app.logger.Info("Application initialized successfully", port.Fields{
		"storage_driver":   appConfig.Storage.Driver,
		"rabbitmq_enabled": appConfig.RabbitMQ.Enabled,
	})
	return app, nil
}

func (a *App) initStorage() (storage, error) {
	cfg := a.config.Storage
	switch cfg.Driver {
	case configs.StorageDriverMemory:
		store := memory.NewStorage()
		if cfg.SeedPath != "" {
			if err := store.LoadSeedFile(cfg.SeedPath); err != nil {
				return nil, fmt.Errorf("failed to load seed data: %w", err)
			}
			a.logger.Info("Seed data loaded", port.Fields{"path": cfg.SeedPath})
		}
		return store, nil

	default:
		pool, err := postgres.NewClient(context.Background(), postgres.Config{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.MaxConns,
			ConnectTimeout: 10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres connection pool: %w", err)
		}
		a.dbPool = pool
		a.logger.Info("PostgreSQL connection pool initialized", nil)

		store, err := postgres_adapter.NewPostgresStorageAdapter(pool, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres storage adapter: %w", err)
		}
		return store, nil
	}
}

func (a *App) initBroker(baseLogger port.LoggerPort) (*rabbitmq_producer.Publisher, error) {
	pkgLogger := rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq"}))

	connManager, err := rabbitmq_common.NewConnectionManager(rabbitmq_common.Config{URL: a.config.RabbitMQ.URL}, pkgLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ connection manager: %w", err)
	}
	a.connManager = connManager

	publisher, err := rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
		Config:                   rabbitmq_common.Config{URL: a.config.RabbitMQ.URL},
		ExchangeName:             constants.BookingExchange,
		ExchangeType:             "direct",
		DurableExchange:          true,
		DeclareExchangeIfMissing: true,
		Logger:                   pkgLogger,
	}, connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking events publisher: %w", err)
	}
	a.eventPublisher = publisher
	return publisher, nil
}

func catalogConsumerConfig(url string, baseLogger port.LoggerPort) rabbitmq_consumer.ConsumerConfig {
	return rabbitmq_consumer.ConsumerConfig{
		Config:       rabbitmq_common.Config{URL: url},
		QueueName:    constants.QueueCatalogChanges,
		DeclareQueue: true,
		DurableQueue: true,

		ExchangeNameForBind:    constants.CatalogExchange,
		DeclareExchangeForBind: true,
		ExchangeTypeForBind:    "direct",
		DurableExchangeForBind: true,
		RoutingKeyForBind:      constants.RoutingKeyCatalogPropertyChanged,

		PrefetchCount: 10,
		ConsumerTag:   "search-analytics-catalog-changes",

		EnableRetryMechanism: true,
		RetryExchange:        constants.CatalogRetryExchange,
		RetryQueue:           constants.CatalogRetryQueue,
		RetryTTL:             constants.CatalogRetryTTLMs,
		FinalDLXExchange:     constants.FinalDLXExchange,
		FinalDLQ:             constants.FinalDLQ,
		FinalDLQRoutingKey:   constants.FinalDLQRoutingKey,
		MaxRetries:           constants.CatalogMaxRetries,

		Logger: rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "catalog_consumer"})),
	}
}

func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	var wg sync.WaitGroup

	defer func() {
		a.logger.Info("Shutting down application...", nil)
		cancelApp()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()
		if a.apiServer != nil {
			if err := a.apiServer.Stop(shutdownCtx); err != nil {
				a.logger.Error("REST server shutdown error", err, nil)
			}
		}

		for name, listener := range a.listeners {
			if err := listener.Close(); err != nil {
				a.logger.Error("Error closing listener", err, port.Fields{"listener": name})
			}
		}

		wg.Wait()
		a.logger.Info("All background processes finished", nil)

		a.closeResources()
	}()

	errorsCh := make(chan error, len(a.listeners)+1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sseNotifier.Run(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			errorsCh <- fmt.Errorf("REST server error: %w", err)
		}
	}()

	startListener := func(name string, listener port.EventListenerPort) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.logger.Info("Starting listener", port.Fields{"listener": name})
			if err := listener.Start(appCtx); err != nil && appCtx.Err() == nil {
				errorsCh <- fmt.Errorf("listener %s error: %w", name, err)
			}
			a.logger.Info("Listener stopped", port.Fields{"listener": name})
		}()
	}
	for name, listener := range a.listeners {
		startListener(name, listener)
	}

	a.logger.Info("Application is running", port.Fields{"port": a.config.Rest.Port})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errorsCh:
		a.logger.Error("Critical component failed, shutting down", err, nil)
		return err
	case sig := <-quit:
		a.logger.Info("Received shutdown signal", port.Fields{"signal": sig.String()})
	}
	return nil
}

// closeResources releases everything NewApp opened. Safe on a partially built App.
func (a *App) closeResources() {
	if a.catalogCache != nil {
		a.catalogCache.Stop()
	}
	if a.eventPublisher != nil {
		if err := a.eventPublisher.Close(); err != nil {
			a.logger.Error("Error closing booking events publisher", err, nil)
		}
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ connection", err, nil)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.logger.Info("PostgreSQL connection pool closed", nil)
	}
	if a.fluentClient != nil {
		if err := a.fluentClient.Close(); err != nil {
			log.Printf("Error closing Fluent Bit client: %v", err)
		}
	}
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
