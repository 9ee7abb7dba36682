package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/srgjo27/suite_reservation/internal/adapter/cache"
	"github.com/srgjo27/suite_reservation/internal/adapter/handler"
	"github.com/srgjo27/suite_reservation/internal/adapter/messaging"
	"github.com/srgjo27/suite_reservation/internal/adapter/repository/memory"
	"github.com/srgjo27/suite_reservation/internal/adapter/repository/postgres"
	"github.com/srgjo27/suite_reservation/internal/core/domain"
	"github.com/srgjo27/suite_reservation/internal/core/ports"
	"github.com/srgjo27/suite_reservation/internal/core/services"
	"github.com/srgjo27/suite_reservation/internal/platform/config"
	"github.com/srgjo27/suite_reservation/internal/platform/database"
	"github.com/srgjo27/suite_reservation/internal/platform/identity"
)

type stores struct {
	locations ports.LocationRepository
	suites    ports.SuiteRepository
	bookings  ports.BookingRepository
	credits   ports.CreditStore
	close     func() error
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	if !cfg.IsProduction() {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	st, err := openStores(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open stores: %v", err)
	}
	defer st.close()

	var suiteCache ports.SuiteCache
	if cfg.RedisAddr != "" {
		logger.Infof("Connecting to Redis at %s...", cfg.RedisAddr)
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.WithError(err).Warn("Redis unreachable, suite listings will not be cached")
		} else {
			logger.Info("Redis connected successfully!")
			suiteCache = cache.NewSuiteCache(redisClient, cfg.SuiteCacheTTL)
			defer redisClient.Close()
		}
	}

	var publisher ports.EventPublisher = messaging.NewLogPublisher(logger)
	if cfg.EventsEnabled {
		rabbit, err := messaging.NewRabbitPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.WithError(err).Warn("RabbitMQ unreachable, booking events will only be logged")
		} else {
			publisher = rabbit
			defer rabbit.Close()
		}
	}

	availabilityConfig := services.DefaultAvailabilityConfig()
	availabilityConfig.OpeningHour = cfg.OpeningHour
	availabilityConfig.ClosingHour = cfg.ClosingHour
	availabilityConfig.SlotInterval = cfg.SlotInterval

	availabilityService := services.NewAvailabilityService(st.suites, st.locations, suiteCache, availabilityConfig, time.Now, logger)
	ledgerService := services.NewLedgerService(st.credits, time.Now, logger)
	bookingService := services.NewBookingService(availabilityService, ledgerService, st.bookings, publisher, time.Now, logger)
	reconciler := services.NewReconciler(st.bookings, st.suites, st.credits, publisher, time.Now, cfg.ReconcileLookback, logger)

	bookingHandler := handler.NewBookingHandler(bookingService, ledgerService, availabilityService, logger)
	router := handler.NewRouter(bookingHandler, identity.NewVerifier(cfg.JWTSecret), logger)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	go reconciler.Run(workerCtx, cfg.ReconcileInterval)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port :%s (env=%s)", cfg.Port, cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server startup failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("Shutting down server...")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exiting")
}

func openStores(cfg config.Config, logger *logrus.Logger) (*stores, error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		locations := memory.NewLocationRepository()
		suites := memory.NewSuiteRepository()
		seedDemo(locations, suites)
		return &stores{
			locations: locations,
			suites:    suites,
			bookings:  memory.NewBookingRepository(),
			credits:   memory.NewCreditStore(),
			close:     func() error { return nil },
		}, nil
	}

	db, err := database.NewPostgresDB(database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		MaxConns: cfg.DBMaxConns,
	}, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &stores{
		locations: postgres.NewLocationRepository(db),
		suites:    postgres.NewSuiteRepository(db),
		bookings:  postgres.NewBookingRepository(db),
		credits:   postgres.NewCreditStore(db),
		close:     db.Close,
	}, nil
}

// seedDemo gives the in-memory store one location with a few suites.
func seedDemo(locations *memory.LocationRepository, suites *memory.SuiteRepository) {
	location := domain.Location{
		ID:          uuid.MustParse("6f1c2a54-0000-4000-8000-000000000001"),
		Name:        "Downtown",
		Timezone:    "UTC",
		OpeningHour: 6,
		ClosingHour: 22,
	}
	locations.Add(location)

	for i, name := range []string{"Suite A", "Suite B", "Suite C"} {
		suites.Add(domain.Suite{
			ID:              uuid.NewSHA1(location.ID, []byte(name)),
			LocationID:      location.ID,
			Name:            name,
			IsAvailable:     true,
			IsOperational:   true,
			SampleInventory: []string{"lavender-mist", "cedar-wash", "citrus-balm", "rose-hand-cream", "mint-spray"},
			Capabilities: domain.Capabilities{
				Shower:       i > 0,
				Bidet:        true,
				HeatedSeat:   true,
				Vanity:       i == 2,
				MaxOccupancy: 1,
			},
		})
	}
}
