package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"rentero/internal/api"
	"rentero/internal/bot"
	"rentero/internal/config"
	"rentero/internal/csvimport"
	"rentero/internal/database"
	"rentero/internal/events"
	"rentero/internal/metrics"
	"rentero/internal/reminders"
	"rentero/internal/repository"
	"rentero/internal/service"
	"rentero/internal/sheets"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("RENTERO_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Import.Dir != "" {
		importer := csvimport.New(db, cfg.Liquidation.DefaultCurrency, &logger)
		if _, err := importer.Run(ctx, cfg.Import.Dir); err != nil {
			logger.Fatal().Err(err).Msg("CSV import failed")
		}
		if err := db.ReloadProperties(); err != nil {
			logger.Fatal().Err(err).Msg("property cache reload failed")
		}
	}

	// Wizard state: Redis when configured, memory otherwise, failover wrapper
	// so a Redis outage degrades instead of breaking dialogs.
	var rdb *redis.Client
	memoryState := repository.NewMemoryStateRepository(repository.DefaultStateTTL)
	var stateRepo bot.StateRepository = memoryState
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisState := repository.NewRedisStateRepository(rdb, repository.DefaultStateTTL)
		stateRepo = repository.NewFailoverStateRepository(redisState, memoryState, &logger)
	}

	bus := events.NewEventBus()
	bookingSvc := service.NewBookingService(db, bus, &logger)
	liquidationSvc := service.NewLiquidationService(db, bus, &logger, nil)

	defaults := bot.Defaults{
		CommissionPct: decimal.NewFromFloat(cfg.Liquidation.DefaultCommissionPct),
		Currency:      cfg.Liquidation.DefaultCurrency,
	}
	b, err := bot.New(cfg.Telegram.BotToken, bookingSvc, liquidationSvc, db, stateRepo, cfg.Managers, defaults, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.API.Enabled {
		httpServer := api.NewHTTPServer(cfg.API.Port, bookingSvc, liquidationSvc, db, cfg.Liquidation.DefaultCurrency, &logger)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("HTTP API error")
			}
		}()
		go func() {
			<-ctx.Done()
			ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(ctxShutdown)
		}()
	}

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, cfg.BackupInterval(), &logger)
		go backup.Start(ctx)
	}

	if cfg.Reminders.Enabled {
		reminderSvc := reminders.New(db, b, cfg.Managers, cfg.Reminders.CheckinDays, cfg.ReminderInterval(), &logger)
		go reminderSvc.Start(ctx)
	}

	if cfg.Sheets.Enabled {
		go runSheetsSync(ctx, cfg, db, bus, &logger)
	}

	logger.Info().Msg("Rentero bot started")
	b.Start(ctx)
}

func runSheetsSync(ctx context.Context, cfg *config.Config, db *database.DB, bus *events.EventBus, logger *zerolog.Logger) {
	svc, err := sheets.NewSheetsService(ctx, cfg.Sheets.CredentialsPath, cfg.Sheets.SpreadsheetID, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Sheets client init failed; sync disabled")
		return
	}

	// Booking events update single rows between the periodic full syncs,
	// which remain the reconciliation path.
	mutations := sheets.SubscribeMutations(bus, 64)

	sync := func() {
		bookings, err := db.ListBookings(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Sheets sync: load bookings failed")
			return
		}
		properties, err := db.ListProperties(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Sheets sync: load properties failed")
			return
		}
		names := make(map[int64]string, len(properties))
		for _, p := range properties {
			names[p.ID] = p.Name
		}
		if err := svc.SyncBookings(ctx, bookings, names); err != nil {
			logger.Error().Err(err).Msg("Sheets sync failed")
		}
	}

	sync()
	ticker := time.NewTicker(cfg.SheetsSyncInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sync()
		case m := <-mutations:
			name := ""
			if m.Booking != nil {
				if p, err := db.GetProperty(ctx, m.Booking.PropertyID); err == nil {
					name = p.Name
				}
			}
			if err := svc.Apply(ctx, m, name); err != nil {
				logger.Error().Err(err).Int64("booking_id", m.BookingID).Msg("Sheets incremental update failed")
			}
		}
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
