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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"slotwise/internal/api"
	"slotwise/internal/availability"
	"slotwise/internal/booking"
	"slotwise/internal/busy"
	"slotwise/internal/calendar"
	"slotwise/internal/config"
	"slotwise/internal/meeting"
	"slotwise/internal/metrics"
	"slotwise/internal/report"
	"slotwise/internal/store"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("SLOTWISE_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := store.Open(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var calProvider calendar.Provider
	if cfg.GoogleCalendar.Enabled {
		calProvider, err = calendar.NewGoogle(ctx, calendar.GoogleConfig{
			ClientID:          cfg.GoogleCalendar.ClientID,
			ClientSecret:      cfg.GoogleCalendar.ClientSecret,
			RefreshToken:      cfg.GoogleCalendar.RefreshToken,
			RequestsPerSecond: cfg.GoogleCalendar.RequestsPerSecond,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("create google calendar provider")
		}
	}

	var meetProvider meeting.Provider
	if cfg.Zoom.Enabled {
		meetProvider = meeting.NewZoom(ctx, meeting.ZoomConfig{
			AccountID:    cfg.Zoom.AccountID,
			ClientID:     cfg.Zoom.ClientID,
			ClientSecret: cfg.Zoom.ClientSecret,
		})
	}

	resolver := availability.NewResolver(db, &logger)

	busyOpts := []busy.Option{busy.WithProviderTimeout(cfg.CalendarTimeout())}
	if cfg.Redis.Address != "" && cfg.RedisCacheTTL() > 0 {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		busyOpts = append(busyOpts, busy.WithRedisCache(rdb, cfg.RedisCacheTTL()))
	}
	aggregator := busy.NewAggregator(db, calProvider, &logger, busyOpts...)

	bookings := booking.NewService(db, resolver, aggregator, calProvider, meetProvider, cfg.SlotGranularity(), &logger)
	exporter := report.NewExporter(db)

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info().Str("addr", addr).Msg("metrics listening")
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	server := api.NewHTTPServer(db, resolver, aggregator, bookings, exporter, cfg, cfg.SlotGranularity(), &logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("api listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
