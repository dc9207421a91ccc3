// README: Composition root shared by the binaries; builds stores and services from config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"shuttle/internal/ai"
	"shuttle/internal/config"
	"shuttle/internal/events"
	httptransport "shuttle/internal/http"
	"shuttle/internal/infra"
	"shuttle/internal/maps"
	"shuttle/internal/modules/analytics"
	"shuttle/internal/modules/booking"
	"shuttle/internal/modules/calendar"
	"shuttle/internal/modules/capacity"
	"shuttle/internal/modules/completion"
	"shuttle/internal/modules/fleet"
	"shuttle/internal/modules/pricing"
)

type App struct {
	Booking    *booking.Service
	Analytics  *analytics.Service
	Pricing    *pricing.Service
	Calendar   *calendar.Service
	Summarizer ai.Summarizer

	routes      *fleet.Store
	rules       *pricing.Store
	events      calendar.Writer
	completions *completion.Store
	bookings    *booking.PGStore

	db     *pgxpool.Pool
	redis  *redis.Client
	writer *kafka.Writer
	gemini *ai.GeminiProvider
	logger *slog.Logger
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	a := &App{db: db, redis: infra.NewRedis(cfg.Redis.Addr), logger: logger}

	a.routes = fleet.NewStore(db)
	a.completions = completion.NewStore(db)
	a.bookings = booking.NewStore(db)

	calendarStore := calendar.NewStore(db)
	source := calendar.NewCachedSource(calendarStore, a.redis, cfg.Calendar.CacheTTL)
	a.events = calendar.NewInvalidatingWriter(calendarStore, source)
	a.Calendar = calendar.NewService(source)
	a.rules = pricing.NewStore(db)
	a.Pricing = pricing.NewService(a.rules)

	var publisher booking.Publisher = events.Discard{}
	if len(cfg.Kafka.Brokers) > 0 {
		a.writer = infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		publisher = events.NewKafkaPublisher(a.writer)
	} else {
		logger.Warn("kafka brokers not configured; lifecycle events are dropped")
	}

	opts := []booking.Option{
		booking.WithPublisher(publisher),
		booking.WithLocker(infra.NewRedisLocker(a.redis, cfg.Sweep.LockTTL)),
		booking.WithLogger(logger.With("module", "booking")),
		booking.WithNotifyEmail(cfg.Notify.AdminEmail),
	}
	if cfg.Maps.APIKey != "" {
		geocoder, err := maps.NewGeocoder(cfg.Maps.APIKey, cfg.Maps.Region)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, booking.WithGeocoder(geocoder))
	}
	a.Booking = booking.NewService(a.bookings, a.routes, a.Calendar, a.Pricing, opts...)

	a.Analytics = analytics.NewService(a.bookings, a.routes, a.completions, a.Pricing,
		analytics.WithLogger(logger.With("module", "analytics")))

	a.Summarizer = ai.RuleSummarizer{}
	if cfg.AI.GeminiKey != "" {
		a.gemini, err = ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		a.Summarizer = a.gemini
	}
	return a, nil
}

// RouterDeps exposes the services to the HTTP transport.
func (a *App) RouterDeps() httptransport.Deps {
	return httptransport.Deps{
		Booking:    a.Booking,
		Analytics:  a.Analytics,
		Pricing:    a.Pricing,
		Calendar:   a.Calendar,
		Seats:      capacity.NewGuard(a.bookings),
		Routes:     a.routes,
		Telemetry:  a.completions,
		Rules:      a.rules,
		Events:     a.events,
		Summarizer: a.Summarizer,
		Now:        time.Now,
	}
}

func (a *App) Close() {
	if a.gemini != nil {
		a.gemini.Close()
	}
	if a.writer != nil {
		if err := a.writer.Close(); err != nil {
			a.logger.Warn("close kafka writer", "error", err)
		}
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("close redis", "error", err)
	}
	a.db.Close()
}
