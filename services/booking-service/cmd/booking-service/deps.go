package main

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/cache"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/reminders"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/slots"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

func parseReminderOffsets(raw string, logger *slog.Logger) []time.Duration {
	var offsets []time.Duration
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mins, err := strconv.Atoi(part)
		if err != nil || mins <= 0 {
			logger.Warn("invalid reminder offset", "value", part)
			continue
		}
		offsets = append(offsets, time.Duration(mins)*time.Minute)
	}
	if len(offsets) == 0 {
		offsets = []time.Duration{24 * time.Hour, time.Hour}
	}
	return offsets
}

func openPool(ctx context.Context) (*db.Pool, error) {
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	return db.Open(ctx, dbURL, db.PoolConfig{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
	})
}

// app holds the wired services shared by the subcommands.
type app struct {
	logger       *slog.Logger
	pool         *db.Pool
	rdb          redis.UniversalClient
	kafka        *kafka.Writer
	brokers      string
	availability *availability.Service
	slots        *slots.Service
	reminders    *reminders.Service
	bookings     *booking.Service
}

func (a *app) Close() {
	if a.kafka != nil {
		_ = a.kafka.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	a.pool.Close()
}

func newApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	pool, err := openPool(ctx)
	if err != nil {
		return nil, err
	}
	a := &app{logger: logger, pool: pool, brokers: config.String("KAFKA_BROKERS", "")}

	store := storage.NewPG(pool, db.TxOptions{
		MaxRetries: config.Int("TX_MAX_RETRIES", 3),
		OnRetry: func(err error, attempt int) {
			metrics.TxRetries.Inc()
			logger.Warn("transaction retry", "err", err, "attempt", attempt)
		},
	})

	var c cache.Cache
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		c = cache.NewRedis(a.rdb)
	} else {
		logger.Warn("REDIS_ADDR not set; caching disabled")
	}
	layer := cache.NewLayer(c, config.Seconds("CACHE_TTL_SECONDS", time.Minute), logger)

	var publisher notify.Publisher = notify.LogPublisher{Logger: logger}
	if len(kafkax.SplitBrokers(a.brokers)) > 0 {
		a.kafka = kafkax.NewWriter(a.brokers)
		publisher = notify.NewKafkaPublisher(a.kafka, config.String("KAFKA_TOPIC_PREFIX", "slotbook"))
	}

	sender := newSender(logger)
	a.availability = availability.NewService(store, layer, logger)
	a.slots = slots.NewService(store, layer, logger, slots.Config{
		SlotDuration:    time.Duration(config.Int("SLOT_DURATION_MINUTES", 30)) * time.Minute,
		MaxGenerateDays: config.Int("SLOT_MAX_GENERATE_DAYS", slots.DefaultMaxGenerateDays),
	})
	a.reminders = reminders.NewService(store, sender, logger, reminders.Config{
		Offsets:      parseReminderOffsets(config.String("REMINDER_OFFSETS_MINUTES", "1440,60"), logger),
		MaxRetries:   config.Int("REMINDER_MAX_RETRIES", 3),
		RetryBackoff: config.Seconds("REMINDER_RETRY_BACKOFF_SECONDS", 5*time.Minute),
		BatchSize:    config.Int("REMINDER_BATCH_SIZE", 50),
	})
	a.bookings = booking.NewService(booking.Deps{
		Store:     store,
		Cache:     layer,
		Reminders: a.reminders,
		Sender:    sender,
		Publisher: publisher,
		Logger:    logger,
	})
	return a, nil
}

// newSender routes email to SMTP and SMS to the webhook when configured, logging otherwise.
func newSender(logger *slog.Logger) notify.Sender {
	var router notify.Router
	router.Email = notify.LogSender{Logger: logger}
	router.SMS = notify.LogSender{Logger: logger}
	if host := config.String("SMTP_HOST", ""); host != "" {
		router.Email = notify.NewSMTPSender(host, config.String("SMTP_PORT", "1025"), config.String("SMTP_FROM", ""))
	}
	if url := config.String("SMS_WEBHOOK_URL", ""); url != "" {
		router.SMS = notify.NewWebhookSender(url, config.String("SMS_WEBHOOK_TOKEN", ""))
	}
	return router
}
