// Package relay republishes emitted signals to Redis so dashboards on other
// hosts can follow the stream.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/model"
)

const publishTimeout = 5 * time.Second

// Config configures the Redis relay.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Channel  string // pub/sub channel; the latest signal per symbol goes to Channel+":latest"
}

// publisher is the part of the Redis client the relay uses.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
	HSet(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
}

// RedisRelay publishes each signal as JSON and keeps the latest per symbol
// in a hash.
type RedisRelay struct {
	client  publisher
	closer  func() error
	channel string
	log     *logrus.Entry
}

// New creates a RedisRelay and pings the server.
func New(cfg Config, l *logrus.Logger) (*RedisRelay, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	r := newRelay(client, cfg.Channel, l)
	r.closer = client.Close
	r.log.WithField("addr", cfg.Addr).Info("redis relay connected")
	return r, nil
}

func newRelay(client publisher, channel string, l *logrus.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		closer:  func() error { return nil },
		channel: channel,
		log:     logger.Component(l, "relay").WithField("channel", channel),
	}
}

// LatestKey is the hash holding the newest signal per symbol.
func (r *RedisRelay) LatestKey() string { return r.channel + ":latest" }

// Run publishes signals until ctx is cancelled or signals is closed.
func (r *RedisRelay) Run(ctx context.Context, signals <-chan model.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if err := r.publish(ctx, sig); err != nil {
				r.log.WithError(err).WithField("id", sig.ID).Warn("relay publish failed")
			}
		}
	}
}

func (r *RedisRelay) publish(ctx context.Context, sig model.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("encode signal: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if err := r.client.HSet(ctx, r.LatestKey(), sig.Symbol, payload).Err(); err != nil {
		return fmt.Errorf("store latest: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisRelay) Close() error { return r.closer() }
