package source

import (
	"context"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"

	"github.com/HoracioDos/weewx-zabbix/internal/config"
	"github.com/HoracioDos/weewx-zabbix/internal/engine"
	"github.com/HoracioDos/weewx-zabbix/internal/logger"
)

// DialFunc opens a network connection; it matches redis.Options.Dialer.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// RedisSource receives packets published on a Redis channel.
type RedisSource struct {
	client  *redis.Client
	channel string
	event   engine.EventType
}

// NewRedisSource creates a source subscribed to cfg.Channel. dial is
// optional and replaces the default TCP dialer (e.g. with a SOCKS proxy).
func NewRedisSource(cfg config.RedisSourceConfig, dial DialFunc, event engine.EventType) *RedisSource {
	opts := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if dial != nil {
		opts.Dialer = dial
	}

	return &RedisSource{
		client:  redis.NewClient(opts),
		channel: cfg.Channel,
		event:   event,
	}
}

// Run implements Source.
func (s *RedisSource) Run(ctx context.Context, d engine.Dispatcher) error {
	log := logger.WithComponent("redis-source").With().Str("channel", s.channel).Logger()

	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("Redis SUBSCRIBE %s failed: %w", s.channel, err)
	}
	log.Info().Str("event", s.event.String()).Msg("Subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Subscription stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			dispatchRecord(ctx, d, s.event, []byte(msg.Payload), log)
		}
	}
}

// Close closes the Redis client.
func (s *RedisSource) Close() error {
	return s.client.Close()
}
