package source

import (
	"fmt"
	"strings"

	"github.com/HoracioDos/weewx-zabbix/internal/config"
	"github.com/HoracioDos/weewx-zabbix/internal/engine"
	"github.com/HoracioDos/weewx-zabbix/internal/logger"
	"github.com/HoracioDos/weewx-zabbix/internal/network"
)

// New creates the Source selected by cfg.Source.Type.
func New(cfg *config.Config) (Source, error) {
	log := logger.WithComponent("source-factory")

	event, err := engine.ParseEventType(cfg.Source.Event)
	if err != nil {
		return nil, err
	}

	sourceType := strings.ToLower(cfg.Source.Type)
	if sourceType == "" {
		sourceType = "stdin"
	}

	log.Info().
		Str("source_type", sourceType).
		Str("event", event.String()).
		Msg("Creating source")

	switch sourceType {
	case "stdin":
		return NewStdinSource(event), nil
	case "file":
		return NewFileSource(cfg.Source.File.Path, event)
	case "redis":
		dial, err := network.ContextDialer(cfg.SOCKSProxy)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer for Redis: %w", err)
		}
		return NewRedisSource(cfg.Source.Redis, dial, event), nil
	case "kafka":
		return NewKafkaSource(cfg.Source.Kafka, cfg.SOCKSProxy, event)
	default:
		return nil, fmt.Errorf("unknown source type: %s (supported: stdin, file, redis, kafka)", sourceType)
	}
}
