// Package config provides configuration management for weewx-zabbix.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Zabbix     ZabbixConfig `json:"Zabbix"`
	Source     SourceConfig `json:"Source"`
	SOCKSProxy SOCKSConfig  `json:"SocksProxy"`
}

// ZabbixConfig holds the options of the zabbix forwarding service.
type ZabbixConfig struct {
	Enable       bool          `json:"Enable"`
	ZabbixSender string        `json:"ZabbixSender"` // path to the zabbix_sender executable
	Prefix       string        `json:"Prefix"`       // prepended to every measurement name
	Server       string        `json:"Server"`       // passed to zabbix_sender -z
	Host         string        `json:"Host"`         // host name items are reported under
	SendInterval float64       `json:"SendInterval"` // seconds; 0 sends every packet
	Config       string        `json:"Config"`       // passed to zabbix_sender -c
	Timeout      time.Duration `json:"Timeout"`      // 0 waits for the sender indefinitely
}

// Interval returns SendInterval as a duration.
func (z ZabbixConfig) Interval() time.Duration {
	if z.SendInterval <= 0 {
		return 0
	}
	return time.Duration(z.SendInterval * float64(time.Second))
}

// SourceConfig selects where observation packets come from.
type SourceConfig struct {
	Type  string            `json:"Type"`  // "stdin", "file", "redis" or "kafka"
	Event string            `json:"Event"` // "loop" (default) or "archive"
	File  FileSourceConfig  `json:"File"`
	Redis RedisSourceConfig `json:"Redis"`
	Kafka KafkaSourceConfig `json:"Kafka"`
}

// FileSourceConfig reads newline-delimited JSON packets from a file.
type FileSourceConfig struct {
	Path string `json:"Path"`
}

// RedisSourceConfig subscribes to a Redis pub/sub channel.
type RedisSourceConfig struct {
	Address  string `json:"Address"`
	Password string `json:"Password"`
	DB       int    `json:"DB"`
	Channel  string `json:"Channel"`
}

// KafkaSourceConfig consumes packets from a Kafka topic.
type KafkaSourceConfig struct {
	Brokers       []string      `json:"Brokers"`
	Topic         string        `json:"Topic"`
	ClientID      string        `json:"ClientID"`
	Offset        string        `json:"Offset"` // "newest" (default) or "oldest"
	Timeout       time.Duration `json:"Timeout"`
	EnableTLS     bool          `json:"EnableTLS"`
	TLSCertFile   string        `json:"TLSCertFile"`
	TLSKeyFile    string        `json:"TLSKeyFile"`
	TLSCAFile     string        `json:"TLSCAFile"`
	SASLEnabled   bool          `json:"SASLEnabled"`
	SASLMechanism string        `json:"SASLMechanism"`
	SASLUser      string        `json:"SASLUser"`
	SASLPassword  string        `json:"SASLPassword"`
}

// SOCKSConfig contains SOCKS5 proxy settings used by network sources.
type SOCKSConfig struct {
	Host string `json:"Host"`
	Port int    `json:"Port"`
}

// DefaultConfig returns a configuration with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Zabbix: ZabbixConfig{
			Enable:       false,
			ZabbixSender: "/usr/bin/zabbix_sender",
			Prefix:       "weewx_",
			Server:       "127.0.0.1",
			Host:         "weewx-host",
			SendInterval: 0,
			Config:       "/etc/zabbix/zabbix_agentd.conf",
		},
		Source: SourceConfig{
			Type:  "stdin",
			Event: "loop",
			Redis: RedisSourceConfig{
				Address: "127.0.0.1:6379",
				Channel: "weewx:loop",
			},
			Kafka: KafkaSourceConfig{
				Brokers:  []string{"localhost:9092"},
				Topic:    "weewx-loop",
				ClientID: "weewx-zabbix",
				Offset:   "newest",
				Timeout:  10 * time.Second,
			},
		},
	}
}

// Merge applies non-zero values from other to this config.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	c.Zabbix.Enable = other.Zabbix.Enable
	if other.Zabbix.ZabbixSender != "" {
		c.Zabbix.ZabbixSender = other.Zabbix.ZabbixSender
	}
	if other.Zabbix.Prefix != "" {
		c.Zabbix.Prefix = other.Zabbix.Prefix
	}
	if other.Zabbix.Server != "" {
		c.Zabbix.Server = other.Zabbix.Server
	}
	if other.Zabbix.Host != "" {
		c.Zabbix.Host = other.Zabbix.Host
	}
	if other.Zabbix.SendInterval != 0 {
		c.Zabbix.SendInterval = other.Zabbix.SendInterval
	}
	if other.Zabbix.Config != "" {
		c.Zabbix.Config = other.Zabbix.Config
	}
	if other.Zabbix.Timeout != 0 {
		c.Zabbix.Timeout = other.Zabbix.Timeout
	}

	if other.Source.Type != "" {
		c.Source.Type = other.Source.Type
	}
	if other.Source.Event != "" {
		c.Source.Event = other.Source.Event
	}
	if other.Source.File.Path != "" {
		c.Source.File.Path = other.Source.File.Path
	}

	if other.Source.Redis.Address != "" {
		c.Source.Redis.Address = other.Source.Redis.Address
	}
	if other.Source.Redis.Password != "" {
		c.Source.Redis.Password = other.Source.Redis.Password
	}
	if other.Source.Redis.DB != 0 {
		c.Source.Redis.DB = other.Source.Redis.DB
	}
	if other.Source.Redis.Channel != "" {
		c.Source.Redis.Channel = other.Source.Redis.Channel
	}

	k := other.Source.Kafka
	if len(k.Brokers) > 0 {
		c.Source.Kafka.Brokers = k.Brokers
	}
	if k.Topic != "" {
		c.Source.Kafka.Topic = k.Topic
	}
	if k.ClientID != "" {
		c.Source.Kafka.ClientID = k.ClientID
	}
	if k.Offset != "" {
		c.Source.Kafka.Offset = k.Offset
	}
	if k.Timeout != 0 {
		c.Source.Kafka.Timeout = k.Timeout
	}
	c.Source.Kafka.EnableTLS = k.EnableTLS
	if k.TLSCertFile != "" {
		c.Source.Kafka.TLSCertFile = k.TLSCertFile
	}
	if k.TLSKeyFile != "" {
		c.Source.Kafka.TLSKeyFile = k.TLSKeyFile
	}
	if k.TLSCAFile != "" {
		c.Source.Kafka.TLSCAFile = k.TLSCAFile
	}
	c.Source.Kafka.SASLEnabled = k.SASLEnabled
	if k.SASLMechanism != "" {
		c.Source.Kafka.SASLMechanism = k.SASLMechanism
	}
	if k.SASLUser != "" {
		c.Source.Kafka.SASLUser = k.SASLUser
	}
	if k.SASLPassword != "" {
		c.Source.Kafka.SASLPassword = k.SASLPassword
	}

	if other.SOCKSProxy.Host != "" {
		c.SOCKSProxy.Host = other.SOCKSProxy.Host
	}
	if other.SOCKSProxy.Port != 0 {
		c.SOCKSProxy.Port = other.SOCKSProxy.Port
	}
}

// Validate checks the options the services cannot run without.
func (c *Config) Validate() error {
	if c.Zabbix.Enable {
		if strings.TrimSpace(c.Zabbix.ZabbixSender) == "" {
			return fmt.Errorf("Zabbix.ZabbixSender must be set when Zabbix.Enable is true")
		}
		if strings.TrimSpace(c.Zabbix.Server) == "" {
			return fmt.Errorf("Zabbix.Server must be set when Zabbix.Enable is true")
		}
	}

	switch strings.ToLower(c.Source.Type) {
	case "stdin":
	case "file":
		if c.Source.File.Path == "" {
			return fmt.Errorf("Source.File.Path is required for source type %q", c.Source.Type)
		}
	case "redis":
		if c.Source.Redis.Channel == "" {
			return fmt.Errorf("Source.Redis.Channel is required for source type %q", c.Source.Type)
		}
	case "kafka":
		if len(c.Source.Kafka.Brokers) == 0 || c.Source.Kafka.Topic == "" {
			return fmt.Errorf("Source.Kafka.Brokers and Source.Kafka.Topic are required for source type %q", c.Source.Type)
		}
	default:
		return fmt.Errorf("unknown source type: %s (supported: stdin, file, redis, kafka)", c.Source.Type)
	}

	if c.SOCKSProxy.Host != "" && c.SOCKSProxy.Port <= 0 {
		return fmt.Errorf("SocksProxy.Port must be positive when SocksProxy.Host is set")
	}
	return nil
}
