package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/HoracioDos/weewx-zabbix/internal/logger"
)

// rawConfig mirrors Config with loosely typed values: weewx-style configs
// write booleans and numbers as strings.
type rawConfig struct {
	Zabbix     rawZabbixConfig `json:"Zabbix"`
	Source     rawSourceConfig `json:"Source"`
	SOCKSProxy SOCKSConfig     `json:"SocksProxy"`
}

// String options are pointers so that a key set to "" (a bare Prefix, say)
// can be told apart from a missing one.
type rawZabbixConfig struct {
	Enable       interface{} `json:"Enable"`
	ZabbixSender *string     `json:"ZabbixSender"`
	Prefix       *string     `json:"Prefix"`
	Server       *string     `json:"Server"`
	Host         *string     `json:"Host"`
	SendInterval interface{} `json:"SendInterval"`
	Config       *string     `json:"Config"`
	Timeout      string      `json:"Timeout"`
}

type rawSourceConfig struct {
	Type  string            `json:"Type"`
	Event string            `json:"Event"`
	File  FileSourceConfig  `json:"File"`
	Redis RedisSourceConfig `json:"Redis"`
	Kafka rawKafkaConfig    `json:"Kafka"`
}

type rawKafkaConfig struct {
	Brokers       []string `json:"Brokers"`
	Topic         string   `json:"Topic"`
	ClientID      string   `json:"ClientID"`
	Offset        string   `json:"Offset"`
	Timeout       string   `json:"Timeout"`
	EnableTLS     bool     `json:"EnableTLS"`
	TLSCertFile   string   `json:"TLSCertFile"`
	TLSKeyFile    string   `json:"TLSKeyFile"`
	TLSCAFile     string   `json:"TLSCAFile"`
	SASLEnabled   bool     `json:"SASLEnabled"`
	SASLMechanism string   `json:"SASLMechanism"`
	SASLUser      string   `json:"SASLUser"`
	SASLPassword  string   `json:"SASLPassword"`
}

type rawLoggingConfig struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	Format     string `json:"Format"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
}

// Load reads configuration from the specified file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from JSON bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := DefaultConfig()
	parsed, err := convertRawConfig(&raw, cfg.Zabbix)
	if err != nil {
		return nil, err
	}

	cfg.Merge(parsed)
	// parsed.Zabbix is built on the defaults, so keys present in the file
	// win even when empty.
	cfg.Zabbix = parsed.Zabbix

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func convertRawConfig(raw *rawConfig, base ZabbixConfig) (*Config, error) {
	zbx, err := convertRawZabbix(&raw.Zabbix, base)
	if err != nil {
		return nil, err
	}

	kafka, err := convertRawKafka(&raw.Source.Kafka)
	if err != nil {
		return nil, err
	}

	return &Config{
		Zabbix: *zbx,
		Source: SourceConfig{
			Type:  raw.Source.Type,
			Event: raw.Source.Event,
			File:  raw.Source.File,
			Redis: raw.Source.Redis,
			Kafka: *kafka,
		},
		SOCKSProxy: raw.SOCKSProxy,
	}, nil
}

// convertRawZabbix applies the keys present in raw on top of base.
func convertRawZabbix(raw *rawZabbixConfig, base ZabbixConfig) (*ZabbixConfig, error) {
	zbx := &base
	setString(&zbx.ZabbixSender, raw.ZabbixSender)
	setString(&zbx.Prefix, raw.Prefix)
	setString(&zbx.Server, raw.Server)
	setString(&zbx.Host, raw.Host)
	setString(&zbx.Config, raw.Config)

	enable, err := toBool(raw.Enable)
	if err != nil {
		return nil, fmt.Errorf("invalid Zabbix.Enable: %w", err)
	}
	zbx.Enable = enable

	if raw.SendInterval != nil {
		interval, err := toFloat(raw.SendInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid Zabbix.SendInterval: %w", err)
		}
		zbx.SendInterval = interval
	}

	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid Zabbix.Timeout duration: %w", err)
		}
		zbx.Timeout = d
	}

	return zbx, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func convertRawKafka(raw *rawKafkaConfig) (*KafkaSourceConfig, error) {
	kafka := &KafkaSourceConfig{
		Brokers:       raw.Brokers,
		Topic:         raw.Topic,
		ClientID:      raw.ClientID,
		Offset:        raw.Offset,
		EnableTLS:     raw.EnableTLS,
		TLSCertFile:   raw.TLSCertFile,
		TLSKeyFile:    raw.TLSKeyFile,
		TLSCAFile:     raw.TLSCAFile,
		SASLEnabled:   raw.SASLEnabled,
		SASLMechanism: raw.SASLMechanism,
		SASLUser:      raw.SASLUser,
		SASLPassword:  raw.SASLPassword,
	}

	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid Source.Kafka.Timeout duration: %w", err)
		}
		kafka.Timeout = d
	}

	return kafka, nil
}

// toBool accepts JSON booleans, numbers and the usual weewx spellings.
// A missing value is false.
func toBool(v interface{}) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case float64:
		return b != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "on", "1":
			return true, nil
		case "false", "no", "n", "off", "0", "none", "":
			return false, nil
		}
		return false, fmt.Errorf("cannot interpret %q as a boolean", b)
	default:
		return false, fmt.Errorf("cannot interpret %v as a boolean", v)
	}
}

// toFloat accepts JSON numbers and numeric strings. A missing value is 0.
func toFloat(v interface{}) (float64, error) {
	switch f := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return f, nil
	case string:
		s := strings.TrimSpace(f)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot interpret %q as a number", f)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot interpret %v as a number", v)
	}
}

// LoadLogging reads logging configuration from the specified file path.
func LoadLogging(path string) (*logger.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read logging config file: %w", err)
	}
	return ParseLogging(data)
}

// ParseLogging parses logging configuration from JSON bytes.
func ParseLogging(data []byte) (*logger.Config, error) {
	var raw rawLoggingConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse logging config JSON: %w", err)
	}

	lc := logger.DefaultConfig()
	if raw.Level != "" {
		lc.Level = raw.Level
	}
	if raw.FilePath != "" {
		lc.FilePath = raw.FilePath
	}
	if raw.Format != "" {
		lc.Format = raw.Format
	}
	if raw.MaxSizeMB != 0 {
		lc.MaxSizeMB = raw.MaxSizeMB
	}
	if raw.MaxBackups != 0 {
		lc.MaxBackups = raw.MaxBackups
	}
	if raw.MaxAgeDays != 0 {
		lc.MaxAgeDays = raw.MaxAgeDays
	}
	lc.Compress = raw.Compress
	lc.Console = raw.Console

	return &lc, nil
}

// LoadAll loads the service configuration and the logging configuration.
func LoadAll(configPath, loggingPath string) (*Config, *logger.Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	lc, err := LoadLogging(loggingPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load logging config: %w", err)
	}

	return cfg, lc, nil
}
