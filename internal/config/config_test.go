package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HoracioDos/weewx-zabbix/internal/logger"
)

func init() {
	_ = logger.Init(logger.Config{Level: "disabled"})
}

// --- Default Config Tests ---

func TestDefaultConfig_ZabbixDefaults(t *testing.T) {
	z := DefaultConfig().Zabbix

	if z.Enable {
		t.Error("expected Enable=false by default")
	}
	if z.ZabbixSender != "/usr/bin/zabbix_sender" {
		t.Errorf("expected ZabbixSender=/usr/bin/zabbix_sender, got %q", z.ZabbixSender)
	}
	if z.Prefix != "weewx_" {
		t.Errorf("expected Prefix=weewx_, got %q", z.Prefix)
	}
	if z.Server != "127.0.0.1" {
		t.Errorf("expected Server=127.0.0.1, got %q", z.Server)
	}
	if z.Host != "weewx-host" {
		t.Errorf("expected Host=weewx-host, got %q", z.Host)
	}
	if z.SendInterval != 0 {
		t.Errorf("expected SendInterval=0, got %v", z.SendInterval)
	}
	if z.Config != "/etc/zabbix/zabbix_agentd.conf" {
		t.Errorf("expected Config=/etc/zabbix/zabbix_agentd.conf, got %q", z.Config)
	}
	if z.Timeout != 0 {
		t.Errorf("expected no Timeout, got %v", z.Timeout)
	}
}

func TestDefaultConfig_SourceDefaults(t *testing.T) {
	s := DefaultConfig().Source

	if s.Type != "stdin" {
		t.Errorf("expected Type=stdin, got %q", s.Type)
	}
	if s.Event != "loop" {
		t.Errorf("expected Event=loop, got %q", s.Event)
	}
	if s.Kafka.Offset != "newest" {
		t.Errorf("expected Kafka.Offset=newest, got %q", s.Kafka.Offset)
	}
}

func TestZabbixConfig_Interval(t *testing.T) {
	tests := []struct {
		seconds float64
		want    time.Duration
	}{
		{0, 0},
		{-5, 0},
		{30, 30 * time.Second},
		{1.5, 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		z := ZabbixConfig{SendInterval: tt.seconds}
		if got := z.Interval(); got != tt.want {
			t.Errorf("Interval() with %v seconds = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

// --- Parse Tests ---

func TestParse_EmptyObjectUsesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Zabbix.ZabbixSender != "/usr/bin/zabbix_sender" {
		t.Errorf("expected default ZabbixSender, got %q", cfg.Zabbix.ZabbixSender)
	}
	if cfg.Zabbix.Enable {
		t.Error("expected Enable=false when omitted")
	}
}

func TestParse_ZabbixSection(t *testing.T) {
	input := `{
		"Zabbix": {
			"Enable": true,
			"ZabbixSender": "/opt/zabbix/bin/zabbix_sender",
			"Prefix": "wx.",
			"Server": "zabbix.example.com",
			"Host": "station-1",
			"SendInterval": 60,
			"Config": "/etc/zabbix/zabbix_agent2.conf",
			"Timeout": "15s"
		}
	}`

	cfg, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	z := cfg.Zabbix
	if !z.Enable {
		t.Error("expected Enable=true")
	}
	if z.ZabbixSender != "/opt/zabbix/bin/zabbix_sender" {
		t.Errorf("unexpected ZabbixSender %q", z.ZabbixSender)
	}
	if z.Prefix != "wx." {
		t.Errorf("unexpected Prefix %q", z.Prefix)
	}
	if z.Server != "zabbix.example.com" {
		t.Errorf("unexpected Server %q", z.Server)
	}
	if z.Host != "station-1" {
		t.Errorf("unexpected Host %q", z.Host)
	}
	if z.SendInterval != 60 {
		t.Errorf("expected SendInterval=60, got %v", z.SendInterval)
	}
	if z.Config != "/etc/zabbix/zabbix_agent2.conf" {
		t.Errorf("unexpected Config %q", z.Config)
	}
	if z.Timeout != 15*time.Second {
		t.Errorf("expected Timeout=15s, got %v", z.Timeout)
	}
}

func TestParse_EmptyStringsAreKept(t *testing.T) {
	input := `{"Zabbix": {"Enable": true, "Prefix": "", "Host": "", "Config": ""}}`

	cfg, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	z := cfg.Zabbix
	if z.Prefix != "" {
		t.Errorf("expected empty Prefix, got %q", z.Prefix)
	}
	if z.Host != "" {
		t.Errorf("expected empty Host, got %q", z.Host)
	}
	if z.Config != "" {
		t.Errorf("expected empty Config, got %q", z.Config)
	}
	if z.Server != "127.0.0.1" {
		t.Errorf("expected default Server for a missing key, got %q", z.Server)
	}
	if z.ZabbixSender != "/usr/bin/zabbix_sender" {
		t.Errorf("expected default ZabbixSender for a missing key, got %q", z.ZabbixSender)
	}
}

func TestParse_EmptySenderWhenEnabled(t *testing.T) {
	_, err := Parse([]byte(`{"Zabbix": {"Enable": true, "ZabbixSender": ""}}`))
	if err == nil || !strings.Contains(err.Error(), "Zabbix.ZabbixSender") {
		t.Errorf("expected ZabbixSender error, got %v", err)
	}
}

func TestParse_StringValues(t *testing.T) {
	input := `{"Zabbix": {"Enable": "yes", "SendInterval": "2.5"}}`

	cfg, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !cfg.Zabbix.Enable {
		t.Error("expected Enable=true from \"yes\"")
	}
	if cfg.Zabbix.SendInterval != 2.5 {
		t.Errorf("expected SendInterval=2.5, got %v", cfg.Zabbix.SendInterval)
	}
}

func TestParse_InvalidValues(t *testing.T) {
	inputs := []struct {
		name  string
		input string
		want  string
	}{
		{"bad bool", `{"Zabbix": {"Enable": "maybe"}}`, "Zabbix.Enable"},
		{"bad interval", `{"Zabbix": {"SendInterval": "soon"}}`, "Zabbix.SendInterval"},
		{"bad timeout", `{"Zabbix": {"Timeout": "forever"}}`, "Zabbix.Timeout"},
		{"bad kafka timeout", `{"Source": {"Kafka": {"Timeout": "x"}}}`, "Source.Kafka.Timeout"},
		{"unknown source", `{"Source": {"Type": "mqtt"}}`, "unknown source type"},
		{"file without path", `{"Source": {"Type": "file"}}`, "Source.File.Path"},
		{"socks without port", `{"SocksProxy": {"Host": "proxy.local"}}`, "SocksProxy.Port"},
		{"not json", `Zabbix`, "failed to parse config JSON"},
	}

	for _, tt := range inputs {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParse_EnabledWithoutSender(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Zabbix.Enable = true
	cfg.Zabbix.ZabbixSender = " "

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for blank ZabbixSender")
	}
}

func TestParse_KafkaSource(t *testing.T) {
	input := `{
		"Source": {
			"Type": "kafka",
			"Event": "archive",
			"Kafka": {
				"Brokers": ["k1:9092", "k2:9092"],
				"Topic": "weewx",
				"Offset": "oldest",
				"Timeout": "3s",
				"SASLEnabled": true,
				"SASLMechanism": "SCRAM-SHA-512",
				"SASLUser": "wx",
				"SASLPassword": "secret"
			}
		}
	}`

	cfg, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	k := cfg.Source.Kafka
	if cfg.Source.Type != "kafka" || cfg.Source.Event != "archive" {
		t.Errorf("unexpected source %q/%q", cfg.Source.Type, cfg.Source.Event)
	}
	if len(k.Brokers) != 2 || k.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers %v", k.Brokers)
	}
	if k.Offset != "oldest" {
		t.Errorf("expected Offset=oldest, got %q", k.Offset)
	}
	if k.Timeout != 3*time.Second {
		t.Errorf("expected Timeout=3s, got %v", k.Timeout)
	}
	if !k.SASLEnabled || k.SASLMechanism != "SCRAM-SHA-512" {
		t.Errorf("unexpected SASL settings %+v", k)
	}
	if k.ClientID != "weewx-zabbix" {
		t.Errorf("expected default ClientID, got %q", k.ClientID)
	}
}

func TestParse_RedisSourceKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{"Source": {"Type": "redis", "Redis": {"DB": 2}}}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	r := cfg.Source.Redis
	if r.Address != "127.0.0.1:6379" {
		t.Errorf("expected default Address, got %q", r.Address)
	}
	if r.Channel != "weewx:loop" {
		t.Errorf("expected default Channel, got %q", r.Channel)
	}
	if r.DB != 2 {
		t.Errorf("expected DB=2, got %d", r.DB)
	}
}

// --- Merge Tests ---

func TestMerge_Nil(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge(nil)
	if cfg.Zabbix.Prefix != "weewx_" {
		t.Errorf("expected Prefix unchanged, got %q", cfg.Zabbix.Prefix)
	}
}

func TestMerge_EmptyKeepsExisting(t *testing.T) {
	base := DefaultConfig()
	base.SOCKSProxy.Host = "existing.socks"
	base.Source.Kafka.Topic = "existing"

	base.Merge(&Config{})

	if base.SOCKSProxy.Host != "existing.socks" {
		t.Errorf("expected SOCKSProxy.Host preserved, got %q", base.SOCKSProxy.Host)
	}
	if base.Source.Kafka.Topic != "existing" {
		t.Errorf("expected Kafka.Topic preserved, got %q", base.Source.Kafka.Topic)
	}
}

// --- Logging Tests ---

func TestParseLogging_Defaults(t *testing.T) {
	lc, err := ParseLogging([]byte(`{"Level": "debug"}`))
	if err != nil {
		t.Fatalf("ParseLogging failed: %v", err)
	}
	def := logger.DefaultConfig()
	if lc.Level != "debug" {
		t.Errorf("expected Level=debug, got %q", lc.Level)
	}
	if lc.FilePath != def.FilePath {
		t.Errorf("expected default FilePath, got %q", lc.FilePath)
	}
	if lc.MaxSizeMB != def.MaxSizeMB {
		t.Errorf("expected default MaxSizeMB, got %d", lc.MaxSizeMB)
	}
	if lc.Console {
		t.Error("expected Console=false when omitted")
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "weewx-zabbix.json")
	loggingPath := filepath.Join(dir, "Logging.json")

	if err := os.WriteFile(configPath, []byte(`{"Zabbix": {"Enable": true}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(loggingPath, []byte(`{"Format": "fixed"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, lc, err := LoadAll(configPath, loggingPath)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if !cfg.Zabbix.Enable {
		t.Error("expected Enable=true")
	}
	if lc.Format != logger.FormatFixed {
		t.Errorf("expected Format=fixed, got %q", lc.Format)
	}
}

func TestLoadAll_MissingFile(t *testing.T) {
	_, _, err := LoadAll(filepath.Join(t.TempDir(), "missing.json"), "unused.json")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "failed to load config") {
		t.Errorf("unexpected error: %v", err)
	}
}
