package source

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/HoracioDos/weewx-zabbix/internal/config"
	"github.com/HoracioDos/weewx-zabbix/internal/engine"
)

func TestKafkaSource_DispatchesMessages(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)
	consumer.SetTopicMetadata(map[string][]int32{"weewx-loop": {0}})

	pc := consumer.ExpectConsumePartition("weewx-loop", 0, sarama.OffsetNewest)
	pc.YieldMessage(&sarama.ConsumerMessage{Value: []byte(`{"outTemp": 54.3}`)})
	pc.YieldMessage(&sarama.ConsumerMessage{Value: []byte(`{oops`)})
	pc.YieldMessage(&sarama.ConsumerMessage{Value: []byte(`{"outTemp": 54.4, "rain": 0.0}`)})

	src := NewKafkaSourceFromConsumer(consumer, "weewx-loop", sarama.OffsetNewest, engine.NewLoopPacket)

	rec := newRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, rec) }()

	for i := 0; i < 2; i++ {
		select {
		case <-rec.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	events := rec.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Packet.Len() != 2 {
		t.Errorf("expected 2 fields in second packet, got %d", events[1].Packet.Len())
	}
}

func TestKafkaSource_UnknownTopic(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)
	consumer.SetTopicMetadata(map[string][]int32{"other": {0}})

	src := NewKafkaSourceFromConsumer(consumer, "weewx-loop", sarama.OffsetNewest, engine.NewLoopPacket)
	if err := src.Run(context.Background(), newRecorder()); err == nil {
		t.Fatal("expected error for a topic without metadata")
	}
}

func TestParseOffset(t *testing.T) {
	if parseOffset("oldest") != sarama.OffsetOldest {
		t.Error("expected oldest offset")
	}
	if parseOffset("") != sarama.OffsetNewest {
		t.Error("expected newest offset by default")
	}
}

func TestNewSaramaConfig(t *testing.T) {
	cfg := config.DefaultConfig().Source.Kafka
	cfg.SASLEnabled = true
	cfg.SASLMechanism = "scram-sha-256"
	cfg.SASLUser = "wx"
	cfg.SASLPassword = "secret"

	sc, err := newSaramaConfig(cfg, config.SOCKSConfig{Host: "127.0.0.1", Port: 1080})
	if err != nil {
		t.Fatalf("newSaramaConfig failed: %v", err)
	}
	if sc.Net.SASL.Mechanism != sarama.SASLTypeSCRAMSHA256 {
		t.Errorf("expected SCRAM-SHA-256, got %s", sc.Net.SASL.Mechanism)
	}
	if _, ok := sc.Net.SASL.SCRAMClientGeneratorFunc().(*XDGSCRAMClient); !ok {
		t.Error("expected XDGSCRAMClient generator")
	}
	if !sc.Net.Proxy.Enable {
		t.Error("expected proxy enabled")
	}
	if sc.ClientID != "weewx-zabbix" {
		t.Errorf("expected ClientID=weewx-zabbix, got %q", sc.ClientID)
	}
	if sc.Net.DialTimeout != 10*time.Second {
		t.Errorf("expected DialTimeout=10s, got %v", sc.Net.DialTimeout)
	}
}

func TestNewSaramaConfig_MissingCA(t *testing.T) {
	cfg := config.DefaultConfig().Source.Kafka
	cfg.EnableTLS = true
	cfg.TLSCAFile = "/nonexistent/ca.pem"

	if _, err := newSaramaConfig(cfg, config.SOCKSConfig{}); err == nil {
		t.Fatal("expected error for missing CA file")
	}
}

func TestXDGSCRAMClient_Begin(t *testing.T) {
	c := &XDGSCRAMClient{HashGeneratorFcn: SHA512}
	if err := c.Begin("wx", "secret", ""); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	first, err := c.Step("")
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if first == "" {
		t.Error("expected client-first message")
	}
	if c.Done() {
		t.Error("conversation should not be done after first step")
	}
}
