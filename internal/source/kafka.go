package source

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"hash"
	"os"
	"strings"
	"sync"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"

	"github.com/HoracioDos/weewx-zabbix/internal/config"
	"github.com/HoracioDos/weewx-zabbix/internal/engine"
	"github.com/HoracioDos/weewx-zabbix/internal/logger"
	"github.com/HoracioDos/weewx-zabbix/internal/network"
)

var (
	// SHA256 hash generator for SCRAM-SHA-256
	SHA256 scram.HashGeneratorFcn = func() hash.Hash { return sha256.New() }
	// SHA512 hash generator for SCRAM-SHA-512
	SHA512 scram.HashGeneratorFcn = func() hash.Hash { return sha512.New() }
)

// XDGSCRAMClient implements sarama.SCRAMClient for SCRAM authentication.
type XDGSCRAMClient struct {
	*scram.Client
	*scram.ClientConversation
	HashGeneratorFcn scram.HashGeneratorFcn
}

// Begin starts the SCRAM authentication.
func (x *XDGSCRAMClient) Begin(userName, password, authzID string) (err error) {
	x.Client, err = x.HashGeneratorFcn.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	x.ClientConversation = x.Client.NewConversation()
	return nil
}

// Step processes the server challenge.
func (x *XDGSCRAMClient) Step(challenge string) (string, error) {
	return x.ClientConversation.Step(challenge)
}

// Done returns true if the conversation is complete.
func (x *XDGSCRAMClient) Done() bool {
	return x.ClientConversation.Done()
}

// KafkaSource consumes packets from every partition of a topic.
type KafkaSource struct {
	consumer sarama.Consumer
	topic    string
	offset   int64
	event    engine.EventType
}

// NewKafkaSource connects a consumer to cfg.Brokers.
func NewKafkaSource(cfg config.KafkaSourceConfig, socksCfg config.SOCKSConfig, event engine.EventType) (*KafkaSource, error) {
	saramaConfig, err := newSaramaConfig(cfg, socksCfg)
	if err != nil {
		return nil, err
	}

	consumer, err := sarama.NewConsumer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return NewKafkaSourceFromConsumer(consumer, cfg.Topic, parseOffset(cfg.Offset), event), nil
}

// NewKafkaSourceFromConsumer wraps an existing consumer.
func NewKafkaSourceFromConsumer(consumer sarama.Consumer, topic string, offset int64, event engine.EventType) *KafkaSource {
	return &KafkaSource{
		consumer: consumer,
		topic:    topic,
		offset:   offset,
		event:    event,
	}
}

func parseOffset(s string) int64 {
	if strings.EqualFold(strings.TrimSpace(s), "oldest") {
		return sarama.OffsetOldest
	}
	return sarama.OffsetNewest
}

func newSaramaConfig(cfg config.KafkaSourceConfig, socksCfg config.SOCKSConfig) (*sarama.Config, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.ClientID
	saramaConfig.Consumer.Return.Errors = false
	saramaConfig.Consumer.Offsets.Initial = parseOffset(cfg.Offset)

	if cfg.Timeout > 0 {
		saramaConfig.Net.DialTimeout = cfg.Timeout
		saramaConfig.Net.ReadTimeout = cfg.Timeout
		saramaConfig.Net.WriteTimeout = cfg.Timeout
	}

	if cfg.EnableTLS {
		tlsConfig, err := createTLSConfig(cfg.TLSCertFile, cfg.TLSKeyFile, cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		saramaConfig.Net.TLS.Enable = true
		saramaConfig.Net.TLS.Config = tlsConfig
	}

	if cfg.SASLEnabled {
		saramaConfig.Net.SASL.Enable = true
		saramaConfig.Net.SASL.User = cfg.SASLUser
		saramaConfig.Net.SASL.Password = cfg.SASLPassword

		switch strings.ToUpper(cfg.SASLMechanism) {
		case "SCRAM-SHA-256":
			saramaConfig.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
			saramaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &XDGSCRAMClient{HashGeneratorFcn: SHA256}
			}
		case "SCRAM-SHA-512":
			saramaConfig.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
			saramaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &XDGSCRAMClient{HashGeneratorFcn: SHA512}
			}
		default:
			saramaConfig.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		}
	}

	dialer, err := network.ProxyDialer(socksCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for Kafka: %w", err)
	}
	if dialer != nil {
		saramaConfig.Net.Proxy.Enable = true
		saramaConfig.Net.Proxy.Dialer = dialer
	}

	if err := saramaConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Kafka configuration: %w", err)
	}
	return saramaConfig, nil
}

// Run implements Source. Partition consumers forward into a single channel
// so events are dispatched one at a time from this goroutine.
func (s *KafkaSource) Run(ctx context.Context, d engine.Dispatcher) error {
	log := logger.WithComponent("kafka-source").With().Str("topic", s.topic).Logger()

	partitions, err := s.consumer.Partitions(s.topic)
	if err != nil {
		return fmt.Errorf("failed to list partitions of %s: %w", s.topic, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan *sarama.ConsumerMessage)
	var wg sync.WaitGroup
	var pcs []sarama.PartitionConsumer
	defer func() {
		cancel()
		for _, pc := range pcs {
			if err := pc.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing partition consumer")
			}
		}
		wg.Wait()
	}()

	for _, p := range partitions {
		pc, err := s.consumer.ConsumePartition(s.topic, p, s.offset)
		if err != nil {
			return fmt.Errorf("failed to consume %s/%d: %w", s.topic, p, err)
		}
		pcs = append(pcs, pc)

		wg.Add(1)
		go forward(runCtx, &wg, pc, msgs)
	}

	log.Info().
		Int("partitions", len(partitions)).
		Str("event", s.event.String()).
		Msg("Consuming packets")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Consumer stopped")
			return nil
		case msg := <-msgs:
			dispatchRecord(ctx, d, s.event, msg.Value, log)
		}
	}
}

func forward(ctx context.Context, wg *sync.WaitGroup, pc sarama.PartitionConsumer, out chan<- *sarama.ConsumerMessage) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pc.Messages():
			if !ok {
				return
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close closes the Kafka consumer.
func (s *KafkaSource) Close() error {
	return s.consumer.Close()
}

func createTLSConfig(certFile, keyFile, caFile string) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if certFile != "" && keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if caFile != "" {
		caCert, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}
