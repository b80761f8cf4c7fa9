// Package zabbix forwards weewx loop packets to Zabbix by piping them to
// zabbix_sender.
package zabbix

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/HoracioDos/weewx-zabbix/internal/config"
	"github.com/HoracioDos/weewx-zabbix/internal/engine"
	"github.com/HoracioDos/weewx-zabbix/internal/logger"
)

// Service sends each accepted loop packet to zabbix_sender.
type Service struct {
	cfg    config.ZabbixConfig
	runner Runner
	clock  clock.Clock

	mu       sync.Mutex
	lastSend time.Time
	sent     bool
}

// Option customizes a Service.
type Option func(*Service)

// WithRunner replaces the os/exec runner.
func WithRunner(r Runner) Option {
	return func(s *Service) { s.runner = r }
}

// WithClock replaces the wall clock used for throttling.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// New creates the service and, when cfg.Enable is set, binds it to loop
// packets on b. Nothing is executed until a packet arrives.
func New(b engine.Binder, cfg config.ZabbixConfig, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		runner: ExecRunner{},
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	log := logger.WithComponent("zabbix")
	log.Debug().
		Bool("enable", cfg.Enable).
		Str("zabbix_sender", cfg.ZabbixSender).
		Str("prefix", cfg.Prefix).
		Str("server", cfg.Server).
		Str("host", cfg.Host).
		Float64("send_interval", cfg.SendInterval).
		Str("config", cfg.Config).
		Dur("timeout", cfg.Timeout).
		Msg("Zabbix service configured")

	if cfg.Enable {
		b.Bind(engine.NewLoopPacket, s.NewLoopPacket)
	}
	return s
}

// Args returns the zabbix_sender arguments: read items from stdin and send
// them to the configured server.
func (s *Service) Args() []string {
	return []string{"-c", s.cfg.Config, "-z", s.cfg.Server, "-i", "-"}
}

// NewLoopPacket handles one loop packet. Packets arriving sooner than
// SendInterval after the last accepted one are dropped. Sender failures
// are logged and never returned to the engine.
func (s *Service) NewLoopPacket(ctx context.Context, event engine.Event) {
	log := logger.WithComponent("zabbix")

	// Held across the sender run so a slow zabbix_sender cannot be started
	// again before the previous one exits.
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	interval := s.cfg.Interval()
	if interval > 0 && s.sent {
		if elapsed := now.Sub(s.lastSend); elapsed < interval {
			log.Debug().
				Float64("next_update", (interval - elapsed).Seconds()).
				Msg("Ignoring packet")
			return
		}
	}
	s.lastSend = now
	s.sent = true

	fields := event.Packet.Fields()
	log.Debug().Int("fields", len(fields)).Msg("Loop packet received")

	payload := make([]byte, 0, 64*len(fields))
	for _, f := range fields {
		line := FormatLine(s.cfg.Host, s.cfg.Prefix, f.Name, f.Value)
		log.Debug().Str("line", line[:len(line)-1]).Msg("Payload line")
		payload = append(payload, line...)
	}

	args := s.Args()
	log.Debug().
		Str("command", s.cfg.ZabbixSender).
		Strs("args", args).
		Msg("Running zabbix_sender")

	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := s.clock.Now()
	out, err := s.runner.Run(runCtx, s.cfg.ZabbixSender, args, payload)

	log.Info().Str("output", collapseWhitespace(string(out))).Msg("zabbix_sender output")
	if err != nil {
		log.Warn().
			Err(err).
			Str("command", s.cfg.ZabbixSender).
			Dur("duration", s.clock.Since(start)).
			Msg("zabbix_sender failed")
	}
}
