// Package source feeds observation packets into the engine. Every source
// dispatches from the goroutine that called Run, one record at a time.
package source

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/HoracioDos/weewx-zabbix/internal/engine"
)

// Source delivers packets until its input ends or ctx is cancelled.
type Source interface {
	// Run blocks, dispatching one event per received record. It returns
	// nil when ctx is cancelled or the input is exhausted.
	Run(ctx context.Context, d engine.Dispatcher) error

	// Close releases connections held by the source.
	Close() error
}

// dispatchRecord decodes one JSON record and dispatches it as eventType.
// Records that fail to decode are logged and skipped.
func dispatchRecord(ctx context.Context, d engine.Dispatcher, eventType engine.EventType, data []byte, log zerolog.Logger) bool {
	pkt, err := engine.ParsePacket(data)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(data)).Msg("Skipping malformed record")
		return false
	}

	d.Dispatch(ctx, engine.Event{Type: eventType, Packet: pkt})
	return true
}
