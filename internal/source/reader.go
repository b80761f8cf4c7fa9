package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/HoracioDos/weewx-zabbix/internal/engine"
	"github.com/HoracioDos/weewx-zabbix/internal/logger"
)

const maxRecordBytes = 1 << 20

// ReaderSource reads newline-delimited JSON records.
type ReaderSource struct {
	name  string
	r     io.Reader
	event engine.EventType

	closeOnce sync.Once
	closeErr  error
}

// NewReaderSource reads records from r. name labels log lines. If r is an
// io.Closer it is closed when Run is cancelled or the source is closed.
func NewReaderSource(name string, r io.Reader, event engine.EventType) *ReaderSource {
	return &ReaderSource{name: name, r: r, event: event}
}

// NewStdinSource reads records from standard input.
func NewStdinSource(event engine.EventType) *ReaderSource {
	return NewReaderSource("stdin", os.Stdin, event)
}

// NewFileSource reads records from the file at path.
func NewFileSource(path string, event engine.EventType) (*ReaderSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open packet file: %w", err)
	}
	return NewReaderSource(path, f, event), nil
}

// Run implements Source. Blank lines are ignored. Cancelling ctx returns
// at once, even while a read is pending on idle input.
func (s *ReaderSource) Run(ctx context.Context, d engine.Dispatcher) error {
	log := logger.WithComponent("reader-source").With().Str("input", s.name).Logger()
	log.Info().Str("event", s.event.String()).Msg("Reading packets")

	lines := make(chan []byte)
	errc := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go s.scan(lines, errc, stop)

	var count, dispatched int
	for {
		if ctx.Err() != nil {
			s.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("Reading stopped")
			s.Close()
			return nil

		case line, ok := <-lines:
			if !ok {
				if err := <-errc; err != nil {
					return fmt.Errorf("failed to read %s: %w", s.name, err)
				}
				log.Info().
					Int("lines", count).
					Int("dispatched", dispatched).
					Msg("Input exhausted")
				return nil
			}
			count++
			if len(line) == 0 || ctx.Err() != nil {
				continue
			}
			if dispatchRecord(ctx, d, s.event, line, log) {
				dispatched++
			}
		}
	}
}

// scan feeds trimmed lines to out until the input ends or stop is closed.
func (s *ReaderSource) scan(out chan<- []byte, errc chan<- error, stop <-chan struct{}) {
	defer close(out)

	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 64*1024), maxRecordBytes)

	for scanner.Scan() {
		line := append([]byte(nil), bytes.TrimSpace(scanner.Bytes())...)
		select {
		case out <- line:
		case <-stop:
			errc <- nil
			return
		}
	}
	errc <- scanner.Err()
}

// Close closes the underlying reader if it is an io.Closer. It is safe to
// call more than once.
func (s *ReaderSource) Close() error {
	s.closeOnce.Do(func() {
		if c, ok := s.r.(io.Closer); ok {
			s.closeErr = c.Close()
		}
	})
	return s.closeErr
}
