// Package logger configures the process-wide zerolog logger: a rotating log
// file, an optional console and per-component child loggers.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// consoleQueue hands lines to a slow writer from its own goroutine. Lines
// that arrive while the queue is full are discarded.
type consoleQueue struct {
	lines chan []byte
	out   io.Writer
	idle  chan struct{}

	mu       sync.RWMutex
	shutdown bool
	once     sync.Once
}

func newConsoleQueue(out io.Writer, depth int) *consoleQueue {
	q := &consoleQueue{
		lines: make(chan []byte, depth),
		out:   out,
		idle:  make(chan struct{}),
	}
	go q.run()
	return q
}

// Write never blocks and always reports success.
func (q *consoleQueue) Write(p []byte) (int, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.shutdown {
		return len(p), nil
	}

	select {
	case q.lines <- append([]byte(nil), p...):
	default:
	}
	return len(p), nil
}

func (q *consoleQueue) run() {
	defer close(q.idle)
	for line := range q.lines {
		_, _ = q.out.Write(line)
	}
}

// Close writes out what is queued and stops the goroutine.
func (q *consoleQueue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.shutdown = true
		close(q.lines)
		q.mu.Unlock()
		<-q.idle
	})
}

// Output formats for the log file.
const (
	FormatJSON  = "json"
	FormatFixed = "fixed"
)

// Config is the content of Logging.json.
type Config struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	Format     string `json:"Format"` // FormatJSON or FormatFixed
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
}

// DefaultConfig writes JSON lines to log/weewx-zabbix at info level.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		FilePath:   "log/weewx-zabbix/weewx-zabbix.log",
		Format:     FormatJSON,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

// outputs are the writers opened by the last Init.
type outputs struct {
	file    *lumberjack.Logger
	console *consoleQueue
}

func (o *outputs) close() {
	if o.file != nil {
		o.file.Close()
	}
	if o.console != nil {
		o.console.Close()
	}
	*o = outputs{}
}

var (
	mu     sync.Mutex
	root   = zerolog.New(os.Stdout).With().Timestamp().Logger()
	active outputs
)

// Init replaces the global logger. Calling it again, as the Logging.json
// watcher does, closes the writers of the previous call.
func Init(cfg Config) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	mu.Lock()
	defer mu.Unlock()

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	active.close()

	var sinks []io.Writer

	if cfg.FilePath != "" {
		file, err := openLogFile(cfg)
		if err != nil {
			return err
		}
		active.file = file
		if strings.EqualFold(cfg.Format, FormatFixed) {
			sinks = append(sinks, NewFixedFormatWriter(file))
		} else {
			sinks = append(sinks, file)
		}
	}

	if cfg.Console {
		active.console = newConsoleQueue(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}, 1000)
		sinks = append(sinks, active.console)
	}

	var out io.Writer
	switch len(sinks) {
	case 0:
		out = os.Stdout
	case 1:
		out = sinks[0]
	default:
		out = zerolog.MultiLevelWriter(sinks...)
	}

	root = zerolog.New(out).With().Timestamp().Caller().Logger()
	return nil
}

func openLogFile(cfg Config) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}, nil
}

// Logger returns a copy of the global logger.
func Logger() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	l := root
	return &l
}

func Debug() *zerolog.Event { return Logger().Debug() }

func Info() *zerolog.Event { return Logger().Info() }

func Warn() *zerolog.Event { return Logger().Warn() }

func Error() *zerolog.Event { return Logger().Error() }

// WithComponent tags every entry with component, which the fixed format
// prints as its own column.
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}
