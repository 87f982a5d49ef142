package log

import (
	"bufio"
	"bytes"
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"sync"
)

// Config declares a logger. Zero values select info level, text format and
// stderr.
type Config struct {
	Level  string   `mapstructure:"level" json:"level"`
	Format string   `mapstructure:"format" json:"format"` // text|json
	Output string   `mapstructure:"output" json:"output"` // stderr|stdout|null|<file path>
	Redact []string `mapstructure:"redact" json:"redact"`

	SampleInitial    int `mapstructure:"sampleInitial" json:"sampleInitial"`
	SampleThereafter int `mapstructure:"sampleThereafter" json:"sampleThereafter"`
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := []LoggerOption{WithLevel(level)}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		opts = append(opts, WithFormatter(&TextFormatter{}))
	case "json":
		opts = append(opts, WithFormatter(&JSONFormatter{}))
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		opts = append(opts, WithOutput(NewConsoleOutput()))
	case "stdout":
		opts = append(opts, WithOutput(&WriterOutput{W: nopCloser{os.Stdout}}))
	case "null", "none":
		opts = append(opts, WithOutput(&NullOutput{}))
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log output: %w", err)
		}
		opts = append(opts, WithOutput(&WriterOutput{W: f}))
	}

	if len(cfg.Redact) > 0 {
		opts = append(opts, WithRedaction(cfg.Redact...))
	}
	if cfg.SampleThereafter > 0 {
		opts = append(opts, WithSampling(cfg.SampleInitial, cfg.SampleThereafter))
	}
	return NewLogger(opts...), nil
}

type nopCloser struct{ *os.File }

func (nopCloser) Close() error { return nil }

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewLogger(WithFormatter(&TextFormatter{}))
)

// SetDefaultLogger replaces the process-wide logger.
func SetDefaultLogger(l Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// GetDefaultLogger returns the process-wide logger.
func GetDefaultLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// stdWriter adapts Logger to io.Writer, one record per line.
type stdWriter struct {
	l     Logger
	level Level
}

func (w stdWriter) Write(p []byte) (int, error) {
	sc := bufio.NewScanner(bytes.NewReader(p))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			w.l.Log(w.level, line)
		}
	}
	return len(p), nil
}

// ToStdLogger returns a standard library logger that writes through l.
func ToStdLogger(l Logger, level Level) *stdlog.Logger {
	return stdlog.New(stdWriter{l: l, level: level}, "", 0)
}

// RedirectStdLog sends the standard library's global logger through l at
// info level.
func RedirectStdLog(l Logger) {
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(stdWriter{l: l, level: InfoLevel})
}
