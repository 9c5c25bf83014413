package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options defines logger initialization parameters.
type Options struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Service is attached to every event as "service".
	Service string
	// Console receives the human-facing stream; stdout when nil.
	Console io.Writer

	// Axiom
	SendToAxiom  bool
	AxiomAPIKey  string
	AxiomOrgID   string
	AxiomDataset string
	AxiomFlush   time.Duration
}

var (
	global  zerolog.Logger
	shipper *axiomShipper
)

// Init replaces the global logger. The file sink rotates with lumberjack; the
// Axiom sink only receives info and above.
func Init(opts Options) error {
	Close()

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	service := serviceName(opts.Service)

	sinks := []io.Writer{consoleSink(opts)}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
		sinks = append(sinks, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	}
	if opts.SendToAxiom && opts.AxiomAPIKey != "" {
		client, err := newAxiomIngester(opts.AxiomAPIKey, opts.AxiomOrgID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			shipper = newAxiomShipper(client, datasetName(opts.AxiomDataset), opts.AxiomFlush)
			sinks = append(sinks, &zerolog.FilteredLevelWriter{
				Writer: zerolog.LevelWriterAdapter{Writer: shipper},
				Level:  zerolog.InfoLevel,
			})
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	global = zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		Level(level).
		With().Timestamp().Str("service", service).
		Logger()
	log.Logger = global
	return nil
}

func consoleSink(opts Options) io.Writer {
	out := opts.Console
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, FieldsExclude: []string{"service"}}
	}
	return out
}

// Close flushes the Axiom sink, if any.
func Close() {
	if shipper != nil {
		shipper.Close()
		shipper = nil
	}
}

// Get returns the global logger.
func Get() *zerolog.Logger { return &global }

func serviceName(s string) string {
	if s == "" {
		return "pdfdesk"
	}
	return s
}

func datasetName(s string) string {
	if s == "" {
		return "dev_pdfdesk"
	}
	return s
}
