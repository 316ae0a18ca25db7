package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/MacAttak/pan-scanner/pkg/config"
)

// New builds the process logger from configuration. Console format
// writes human-readable lines to stderr; json writes structured events.
// When an output file is configured it receives the log instead.
func New(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if cfg.OutputFile != "" {
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), err
		}
		out = f
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
