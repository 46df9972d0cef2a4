// Package logger configures the process-wide zerolog logger.  All packages
// log through zerolog's global log.Logger so call sites stay short.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets up the global logger.  In dev the output is a human-friendly
// console writer; in every other environment it is JSON on stdout.
func Init(service, env string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output io.Writer = os.Stdout
	if env == "dev" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	log.Logger = zerolog.New(output).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
