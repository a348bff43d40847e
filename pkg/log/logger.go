package log

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
)

// NewContextWithLogger installs the process logger and returns a context
// carrying it plus a cleanup that flushes buffered output. Everything is
// written to stderr: stdout carries the MCP stream when serving stdio.
func NewContextWithLogger(ctx context.Context, debug bool) (context.Context, func()) {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return ""
	}

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Diode (ring buffer) keeps logging non-blocking under bursts.
	// Size: 1000, poll interval: 5ms.
	wr := diode.NewWriter(os.Stderr, 1000, 5*time.Millisecond, func(missed int) {
		fmt.Fprintf(os.Stderr, "logger dropped %d messages\n", missed)
	})

	output := zerolog.ConsoleWriter{
		Out:        wr,
		TimeFormat: time.DateTime,
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		},
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		CallerWithSkipFrameCount(2).
		Logger()

	log.Logger = logger

	// The cleanup closes the diode writer, flushing whatever is buffered.
	return log.With().Logger().WithContext(ctx), func() {
		wr.Close()
	}
}

func FromCtx(ctx context.Context) *zerolog.Logger {
	return log.Ctx(ctx)
}
