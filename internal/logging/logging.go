// Package logging configures the process-wide phuslu logger.
package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// Setup installs log.DefaultLogger writing to w at the given level.
// format is "json" for machine-readable output, anything else renders for humans.
func Setup(level, format string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	var writer log.Writer
	if format == "json" {
		writer = &log.IOWriter{Writer: w}
	} else {
		writer = &log.ConsoleWriter{
			ColorOutput:    w == os.Stderr && log.IsTerminal(os.Stderr.Fd()),
			QuoteString:    true,
			EndWithMessage: true,
			Writer:         w,
		}
	}
	log.DefaultLogger = log.Logger{
		Level:      log.ParseLevel(level),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Writer:     writer,
	}
}

// Discard silences all logging; used by interactive front ends that own the terminal.
func Discard() {
	log.DefaultLogger = log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}
