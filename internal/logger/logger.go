// Package logger builds the zerolog loggers used when the caller does not
// supply one.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Environment variables read by New.
const (
	EnvMode  = "WALLABAG_ENV"
	EnvLevel = "LOG_LEVEL"
)

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
	colorCyan
	colorWhite

	colorBold     = 1
	colorDarkGray = 90
)

func colorize(s interface{}, c int) string {
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

// New creates a logger from the environment. Without LOG_LEVEL it discards
// everything. WALLABAG_ENV selects console output for "development" or "dev"
// and JSON otherwise.
func New() zerolog.Logger {
	raw, ok := os.LookupEnv(EnvLevel)
	if !ok || raw == "" {
		return Nop()
	}

	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var l zerolog.Logger
	switch os.Getenv(EnvMode) {
	case "development", "dev":
		l = NewDevelopment(os.Stderr)
	default:
		l = NewProduction(os.Stderr)
	}
	return l.Level(level)
}

// Nop returns a logger that writes nothing.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// NewDevelopment creates a console logger with colored levels.
func NewDevelopment(w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "2006-01-02 15:04:05",
		FormatLevel: func(i interface{}) string {
			var l string
			if ll, ok := i.(string); ok {
				switch ll {
				case "trace":
					l = colorize("TRC", colorMagenta)
				case "debug":
					l = colorize("DBG", colorYellow)
				case "info":
					l = colorize("INF", colorGreen)
				case "warn":
					l = colorize("WRN", colorRed)
				case "error":
					l = colorize("ERR", colorRed)
				case "fatal":
					l = colorize("FTL", colorRed)
				case "panic":
					l = colorize("PNC", colorRed)
				default:
					l = colorize(strings.ToUpper(ll)[0:3], colorBold)
				}
			} else {
				l = strings.ToUpper(fmt.Sprintf("%s", i))[0:3]
			}
			return l
		},
		FormatFieldName: func(i interface{}) string {
			return colorize(fmt.Sprintf("%s=", i), colorDarkGray)
		},
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// NewProduction creates a JSON logger with UNIX timestamps.
func NewProduction(w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(w).With().Timestamp().Logger()
}
