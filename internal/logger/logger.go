package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	InfoLogger  = logrus.New()
	WarnLogger  = logrus.New()
	ErrorLogger = logrus.New()
	DebugLogger = logrus.New()
)

// Init configures the shared loggers. When file is non-empty, output is
// duplicated to a rotated log file.
func Init(level, file string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	var out io.Writer = os.Stdout
	if file != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	for _, l := range []*logrus.Logger{InfoLogger, WarnLogger, ErrorLogger, DebugLogger} {
		l.SetOutput(out)
		l.SetLevel(lvl)
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	}
}

// Silence discards all log output. Used by tests.
func Silence() {
	for _, l := range []*logrus.Logger{InfoLogger, WarnLogger, ErrorLogger, DebugLogger} {
		l.SetOutput(io.Discard)
	}
}
