package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"

	"routelink/internal/config"
)

// Setup initializes Logrus to write to a rotating file and returns that
// writer so the HTTP access log can share it.
func Setup(c config.LogConfig) io.Writer {
	// 1) Lumberjack for file rotation
	rotator := &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    10, // megabytes
		MaxBackups: 7,  // keep up to 7 old files
		MaxAge:     7,  // days
		Compress:   true,
	}

	var out io.Writer = rotator
	if c.Stdout {
		out = io.MultiWriter(rotator, os.Stderr)
	}

	// 2) Configure Logrus to write to that file
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
		logrus.WithError(err).Warnf("Unknown LOG_LEVEL %q, using info", c.Level)
	}
	logrus.SetLevel(level)
	return out
}
