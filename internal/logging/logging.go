// Package logging provides the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger = logrus.New()
	once   sync.Once
)

// Fields is an alias so callers don't need to import logrus.
type Fields = logrus.Fields

// Options controls logger setup.
type Options struct {
	// Level is a logrus level name such as "debug" or "info".
	Level string
	// File enables rotated file output when non-empty.
	File string
	// MaxSizeMB is the rotation size for File.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int
	// NoColors disables ANSI colors on the console.
	NoColors bool
}

// Setup configures the shared logger. Only the first call has an effect.
func Setup(opts Options) *logrus.Logger {
	once.Do(func() {
		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        opts.NoColors,
			TimestampFormat: "02 Jan 06 - 15:04:05",
			HideKeys:        false,
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
			},
		})

		writers := []io.Writer{os.Stderr}
		if opts.File != "" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   opts.File,
				LocalTime:  true,
				Compress:   true,
				MaxSize:    opts.MaxSizeMB,
				MaxAge:     opts.MaxAgeDays,
				MaxBackups: opts.MaxBackups,
			})
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})

	return logger
}

// Logger returns the shared logger.
func Logger() *logrus.Logger {
	return logger
}

// SetOutput redirects the shared logger, mostly for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func Debug(fields Fields, msg string) {
	logger.WithFields(orEmpty(fields)).Debug(msg)
}

func Info(fields Fields, msg string) {
	logger.WithFields(orEmpty(fields)).Info(msg)
}

func Warn(fields Fields, msg string) {
	logger.WithFields(orEmpty(fields)).Warn(msg)
}

func Error(fields Fields, msg string) {
	logger.WithFields(orEmpty(fields)).Error(msg)
}

func Fatal(fields Fields, msg string) {
	logger.WithFields(orEmpty(fields)).Fatal(msg)
}

func orEmpty(fields Fields) Fields {
	if fields == nil {
		return Fields{}
	}
	return fields
}
