// Package logger provides the process-wide structured logger.
//
// Output goes to stderr because stdout carries the MCP protocol.
package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	*logrus.Logger
}

var (
	logger *Logger
	once   sync.Once
)

func Init() *Logger {
	once.Do(func() {
		log := logrus.New()
		log.SetOutput(os.Stderr)
		log.SetFormatter(jsonFormatter())
		log.SetReportCaller(true)
		log.SetLevel(logrus.InfoLevel)

		logger = &Logger{log}
	})
	return logger
}

func Get() *Logger {
	return Init()
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			filename := strings.Split(f.File, "/")
			return "", fmt.Sprintf("%s:%d", filename[len(filename)-1], f.Line)
		},
	}
}

// SetLevel parses level and falls back to info when it is not recognized.
func SetLevel(level string) {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	Get().SetLevel(logLevel)
}

// SetFormat switches between "json" (default) and "text" output.
func SetFormat(format string) {
	if strings.EqualFold(format, "text") {
		Get().SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	Get().SetFormatter(jsonFormatter())
}

func SetOutput(w io.Writer) {
	Get().SetOutput(w)
}

func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

func Debug(args ...interface{}) {
	Get().Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	Get().Debugf(format, args...)
}

func Info(args ...interface{}) {
	Get().Info(args...)
}

func Infof(format string, args ...interface{}) {
	Get().Infof(format, args...)
}

func Warn(args ...interface{}) {
	Get().Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	Get().Warnf(format, args...)
}

func Error(args ...interface{}) {
	Get().Error(args...)
}

func Errorf(format string, args ...interface{}) {
	Get().Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	Get().Fatalf(format, args...)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return Get().WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Get().WithFields(fields)
}

func WithError(err error) *logrus.Entry {
	return Get().WithError(err)
}
