package logging

import (
	"log"
	"os"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

var current Level = LevelInfo

// InitFromEnv sets the log level based on LOG_LEVEL (debug|info|error).
func InitFromEnv() {
	SetLevel(ParseLevel(os.Getenv("LOG_LEVEL")))
}

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to info.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "error":
		return LevelError
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) {
	current = l
}

func Enabled(l Level) bool {
	return current <= l
}

func Debugf(format string, args ...interface{}) {
	if Enabled(LevelDebug) {
		log.Printf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if Enabled(LevelInfo) {
		log.Printf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	log.Fatalf(format, args...)
}

// Logger prefixes every line with a component tag such as "[bq-demo]".
type Logger struct {
	prefix string
}

func With(prefix string) Logger {
	return Logger{prefix: prefix}
}

func (l Logger) Debugf(format string, args ...interface{}) {
	Debugf(l.format(format), args...)
}

func (l Logger) Infof(format string, args ...interface{}) {
	Infof(l.format(format), args...)
}

func (l Logger) Errorf(format string, args ...interface{}) {
	Errorf(l.format(format), args...)
}

func (l Logger) Fatalf(format string, args ...interface{}) {
	Fatalf(l.format(format), args...)
}

func (l Logger) format(format string) string {
	if l.prefix == "" {
		return format
	}
	return l.prefix + " " + format
}
