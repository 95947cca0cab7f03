package utils

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type requestIDKey struct{}

// ConfigureLogger sets the process-wide logrus formatter and level.
func ConfigureLogger(level string, jsonOutput bool) {
	logrus.SetOutput(os.Stdout)
	if jsonOutput {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes a standardized entry tagged with module, action and request_id.
// Keep message summarized; never log payloads.
func LogEvent(requestID, module, action, message string) {
	logrus.WithFields(logrus.Fields{
		"module":     strings.ToLower(module),
		"action":     action,
		"request_id": strings.TrimSpace(requestID),
	}).Info(message)
}

// LogError is LogEvent at error level with the cause attached.
func LogError(requestID, module, action string, err error) {
	logrus.WithFields(logrus.Fields{
		"module":     strings.ToLower(module),
		"action":     action,
		"request_id": strings.TrimSpace(requestID),
	}).WithError(err).Error(action + " failed")
}
