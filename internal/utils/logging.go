package utils

import (
	"context"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// NewLogger configures the process wide logrus logger.
func NewLogger(level, format string) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetOutput(os.Stdout)
	if format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func withTrace(ctx context.Context, entry *logrus.Entry) *logrus.Entry {
	if ctx == nil {
		return entry
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return entry
	}
	return entry.WithFields(logrus.Fields{
		"trace_id": sc.TraceID().String(),
		"span_id":  sc.SpanID().String(),
	})
}

// LogError logs err with structured context and reports it to Sentry.
func LogError(ctx context.Context, errorType string, err error, data map[string]interface{}) {
	log := withTrace(ctx, logrus.WithFields(logrus.Fields{
		"error_type": errorType,
		"error":      err.Error(),
	}))
	for k, v := range data {
		log = log.WithField(k, v)
	}
	log.Error("Error occurred")

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_type", errorType)
		for k, v := range data {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// LogEvent logs a domain event and leaves a Sentry breadcrumb.
func LogEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	log := withTrace(ctx, logrus.WithFields(logrus.Fields{
		"event_type": eventType,
	}))
	for k, v := range data {
		log = log.WithField(k, v)
	}
	log.Info("Event occurred")

	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "info",
		Category:  eventType,
		Data:      data,
		Timestamp: time.Now(),
	})
}
