// Package telemetry wires Sentry error reporting for a run.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/activity-loader/internal/conf"
	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/logger"
)

const flushTimeout = 2 * time.Second

// options holds overrides used by tests.
type options struct {
	transport sentry.Transport
}

// Option configures Init.
type Option func(*options)

// WithTransport replaces the HTTP transport.
func WithTransport(t sentry.Transport) Option {
	return func(o *options) { o.transport = t }
}

// Init starts Sentry when telemetry is enabled and registers it as the
// error reporter. The returned function flushes pending events and detaches
// the reporter; it is safe to call when telemetry is disabled.
func Init(settings *conf.TelemetrySettings, release string, log logger.Logger, opts ...Option) (func(), error) {
	if !settings.Enabled {
		return func() {}, nil
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	log = log.Module("telemetry")

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        settings.DSN,
		SampleRate: 1.0,

		// Privacy-compliant settings
		AttachStacktrace: false,
		Environment:      settings.Environment,
		ServerName:       "",
		Release:          fmt.Sprintf("activity-loader@%s", release),
		Transport:        o.transport,

		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return func() {}, errors.ConfigError(fmt.Errorf("sentry initialization failed: %w", err)).
			Context("dsn", errors.ScrubMessage(settings.DSN)).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	log.Debug("Sentry error reporting enabled", logger.String("environment", settings.Environment))

	return func() {
		errors.SetTelemetryReporter(nil)
		if !sentry.Flush(flushTimeout) {
			log.Warn("Timed out flushing Sentry events")
		}
	}, nil
}

// applyPrivacyFilters applies privacy filters to a Sentry event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	// Clear user data and server name
	event.User = sentry.User{}
	event.ServerName = ""
	event.Message = errors.ScrubMessage(event.Message)

	// Remove sensitive contexts
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}

	// Remove sensitive tags
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}
