package conf

import (
	"net/url"

	"github.com/tphakala/activity-loader/internal/errors"
)

const redacted = "[REDACTED]"

// Redacted returns a copy of s that is safe to print: the destination
// password and the telemetry DSN secret are masked.
func (s *Settings) Redacted() Settings {
	out := *s
	if out.Destination.Password != "" {
		out.Destination.Password = redacted
	}
	out.Telemetry.DSN = redactURL(out.Telemetry.DSN)
	out.Metrics.PushgatewayURL = redactURL(out.Metrics.PushgatewayURL)
	return out
}

// redactURL masks the userinfo of a URL, e.g. the public key of a Sentry DSN.
func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.ScrubMessage(raw)
	}
	if u.User != nil {
		u.User = url.User(redacted)
	}
	return u.String()
}
