// conf/validate.go

package conf

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %s", strings.Join(ve.Errors, "; "))
}

var (
	identifierRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	columnRangeRe = regexp.MustCompile(`^[A-Za-z]{1,3}:[A-Za-z]{1,3}$`)
)

// ValidateSettings validates the entire Settings struct and reports every
// problem at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateSourceSettings(&settings.Source)...)
	ve.Errors = append(ve.Errors, validateDestinationSettings(&settings.Destination)...)
	ve.Errors = append(ve.Errors, validateLoadSettings(&settings.Load)...)
	ve.Errors = append(ve.Errors, validateMetricsSettings(&settings.Metrics)...)

	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry.dsn is required when telemetry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateSourceSettings(s *SourceSettings) []string {
	var errs []string
	if strings.TrimSpace(s.Path) == "" {
		errs = append(errs, "source.path is required")
	}
	if !columnRangeRe.MatchString(s.ColumnRange) {
		errs = append(errs, fmt.Sprintf("source.column_range %q must look like A:D", s.ColumnRange))
	}
	return errs
}

func validateDestinationSettings(d *DestinationSettings) []string {
	var errs []string

	switch d.Driver {
	case DriverPostgres, DriverMySQL:
		if d.Host == "" {
			errs = append(errs, "destination.host is required")
		}
		if d.Port <= 0 || d.Port > 65535 {
			errs = append(errs, fmt.Sprintf("destination.port %d is out of range", d.Port))
		}
		if d.Database == "" {
			errs = append(errs, "destination.database is required")
		}
		if d.Username == "" {
			errs = append(errs, "destination.username is required")
		}
	case DriverSQLite:
		if d.Path == "" {
			errs = append(errs, "destination.path is required for sqlite")
		}
	default:
		errs = append(errs, fmt.Sprintf("destination.driver %q is not one of postgres, mysql, sqlite", d.Driver))
	}

	// Schema and table are interpolated into SQL by the gorm stores, so
	// they are restricted to plain identifiers.
	if d.Driver == DriverPostgres && !identifierRe.MatchString(d.Schema) {
		errs = append(errs, fmt.Sprintf("destination.schema %q is not a valid identifier", d.Schema))
	}
	if !identifierRe.MatchString(d.Table) {
		errs = append(errs, fmt.Sprintf("destination.table %q is not a valid identifier", d.Table))
	}
	if d.ConnectTimeout < 0 {
		errs = append(errs, "destination.connect_timeout must not be negative")
	}

	return errs
}

func validateLoadSettings(l *LoadSettings) []string {
	var errs []string
	if strings.TrimSpace(l.InsertProcess) == "" {
		errs = append(errs, "load.insert_process is required")
	}
	if l.Timeout < 0 {
		errs = append(errs, "load.timeout must not be negative")
	}
	return errs
}

func validateMetricsSettings(m *MetricsSettings) []string {
	if !m.Enabled {
		return nil
	}
	var errs []string
	if m.TextfilePath == "" && m.PushgatewayURL == "" {
		errs = append(errs, "metrics.textfile_path or metrics.pushgateway_url is required when metrics are enabled")
	}
	if m.PushgatewayURL != "" && m.Job == "" {
		errs = append(errs, "metrics.job is required for the pushgateway")
	}
	return errs
}
