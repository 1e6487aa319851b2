// config.go: settings for the activity loader and the functions that load them.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/logger"
)

// Supported destination drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

const (
	configName = "activity-loader"
	envPrefix  = "ACTIVITY_LOADER"
)

// SourceSettings locates the workbook.
type SourceSettings struct {
	Path        string `yaml:"path" mapstructure:"path"`                 // workbook file
	ColumnRange string `yaml:"column_range" mapstructure:"column_range"` // columns read from the first sheet, e.g. "A:D"
}

// CredentialSettings locates the INI credential file.
type CredentialSettings struct {
	File string `yaml:"file" mapstructure:"file"` // empty disables the file
}

// DestinationSettings describes the destination table and how to reach it.
type DestinationSettings struct {
	Driver         string        `yaml:"driver" mapstructure:"driver"`
	Host           string        `yaml:"host" mapstructure:"host"`
	Port           int           `yaml:"port" mapstructure:"port"`
	Database       string        `yaml:"database" mapstructure:"database"`
	Username       string        `yaml:"username" mapstructure:"username"`
	Password       string        `yaml:"password" mapstructure:"password"`           // may reference ${VAR}
	PasswordFile   string        `yaml:"password_file" mapstructure:"password_file"` // mounted secret, wins over password
	SSLMode        string        `yaml:"sslmode" mapstructure:"sslmode"`
	Path           string        `yaml:"path" mapstructure:"path"` // sqlite database file
	Schema         string        `yaml:"schema" mapstructure:"schema"`
	Table          string        `yaml:"table" mapstructure:"table"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
}

// QualifiedTable returns schema.table for postgres. MySQL and sqlite have
// no schema below the database, so only the table is returned for them.
func (d *DestinationSettings) QualifiedTable() string {
	if d.Driver != DriverPostgres || d.Schema == "" {
		return d.Table
	}
	return d.Schema + "." + d.Table
}

// LoadSettings tunes the load stage.
type LoadSettings struct {
	InsertProcess string        `yaml:"insert_process" mapstructure:"insert_process"` // provenance tag stamped on every row
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`               // 0 = no limit
	DryRun        bool          `yaml:"dry_run" mapstructure:"dry_run"`
}

// MetricsSettings controls run metric export.
type MetricsSettings struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	TextfilePath   string `yaml:"textfile_path" mapstructure:"textfile_path"`     // node-exporter textfile collector target
	PushgatewayURL string `yaml:"pushgateway_url" mapstructure:"pushgateway_url"` // Prometheus Pushgateway base URL
	Job            string `yaml:"job" mapstructure:"job"`
}

// TelemetrySettings controls Sentry error reporting.
type TelemetrySettings struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// Settings is the complete configuration of one run.
type Settings struct {
	Debug       bool                 `yaml:"debug" mapstructure:"debug"`
	Source      SourceSettings       `yaml:"source" mapstructure:"source"`
	Credentials CredentialSettings   `yaml:"credentials" mapstructure:"credentials"`
	Destination DestinationSettings  `yaml:"destination" mapstructure:"destination"`
	Load        LoadSettings         `yaml:"load" mapstructure:"load"`
	Logging     logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Metrics     MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
	Telemetry   TelemetrySettings    `yaml:"telemetry" mapstructure:"telemetry"`

	// ConfigFile is the file viper read, empty when none was found.
	ConfigFile string `yaml:"-" mapstructure:"-"`
	// Warnings are problems found while loading that do not stop the run.
	// They are logged once logging is up.
	Warnings []string `yaml:"-" mapstructure:"-"`
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	ConfigFile string         // explicit config file; search paths are used when empty
	EnvFile    string         // dotenv file loaded before the environment is read
	Flags      *pflag.FlagSet // bound flags override every other source
	Fs         afero.Fs       // filesystem for the credential file; OS filesystem when nil
}

// Load reads defaults, the config file, dotenv, environment and flags into
// Settings, resolves the password, merges the credential file and
// validates the result. Every failure is a configuration error.
func Load(v *viper.Viper, opts LoadOptions) (*Settings, error) {
	if v == nil {
		v = viper.New()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	if err := loadDotEnv(opts.Fs, opts.EnvFile); err != nil {
		return nil, errors.ConfigError(err).Context("env_file", opts.EnvFile).Build()
	}

	if err := initViper(v, opts); err != nil {
		return nil, errors.ConfigError(err).Build()
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.ConfigError(fmt.Errorf("error unmarshaling config into struct: %w", err)).Build()
	}
	settings.ConfigFile = v.ConfigFileUsed()

	// Asking for a textfile on the command line implies metrics are wanted.
	if opts.Flags != nil {
		if f := opts.Flags.Lookup("metrics-textfile"); f != nil && f.Changed {
			settings.Metrics.Enabled = true
		}
	}

	if err := settings.resolvePassword(opts.Fs); err != nil {
		return nil, err
	}
	if err := settings.mergeCredentials(opts.Fs); err != nil {
		return nil, err
	}
	settings.applyDestinationFallbacks()

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.ConfigError(err).Build()
	}

	return settings, nil
}

// initViper registers defaults, environment and flags and reads the config file.
func initViper(v *viper.Viper, opts LoadOptions) error {
	setDefaultConfig(v)
	bindEnv(v)

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return err
		}
	}

	v.SetConfigType("yaml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(configName)
		for _, path := range defaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Running from defaults and environment alone is allowed.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// defaultConfigPaths lists the directories searched for activity-loader.yaml.
func defaultConfigPaths() []string {
	paths := []string{".", "config"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", configName))
	}
	return paths
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"source":           "source.path",
	"credentials":      "credentials.file",
	"driver":           "destination.driver",
	"schema":           "destination.schema",
	"table":            "destination.table",
	"insert-process":   "load.insert_process",
	"timeout":          "load.timeout",
	"dry-run":          "load.dry_run",
	"debug":            "debug",
	"log-level":        "logging.console.level",
	"metrics-textfile": "metrics.textfile_path",
}

// bindFlags binds the flags present in fs to their config keys.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("error binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// applyDestinationFallbacks fills connection values that neither the
// config nor the credential file provided.
func (s *Settings) applyDestinationFallbacks() {
	d := &s.Destination
	d.Driver = strings.ToLower(strings.TrimSpace(d.Driver))

	switch d.Driver {
	case DriverPostgres:
		if d.Port == 0 {
			d.Port = 5432
		}
	case DriverMySQL:
		if d.Port == 0 {
			d.Port = 3306
		}
	}

	if s.Debug && s.Logging.Console != nil {
		s.Logging.Console.Level = string(logger.LogLevelDebug)
	}
}
