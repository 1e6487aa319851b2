// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/activity-loader/internal/logger"
)

// setDefaultConfig registers a default for every key so that environment
// variables are seen by Unmarshal even when the config file omits the key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("source.path", "data/activity_tracker.xlsx")
	v.SetDefault("source.column_range", "A:D")

	v.SetDefault("credentials.file", "config/postgresql.ini")

	v.SetDefault("destination.driver", DriverPostgres)
	v.SetDefault("destination.host", "")
	v.SetDefault("destination.port", 0)
	v.SetDefault("destination.database", "")
	v.SetDefault("destination.username", "")
	v.SetDefault("destination.password", "")
	v.SetDefault("destination.password_file", "")
	v.SetDefault("destination.sslmode", "prefer")
	v.SetDefault("destination.path", "")
	v.SetDefault("destination.schema", "public")
	v.SetDefault("destination.table", "activity")
	v.SetDefault("destination.connect_timeout", 10*time.Second)

	v.SetDefault("load.insert_process", "activity-loader")
	v.SetDefault("load.timeout", time.Duration(0))
	v.SetDefault("load.dry_run", false)

	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.dir", logger.DefaultLogDir)
	v.SetDefault("logging.file_output.prefix", logger.DefaultLogPrefix)
	v.SetDefault("logging.file_output.timestamped", logger.DefaultTimestamped)
	v.SetDefault("logging.file_output.max_size", logger.DefaultMaxSize)
	v.SetDefault("logging.file_output.max_age", logger.DefaultMaxAge)
	v.SetDefault("logging.file_output.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("logging.file_output.compress", false)
	v.SetDefault("logging.file_output.level", logger.DefaultFileLogLevel)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile_path", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "activity_loader")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
	v.SetDefault("telemetry.environment", "production")
}
