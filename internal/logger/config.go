package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Timezone     string            `yaml:"timezone" mapstructure:"timezone"`           // "Local", "UTC", or IANA timezone name like "Europe/Helsinki"
	DefaultLevel string            `yaml:"default_level" mapstructure:"default_level"` // default log level for all modules
	Console      *ConsoleOutput    `yaml:"console" mapstructure:"console"`             // console output configuration
	FileOutput   *FileOutput       `yaml:"file_output" mapstructure:"file_output"`     // file output configuration
	ModuleLevels map[string]string `yaml:"module_levels" mapstructure:"module_levels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" mapstructure:"level"`
}

// FileOutput represents file logging configuration.
//
// With Timestamped set, every run writes to its own file named
// <Dir>/<Prefix>_<YYYYMMDD_HHMMSS>.log; otherwise all runs append to
// <Dir>/<Prefix>.log and lumberjack rotates it by size.
type FileOutput struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	Prefix      string `yaml:"prefix" mapstructure:"prefix"`
	Timestamped bool   `yaml:"timestamped" mapstructure:"timestamped"`
	MaxSize     int    `yaml:"max_size" mapstructure:"max_size"`       // maximum size in MB before rotation
	MaxAge      int    `yaml:"max_age" mapstructure:"max_age"`         // maximum age in days to keep rotated logs (0 = no limit)
	MaxBackups  int    `yaml:"max_backups" mapstructure:"max_backups"` // maximum number of rotated files to keep (0 = no limit)
	Compress    bool   `yaml:"compress" mapstructure:"compress"`       // compress rotated logs with gzip
	Level       string `yaml:"level" mapstructure:"level"`
}

// Default values for logging configuration.
// These match the defaults in conf/defaults.go.
const (
	DefaultLogLevel       = "info"
	DefaultFileLogLevel   = "debug"
	DefaultLogDir         = "logs"
	DefaultLogPrefix      = "activity_etl"
	DefaultMaxSize        = 100 // MB before rotation
	DefaultMaxAge         = 30  // days to keep rotated files
	DefaultMaxBackups     = 10
	DefaultConsoleEnabled = true
	DefaultFileEnabled    = true
	DefaultTimestamped    = true
)

// applyConfigDefaults fills nil sections so that a config without explicit
// console or file_output sections still logs to both.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}

	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: DefaultConsoleEnabled,
			Level:   DefaultLogLevel,
		}
	}

	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{
			Enabled:     DefaultFileEnabled,
			Dir:         DefaultLogDir,
			Prefix:      DefaultLogPrefix,
			Timestamped: DefaultTimestamped,
			MaxSize:     DefaultMaxSize,
			MaxAge:      DefaultMaxAge,
			MaxBackups:  DefaultMaxBackups,
			Level:       DefaultFileLogLevel,
		}
	}

	if cfg.FileOutput.Dir == "" {
		cfg.FileOutput.Dir = DefaultLogDir
	}
	if cfg.FileOutput.Prefix == "" {
		cfg.FileOutput.Prefix = DefaultLogPrefix
	}
	if cfg.FileOutput.MaxSize <= 0 {
		cfg.FileOutput.MaxSize = DefaultMaxSize
	}
}
