// Package app holds what every command needs for one invocation: build
// metadata, where to find configuration and the process streams.
package app

import (
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tphakala/activity-loader/internal/buildinfo"
	"github.com/tphakala/activity-loader/internal/conf"
	"github.com/tphakala/activity-loader/internal/logger"
)

// Context is shared by the commands of one invocation.
type Context struct {
	Build *buildinfo.Context

	// ConfigFile and EnvFile are filled from --config and --env-file. An
	// empty EnvFile loads .env when it exists.
	ConfigFile string
	EnvFile    string

	Fs     afero.Fs
	Stdout io.Writer
	Stderr io.Writer
}

// NewContext creates a context writing to the process streams.
func NewContext(build *buildinfo.Context) *Context {
	return &Context{
		Build:  build,
		Fs:     afero.NewOsFs(),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// LoadSettings resolves the settings with flags taking precedence over
// every other source.
func (c *Context) LoadSettings(flags *pflag.FlagSet) (*conf.Settings, error) {
	return conf.Load(viper.New(), conf.LoadOptions{
		ConfigFile: c.ConfigFile,
		EnvFile:    c.EnvFile,
		Flags:      flags,
		Fs:         c.Fs,
	})
}

// StartLogging builds the run logger from settings. The caller closes the
// returned CentralLogger.
func (c *Context) StartLogging(settings *conf.Settings) (*logger.CentralLogger, error) {
	return logger.NewCentralLoggerWithConsole(&settings.Logging, c.Stdout)
}
