// env.go - environment variable and dotenv configuration
package conf

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// DefaultEnvFile is loaded when present and no other file was requested.
const DefaultEnvFile = ".env"

// bindEnv makes every key overridable as ACTIVITY_LOADER_<KEY>, with dots
// replaced by underscores, e.g. ACTIVITY_LOADER_DESTINATION_PASSWORD.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadDotEnv loads variables from a dotenv file into the process
// environment without overriding variables that are already set. An
// explicitly named file must exist; the default file is optional.
func loadDotEnv(fs afero.Fs, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	f, err := fs.Open(path)
	if err != nil {
		if !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("env file %s: %w", path, err)
	}

	for key, value := range values {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("env file %s: %w", path, err)
		}
	}
	return nil
}
