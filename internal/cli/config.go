package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/roach88/pairsort/internal/items"
)

// DefaultDatabase is the SQLite file used when no store is configured.
const DefaultDatabase = ".pairsort.db"

// configName is searched for in the working directory (.pairsort.yaml,
// .pairsort.toml, .pairsort.json, ...).
const configName = ".pairsort"

// envPrefix namespaces environment overrides: PAIRSORT_DB, PAIRSORT_STATE_DIR, ...
const envPrefix = "PAIRSORT"

// Config holds settings that can come from a config file or the environment.
// Command-line flags override both.
type Config struct {
	Database       string   `mapstructure:"db"`
	StateDir       string   `mapstructure:"state_dir"`
	Extensions     []string `mapstructure:"extensions"`
	IncludeSubdirs bool     `mapstructure:"include_subdirs"`
}

// LoadConfig reads configuration with viper.
//
// Precedence (highest first): environment, config file, defaults.
// If path is empty, a .pairsort.* file in workDir is used when present;
// a missing default file is not an error. An explicit path must exist.
func LoadConfig(fsys afero.Fs, workDir, path string) (Config, error) {
	v := viper.New()
	v.SetFs(fsys)

	v.SetDefault("db", DefaultDatabase)
	v.SetDefault("state_dir", "")
	v.SetDefault("extensions", items.ImageExtensions)
	v.SetDefault("include_subdirs", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(workDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
