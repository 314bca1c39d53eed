package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	DBPath    string `mapstructure:"db_path"`
	Addr      string `mapstructure:"addr"`
	LogPath   string `mapstructure:"log_path"`
	AdminName string `mapstructure:"admin_name"`
}

// Load reads configuration from an optional YAML file and NUMIZMAT_*
// environment variables, falling back to defaults. An explicit path that
// cannot be read is an error; a missing default config file is not.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("db_path", "numizmat.sqlite3")
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_path", "")
	v.SetDefault("admin_name", "Admin")

	v.SetEnvPrefix("NUMIZMAT")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("numizmat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/numizmat")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}
