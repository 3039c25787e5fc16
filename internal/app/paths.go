package app

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/bnema/imagerelay/internal/config"
)

// ConfigureViper points v at an explicit config file, or at the usual search
// path for imagerelay.yaml when configPath is empty.
func ConfigureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.SetConfigName("imagerelay")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$XDG_CONFIG_HOME/imagerelay")
	v.AddConfigPath("$HOME/.config/imagerelay")
	v.AddConfigPath("/etc/imagerelay")
}

// LoadConfig reads the optional config file and returns the validated config.
// A missing config file is not an error; everything can come from the environment.
func LoadConfig(configPath string) (*config.Config, error) {
	v := viper.New()
	ConfigureViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return config.Load(v)
}
