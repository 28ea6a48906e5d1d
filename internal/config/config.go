package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "STORAGE_MARKET_CONFIG"

type Config struct {
	// Net selects between the two fixed network endpoints: "main" or
	// "test". Defaults to "main".
	Net string `yaml:"net"`
	// Seeds is the signing seed phrase. Leave empty for the unsigned
	// variant.
	Seeds string `yaml:"seeds"`
	// Endpoint overrides the endpoint selected by Net.
	Endpoint string `yaml:"endpoint"`
	// IdleTimeoutSeconds is the idle-disconnect delay. 0 keeps the
	// default, a negative value disables the idle timer.
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`
	// SubmissionTimeoutSeconds bounds one submission end to end. 0 keeps
	// the default.
	SubmissionTimeoutSeconds int `yaml:"submission_timeout_seconds"`
}

var loadedConfig *Config

func GetConfigPath() (string, error) {
	path := os.Getenv(configPathEnv)
	if path == "" {
		return "", fmt.Errorf("%s is not set", configPathEnv)
	}
	return path, nil
}

func LoadConfig(path string) error {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %v", path, err)
	}

	var config Config
	err = yaml.Unmarshal(bytes, &config)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file %s: %v", path, err)
	}

	loadedConfig = &config
	return nil
}

func GetConfig() (*Config, error) {
	if loadedConfig == nil {
		return nil, fmt.Errorf("config has not been loaded")
	}
	return loadedConfig, nil
}
