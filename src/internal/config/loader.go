package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

func defaults() *Config {
	return &Config{
		Bus: BusConfig{
			Protocol:         "tcp",
			Host:             "localhost",
			Port:             1883,
			ClientID:         "mqbridge",
			Topics:           []string{"#"},
			QoS:              1,
			ReconnectPeriodS: 5,
			ConnectTimeoutS:  10,
			BufferSize:       1000,
		},
		Sink: SinkConfig{
			URL:             "http://localhost:3100/loki/api/v1/push",
			BatchSize:       100,
			FlushIntervalMS: 5000,
			TimeoutS:        10,
		},
		Limit: LimitConfig{
			Enabled:          false,
			EntriesPerSecond: 1000,
			Burst:            2000,
		},
		Status: StatusConfig{
			Enabled: true,
			Port:    8080,
		},
		Logging: DefaultLogConfig(),
	}
}

// Load builds the configuration from defaults, config file, environment
// and CLI arguments, in increasing order of precedence.
func Load(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix("MQBRIDGE_").
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, finalConfig.validate()
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = "MQBRIDGE_" + env
	return env
}

// GetConfigPath resolves the config file location from environment
// variables, falling back to the user config directory.
func GetConfigPath() string {
	if configFile := os.Getenv("MQBRIDGE_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("MQBRIDGE_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("MQBRIDGE_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "mqbridge.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "mqbridge.toml")
	}

	return "mqbridge.toml"
}
