package main

import (
	"testing"

	"mqbridge/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
		valid    bool
	}{
		{"debug", int(log.LevelDebug), true},
		{"INFO", int(log.LevelInfo), true},
		{"warn", int(log.LevelWarn), true},
		{"warning", int(log.LevelWarn), true},
		{"error", int(log.LevelError), true},
		{"verbose", 0, false},
		{"", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			level, err := parseLogLevel(tc.input)
			if !tc.valid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, level)
		})
	}
}

func TestInitializeLogger(t *testing.T) {
	t.Run("QuietMode", func(t *testing.T) {
		cfg := &config.Config{Logging: config.DefaultLogConfig()}
		require.NoError(t, initializeLogger(cfg, &FlagConfig{Quiet: true}))
		require.NotNil(t, logger)
	})

	t.Run("NoneOutput", func(t *testing.T) {
		cfg := &config.Config{Logging: config.DefaultLogConfig()}
		cfg.Logging.Output = "none"
		require.NoError(t, initializeLogger(cfg, &FlagConfig{}))
	})

	t.Run("StdoutOverrideFromFlag", func(t *testing.T) {
		cfg := &config.Config{Logging: config.DefaultLogConfig()}
		require.NoError(t, initializeLogger(cfg, &FlagConfig{LogOutput: "stdout", LogLevel: "debug"}))
		assert.Equal(t, "stdout", cfg.Logging.Output)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("InvalidOutputMode", func(t *testing.T) {
		cfg := &config.Config{Logging: config.DefaultLogConfig()}
		cfg.Logging.Output = "syslog"
		err := initializeLogger(cfg, &FlagConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log output mode")
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		cfg := &config.Config{Logging: config.DefaultLogConfig()}
		cfg.Logging.Level = "loud"
		err := initializeLogger(cfg, &FlagConfig{})
		require.Error(t, err)
	})
}

func TestApplyLoggingOverrides(t *testing.T) {
	cfg := &config.Config{Logging: config.LogConfig{Output: "stderr", Level: "info"}}
	flagCfg := &FlagConfig{
		LogOutput:  "file",
		LogLevel:   "warn",
		LogFile:    "bridge",
		LogDir:     "/var/log/mqbridge",
		LogConsole: "split",
	}

	applyLoggingOverrides(cfg, flagCfg)

	assert.Equal(t, "file", cfg.Logging.Output)
	assert.Equal(t, "warn", cfg.Logging.Level)
	require.NotNil(t, cfg.Logging.File)
	assert.Equal(t, "bridge", cfg.Logging.File.Name)
	assert.Equal(t, "/var/log/mqbridge", cfg.Logging.File.Directory)
	require.NotNil(t, cfg.Logging.Console)
	assert.Equal(t, "split", cfg.Logging.Console.Target)
}
