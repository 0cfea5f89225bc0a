package main

import (
	"context"
	"fmt"
	"strings"

	"mqbridge/src/internal/config"
	"mqbridge/src/internal/service"
	"mqbridge/src/internal/version"

	"github.com/lixenwraith/log"
)

// bootstrapService creates the bridge and the optional status server
func bootstrapService(ctx context.Context, cfg *config.Config) (*service.Bridge, *service.StatusServer, error) {
	bridge, err := service.NewBridge(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bridge: %w", err)
	}

	if err := bridge.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start bridge: %w", err)
	}

	var status *service.StatusServer
	if cfg.Status.Enabled {
		status, err = service.NewStatusServer(&cfg.Status, bridge, logger)
		if err != nil {
			bridge.Shutdown()
			return nil, nil, fmt.Errorf("failed to create status server: %w", err)
		}
		if err := status.Start(); err != nil {
			bridge.Shutdown()
			return nil, nil, fmt.Errorf("failed to start status server: %w", err)
		}
	}

	logger.Info("msg", "mqbridge started",
		"version", version.Short(),
		"broker", fmt.Sprintf("%s:%d", cfg.Bus.Host, cfg.Bus.Port),
		"sink", cfg.Sink.URL)

	return bridge, status, nil
}

// initializeLogger sets up the logger based on configuration and CLI overrides
func initializeLogger(cfg *config.Config, flagCfg *FlagConfig) error {
	logger = log.NewLogger()

	if flagCfg.Quiet {
		// In quiet mode, disable ALL logging output
		return logger.ApplyConfigString(
			"disable_file=true",
			"enable_console=false",
			"level=255")
	}

	applyLoggingOverrides(cfg, flagCfg)

	var configArgs []string

	levelValue, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	switch cfg.Logging.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_console=false")

	case "stdout":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_console=true",
			"console_target=stdout")

	case "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_console=true",
			"console_target=stderr")

	case "file":
		configArgs = append(configArgs, "enable_console=false")
		configureFileLogging(&configArgs, cfg)

	case "both":
		configArgs = append(configArgs, "enable_console=true")
		configureFileLogging(&configArgs, cfg)
		configureConsoleTarget(&configArgs, cfg)

	default:
		return fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	if cfg.Logging.Console != nil && cfg.Logging.Console.Format != "" {
		configArgs = append(configArgs, fmt.Sprintf("format=%s", cfg.Logging.Console.Format))
	}

	return logger.ApplyConfigString(configArgs...)
}

// applyLoggingOverrides folds CLI logging flags into the loaded config
func applyLoggingOverrides(cfg *config.Config, flagCfg *FlagConfig) {
	if flagCfg.LogOutput != "" {
		cfg.Logging.Output = flagCfg.LogOutput
	}
	if flagCfg.LogLevel != "" {
		cfg.Logging.Level = flagCfg.LogLevel
	}
	if flagCfg.LogFile != "" {
		if cfg.Logging.File == nil {
			cfg.Logging.File = &config.LogFileConfig{}
		}
		cfg.Logging.File.Name = flagCfg.LogFile
	}
	if flagCfg.LogDir != "" {
		if cfg.Logging.File == nil {
			cfg.Logging.File = &config.LogFileConfig{}
		}
		cfg.Logging.File.Directory = flagCfg.LogDir
	}
	if flagCfg.LogConsole != "" {
		if cfg.Logging.Console == nil {
			cfg.Logging.Console = &config.LogConsoleConfig{}
		}
		cfg.Logging.Console.Target = flagCfg.LogConsole
	}
}

// configureFileLogging sets up file-based logging parameters
func configureFileLogging(configArgs *[]string, cfg *config.Config) {
	if cfg.Logging.File != nil {
		*configArgs = append(*configArgs,
			fmt.Sprintf("directory=%s", cfg.Logging.File.Directory),
			fmt.Sprintf("name=%s", cfg.Logging.File.Name),
			fmt.Sprintf("max_size_mb=%d", cfg.Logging.File.MaxSizeMB),
			fmt.Sprintf("max_total_size_mb=%d", cfg.Logging.File.MaxTotalSizeMB))

		if cfg.Logging.File.RetentionHours > 0 {
			*configArgs = append(*configArgs,
				fmt.Sprintf("retention_period_hrs=%.1f", cfg.Logging.File.RetentionHours))
		}
	}
}

// configureConsoleTarget sets up console output parameters
func configureConsoleTarget(configArgs *[]string, cfg *config.Config) {
	target := "stderr" // default

	if cfg.Logging.Console != nil && cfg.Logging.Console.Target != "" {
		target = cfg.Logging.Console.Target
	}

	// Split mode routes info/debug to stdout and warn/error to stderr;
	// console_target=split selects it directly.
	*configArgs = append(*configArgs, fmt.Sprintf("console_target=%s", target))
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
