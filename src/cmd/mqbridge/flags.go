package main

import (
	"flag"
	"fmt"
	"os"
)

// FlagConfig holds parsed command-line flags
type FlagConfig struct {
	ConfigFile  string
	ShowVersion bool
	Quiet       bool

	// Logging overrides
	LogOutput  string
	LogLevel   string
	LogFile    string
	LogDir     string
	LogConsole string
}

// ParseFlags parses and validates command-line flags
func ParseFlags() (*FlagConfig, error) {
	fc := &FlagConfig{}

	flag.StringVar(&fc.ConfigFile, "config", "", "Config file path")
	flag.BoolVar(&fc.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&fc.Quiet, "quiet", false, "Suppress all log output")

	flag.StringVar(&fc.LogOutput, "log-output", "", "Log output: file, stdout, stderr, both, none (overrides config)")
	flag.StringVar(&fc.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.StringVar(&fc.LogFile, "log-file", "", "Log file name (when using file output)")
	flag.StringVar(&fc.LogDir, "log-dir", "", "Log directory (when using file output)")
	flag.StringVar(&fc.LogConsole, "log-console", "", "Console target: stdout, stderr, split (overrides config)")

	flag.Usage = customUsage
	flag.Parse()

	if fc.LogOutput != "" {
		validOutputs := map[string]bool{
			"file": true, "stdout": true, "stderr": true,
			"both": true, "none": true,
		}
		if !validOutputs[fc.LogOutput] {
			return nil, fmt.Errorf("invalid log-output: %s (valid: file, stdout, stderr, both, none)", fc.LogOutput)
		}
	}

	if fc.LogLevel != "" {
		if _, err := parseLogLevel(fc.LogLevel); err != nil {
			return nil, fmt.Errorf("invalid log-level: %s (valid: debug, info, warn, error)", fc.LogLevel)
		}
	}

	if fc.LogConsole != "" {
		validTargets := map[string]bool{
			"stdout": true, "stderr": true, "split": true,
		}
		if !validTargets[fc.LogConsole] {
			return nil, fmt.Errorf("invalid log-console: %s (valid: stdout, stderr, split)", fc.LogConsole)
		}
	}

	return fc, nil
}

func customUsage() {
	fmt.Fprintf(os.Stderr, "mqbridge - MQTT Telemetry Bridge\n\n")
	fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Options:\n")

	fmt.Fprintf(os.Stderr, "\nGeneral:\n")
	fmt.Fprintf(os.Stderr, "  -config string\n\tConfig file path\n")
	fmt.Fprintf(os.Stderr, "  -version\n\tShow version information\n")
	fmt.Fprintf(os.Stderr, "  -quiet\n\tSuppress all log output\n")

	fmt.Fprintf(os.Stderr, "\nLogging:\n")
	fmt.Fprintf(os.Stderr, "  -log-output string\n\tLog output: file, stdout, stderr, both, none (overrides config)\n")
	fmt.Fprintf(os.Stderr, "  -log-level string\n\tLog level: debug, info, warn, error (overrides config)\n")
	fmt.Fprintf(os.Stderr, "  -log-file string\n\tLog file name (when using file output)\n")
	fmt.Fprintf(os.Stderr, "  -log-dir string\n\tLog directory (when using file output)\n")
	fmt.Fprintf(os.Stderr, "  -log-console string\n\tConsole target: stdout, stderr, split (overrides config)\n")

	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  # Run with default config (logs to stderr)\n")
	fmt.Fprintf(os.Stderr, "  %s\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "  # Run with custom config and override log level\n")
	fmt.Fprintf(os.Stderr, "  %s --config /etc/mqbridge.toml --log-level debug\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "  # Run with file logging\n")
	fmt.Fprintf(os.Stderr, "  %s --log-output file --log-dir /var/log/mqbridge\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "Environment Variables:\n")
	fmt.Fprintf(os.Stderr, "  MQBRIDGE_CONFIG_FILE  Config file path\n")
	fmt.Fprintf(os.Stderr, "  MQBRIDGE_CONFIG_DIR   Config directory\n")
	fmt.Fprintf(os.Stderr, "  MQBRIDGE_*            Override any config key, e.g. MQBRIDGE_SINK_URL\n")
}
