package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

func (c *Config) validate() error {
	if err := validateBus(&c.Bus); err != nil {
		return err
	}
	if err := validateSink(&c.Sink); err != nil {
		return err
	}
	if err := validateLimit(&c.Limit); err != nil {
		return err
	}
	for i := range c.Filters {
		if err := validateFilter(i, &c.Filters[i]); err != nil {
			return err
		}
	}
	if err := validateStatus(&c.Status); err != nil {
		return err
	}
	return validateLogConfig(&c.Logging)
}

func validateBus(cfg *BusConfig) error {
	switch cfg.Protocol {
	case "tcp", "ssl", "ws", "wss":
	default:
		return fmt.Errorf("bus: invalid protocol '%s' (must be tcp, ssl, ws or wss)", cfg.Protocol)
	}
	if cfg.Host == "" {
		return fmt.Errorf("bus: host is required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("bus: invalid port %d", cfg.Port)
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("bus: client_id is required")
	}
	if len(cfg.Topics) == 0 {
		return fmt.Errorf("bus: at least one topic is required")
	}
	for i, topic := range cfg.Topics {
		if strings.TrimSpace(topic) == "" {
			return fmt.Errorf("bus: topic[%d] is empty", i)
		}
	}
	if cfg.QoS < 0 || cfg.QoS > 2 {
		return fmt.Errorf("bus: invalid qos %d (must be 0, 1 or 2)", cfg.QoS)
	}
	if cfg.ReconnectPeriodS < 1 {
		return fmt.Errorf("bus: reconnect_period_s must be positive")
	}
	if cfg.ConnectTimeoutS < 1 {
		return fmt.Errorf("bus: connect_timeout_s must be positive")
	}
	if cfg.BufferSize < 1 {
		return fmt.Errorf("bus: buffer_size must be positive")
	}
	return nil
}

func validateSink(cfg *SinkConfig) error {
	if cfg.URL == "" {
		return fmt.Errorf("sink: url is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return fmt.Errorf("sink: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("sink: url scheme must be http or https, got '%s'", u.Scheme)
	}
	if cfg.BearerToken != "" && (cfg.Username != "" || cfg.Password != "") {
		return fmt.Errorf("sink: bearer_token and basic auth credentials are mutually exclusive")
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("sink: batch_size must be positive")
	}
	if cfg.FlushIntervalMS < 1 {
		return fmt.Errorf("sink: flush_interval_ms must be positive")
	}
	if cfg.TimeoutS < 1 {
		return fmt.Errorf("sink: timeout_s must be positive")
	}
	return nil
}

func validateLimit(cfg *LimitConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.EntriesPerSecond <= 0 {
		return fmt.Errorf("limit: entries_per_second must be positive")
	}
	if cfg.Burst < 1 {
		return fmt.Errorf("limit: burst must be positive")
	}
	return nil
}

func validateFilter(filterIndex int, cfg *FilterConfig) error {
	switch cfg.Type {
	case FilterTypeInclude, FilterTypeExclude, "":
	default:
		return fmt.Errorf("filter[%d]: invalid type '%s' (must be 'include' or 'exclude')",
			filterIndex, cfg.Type)
	}

	switch cfg.Logic {
	case FilterLogicOr, FilterLogicAnd, "":
	default:
		return fmt.Errorf("filter[%d]: invalid logic '%s' (must be 'or' or 'and')",
			filterIndex, cfg.Logic)
	}

	for i, pattern := range cfg.Patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("filter[%d] pattern[%d] '%s': invalid regex: %w",
				filterIndex, i, pattern, err)
		}
	}

	return nil
}

func validateStatus(cfg *StatusConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("status: invalid port %d", cfg.Port)
	}
	if cfg.Auth == nil {
		return nil
	}
	switch cfg.Auth.Type {
	case "", "none":
	case "basic":
		if cfg.Auth.BasicAuth == nil || len(cfg.Auth.BasicAuth.Users) == 0 {
			return fmt.Errorf("status: basic auth requires at least one user")
		}
		for i, user := range cfg.Auth.BasicAuth.Users {
			if user.Username == "" || user.PasswordHash == "" {
				return fmt.Errorf("status: basic auth user[%d] needs username and password_hash", i)
			}
		}
	case "bearer":
		if cfg.Auth.BearerAuth == nil ||
			(len(cfg.Auth.BearerAuth.Tokens) == 0 && cfg.Auth.BearerAuth.JWTSigningKey == "") {
			return fmt.Errorf("status: bearer auth requires tokens or a jwt signing key")
		}
	default:
		return fmt.Errorf("status: invalid auth type '%s'", cfg.Auth.Type)
	}
	return nil
}
