package config

// Config is the top-level mqbridge configuration.
type Config struct {
	Bus     BusConfig      `toml:"bus"`
	Sink    SinkConfig     `toml:"sink"`
	Limit   LimitConfig    `toml:"limit"`
	Filters []FilterConfig `toml:"filters"`
	Status  StatusConfig   `toml:"status"`
	Logging LogConfig      `toml:"logging"`
}

// BusConfig describes the MQTT broker connection and subscriptions.
type BusConfig struct {
	// Protocol: "tcp", "ssl", "ws", "wss"
	Protocol string `toml:"protocol"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`

	Username string `toml:"username"`
	Password string `toml:"password"`

	// ClientID is suffixed with a random identifier so multiple
	// bridges can share a configuration
	ClientID string `toml:"client_id"`

	Topics []string `toml:"topics"`
	QoS    int      `toml:"qos"`

	ReconnectPeriodS int `toml:"reconnect_period_s"`
	ConnectTimeoutS  int `toml:"connect_timeout_s"`

	// BufferSize is the capacity of the inbound message channel
	BufferSize int `toml:"buffer_size"`
}

// SinkConfig describes the remote log-aggregation endpoint.
type SinkConfig struct {
	URL string `toml:"url"`

	// Basic auth credentials, mutually exclusive with BearerToken
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	BearerToken string `toml:"bearer_token"`

	// TenantID is sent as X-Scope-OrgID when set
	TenantID string `toml:"tenant_id"`

	BatchSize       int `toml:"batch_size"`
	FlushIntervalMS int `toml:"flush_interval_ms"`
	TimeoutS        int `toml:"timeout_s"`

	InsecureSkipVerify bool `toml:"insecure_skip_verify"`
}

// LimitConfig describes ingestion-side rate limiting.
type LimitConfig struct {
	Enabled          bool    `toml:"enabled"`
	EntriesPerSecond float64 `toml:"entries_per_second"`
	Burst            int     `toml:"burst"`
}

// Filter type constants
const (
	FilterTypeInclude = "include"
	FilterTypeExclude = "exclude"
)

// Filter logic constants
const (
	FilterLogicOr  = "or"
	FilterLogicAnd = "and"
)

// FilterConfig describes one regex filter applied to normalized entries.
type FilterConfig struct {
	// Type: "include" or "exclude"
	Type string `toml:"type"`

	// Logic: "or" or "and"
	Logic string `toml:"logic"`

	Patterns []string `toml:"patterns"`
}

// StatusConfig describes the read-only status HTTP server.
type StatusConfig struct {
	Enabled bool        `toml:"enabled"`
	Port    int         `toml:"port"`
	Auth    *AuthConfig `toml:"auth"`
}
