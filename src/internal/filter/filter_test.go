package filter

import (
	"testing"

	"mqbridge/src/internal/config"
	"mqbridge/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestNewFilter(t *testing.T) {
	logger := newTestLogger()

	t.Run("SuccessWithDefaults", func(t *testing.T) {
		cfg := config.FilterConfig{Patterns: []string{"test"}}
		f, err := NewFilter(cfg, logger)
		assert.NoError(t, err)
		assert.NotNil(t, f)
		assert.Equal(t, config.FilterTypeInclude, f.config.Type)
		assert.Equal(t, config.FilterLogicOr, f.config.Logic)
	})

	t.Run("ErrorInvalidRegex", func(t *testing.T) {
		cfg := config.FilterConfig{Patterns: []string{"["}}
		f, err := NewFilter(cfg, logger)
		assert.Error(t, err)
		assert.Nil(t, f)
		assert.Contains(t, err.Error(), "invalid regex pattern")
	})
}

func TestFilter_Apply(t *testing.T) {
	logger := newTestLogger()

	testCases := []struct {
		name     string
		cfg      config.FilterConfig
		entry    core.Entry
		expected bool
	}{
		{
			name:     "IncludeOR_MatchOne",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicOr, Patterns: []string{"pump", "valve"}},
			entry:    core.Entry{Message: "pump pressure nominal"},
			expected: true,
		},
		{
			name:     "IncludeOR_NoMatch",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicOr, Patterns: []string{"pump", "valve"}},
			entry:    core.Entry{Message: "fan speed nominal"},
			expected: false,
		},
		{
			name:     "IncludeAND_MatchAll",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicAnd, Patterns: []string{"pump", "pressure"}},
			entry:    core.Entry{Message: "pump pressure nominal"},
			expected: true,
		},
		{
			name:     "IncludeAND_MatchSome",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicAnd, Patterns: []string{"pump", "valve"}},
			entry:    core.Entry{Message: "pump pressure nominal"},
			expected: false,
		},
		{
			name:     "Exclude_Match",
			cfg:      config.FilterConfig{Type: config.FilterTypeExclude, Patterns: []string{"heartbeat"}},
			entry:    core.Entry{Message: "heartbeat ok"},
			expected: false,
		},
		{
			name:     "Exclude_NoMatch",
			cfg:      config.FilterConfig{Type: config.FilterTypeExclude, Patterns: []string{"heartbeat"}},
			entry:    core.Entry{Message: "pump pressure nominal"},
			expected: true,
		},
		{
			name:     "MatchesDeviceID",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Patterns: []string{"dev42"}},
			entry:    core.Entry{DeviceID: "dev42", Message: "ok"},
			expected: true,
		},
		{
			name:     "MatchesSeverity",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Patterns: []string{"^critical"}},
			entry:    core.Entry{Severity: core.SeverityCritical, Message: "meltdown"},
			expected: true,
		},
		{
			name:     "NoPatternsPassesEverything",
			cfg:      config.FilterConfig{},
			entry:    core.Entry{Message: "anything"},
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFilter(tc.cfg, logger)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, f.Apply(tc.entry))
		})
	}
}

func TestChain_Apply(t *testing.T) {
	logger := newTestLogger()
	entry := core.Entry{DeviceID: "dev42", Message: "pump pressure nominal"}

	t.Run("EmptyChain", func(t *testing.T) {
		chain, err := NewChain(nil, logger)
		assert.NoError(t, err)
		assert.True(t, chain.Apply(entry))
	})

	t.Run("AllFiltersPass", func(t *testing.T) {
		configs := []config.FilterConfig{
			{Type: config.FilterTypeInclude, Patterns: []string{"pump"}},
			{Type: config.FilterTypeExclude, Patterns: []string{"heartbeat"}},
		}
		chain, err := NewChain(configs, logger)
		assert.NoError(t, err)
		assert.True(t, chain.Apply(entry))
	})

	t.Run("OneFilterFails", func(t *testing.T) {
		configs := []config.FilterConfig{
			{Type: config.FilterTypeInclude, Patterns: []string{"pump"}},
			{Type: config.FilterTypeExclude, Patterns: []string{"pressure"}},
		}
		chain, err := NewChain(configs, logger)
		assert.NoError(t, err)
		assert.False(t, chain.Apply(entry))
	})

	t.Run("ErrorInvalidRegexInChain", func(t *testing.T) {
		configs := []config.FilterConfig{
			{Patterns: []string{"pump"}},
			{Patterns: []string{"["}},
		}
		chain, err := NewChain(configs, logger)
		assert.Error(t, err)
		assert.Nil(t, chain)
		assert.Contains(t, err.Error(), "filter[1]")
	})
}
