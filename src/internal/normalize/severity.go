package normalize

import (
	"strings"

	"mqbridge/src/internal/core"
)

// severityAliases maps explicit severity spellings to canonical levels,
// checked case-insensitively.
var severityAliases = map[string]core.Severity{
	"debug":       core.SeverityDebug,
	"info":        core.SeverityInfo,
	"information": core.SeverityInfo,
	"warn":        core.SeverityWarning,
	"warning":     core.SeverityWarning,
	"error":       core.SeverityError,
	"err":         core.SeverityError,
	"critical":    core.SeverityCritical,
	"crit":        core.SeverityCritical,
	"fatal":       core.SeverityCritical,
}

// parseSeverity resolves an explicit severity string through the alias
// table. Returns false for unrecognized spellings.
func parseSeverity(s string) (core.Severity, bool) {
	sev, ok := severityAliases[strings.ToLower(strings.TrimSpace(s))]
	return sev, ok
}

// Classify assigns a severity, first match wins:
//  1. explicit severity field through the alias table
//  2. topic substring hints
//  3. a "level" field inside structured content, same alias table
//  4. keyword scan over the serialized content
//  5. default info
//
// The ordering is a compatibility contract: a message on an /error topic
// with no recognized explicit severity classifies as error even when its
// text only incidentally contains "warn".
func Classify(explicit, topic, content string, fields map[string]any) core.Severity {
	if sev, ok := parseSeverity(explicit); ok {
		return sev
	}

	lowTopic := strings.ToLower(topic)
	switch {
	case strings.Contains(lowTopic, "/error"), strings.Contains(lowTopic, "/alert"):
		return core.SeverityError
	case strings.Contains(lowTopic, "/warning"), strings.Contains(lowTopic, "/warn"):
		return core.SeverityWarning
	case strings.Contains(lowTopic, "/debug"):
		return core.SeverityDebug
	}

	if fields != nil {
		if level, ok := fields["level"].(string); ok {
			if sev, ok := parseSeverity(level); ok {
				return sev
			}
		}
	}

	lowContent := strings.ToLower(content)
	switch {
	case strings.Contains(lowContent, "error"),
		strings.Contains(lowContent, "exception"),
		strings.Contains(lowContent, "fail"):
		return core.SeverityError
	case strings.Contains(lowContent, "warn"):
		return core.SeverityWarning
	}

	return core.SeverityInfo
}
