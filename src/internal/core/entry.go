package core

import "time"

// Severity of a normalized telemetry entry.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// String returns the lowercase severity word used in labels.
func (s Severity) String() string {
	return string(s)
}

// Entry represents a single normalized device message flowing through the bridge.
// An Entry is never buffered without Message, DeviceID and Severity populated.
type Entry struct {
	Time     time.Time         `json:"time"`
	DeviceID string            `json:"device_id"`
	Severity Severity          `json:"severity"`
	Message  string            `json:"message"`
	Labels   map[string]string `json:"labels,omitempty"`
}

// Label keys always present on a buffered entry.
const (
	LabelSeverity = "severity"
	LabelDeviceID = "device_id"
	LabelMetadata = "metadata"
	LabelSource   = "source"
)
