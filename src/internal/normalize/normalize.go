package normalize

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"mqbridge/src/internal/core"

	"github.com/lixenwraith/log"
)

// Normalizer converts raw (topic, payload) pairs into structured entries.
// Normalization is total: any payload produces a usable Entry.
type Normalizer struct {
	source string
	logger *log.Logger

	// Statistics
	totalStructured atomic.Uint64
	totalPlain      atomic.Uint64
}

// New creates a normalizer. The source tag, when non-empty, is attached
// to every entry's label set.
func New(source string, logger *log.Logger) *Normalizer {
	return &Normalizer{
		source: source,
		logger: logger,
	}
}

// Payload fields consumed during normalization; everything else is
// carried in the metadata label.
const (
	fieldDeviceID  = "device_id"
	fieldMessage   = "message"
	fieldSeverity  = "severity"
	fieldTimestamp = "timestamp"
)

// Normalize converts a bus message into an Entry. Structured payloads are
// decoded as generic key-value records; anything else is treated as plain
// text with the raw payload as the message verbatim.
func (n *Normalizer) Normalize(topic string, payload []byte) core.Entry {
	now := time.Now()

	fields, structured := decodePayload(payload)
	if !structured {
		n.totalPlain.Add(1)
		message := string(payload)
		entry := core.Entry{
			Time:     now,
			DeviceID: DeviceIDFromTopic(topic),
			Severity: Classify("", topic, message, nil),
			Message:  message,
		}
		entry.Labels = n.buildLabels(entry, "")
		return entry
	}

	n.totalStructured.Add(1)

	serialized, err := json.Marshal(fields)
	if err != nil {
		// Cannot happen for a decoded map, degrade to the raw payload
		serialized = payload
	}

	deviceID := stringField(fields, fieldDeviceID)
	if deviceID == "" {
		deviceID = DeviceIDFromTopic(topic)
	}

	message := stringField(fields, fieldMessage)
	if message == "" {
		message = string(serialized)
	}

	entry := core.Entry{
		Time:     parseTimestamp(fields, now),
		DeviceID: deviceID,
		Severity: Classify(stringField(fields, fieldSeverity), topic, string(serialized), fields),
		Message:  message,
	}
	entry.Labels = n.buildLabels(entry, metadataFor(fields))
	return entry
}

// GetStats returns normalizer statistics.
func (n *Normalizer) GetStats() map[string]any {
	return map[string]any{
		"total_structured": n.totalStructured.Load(),
		"total_plain":      n.totalPlain.Load(),
	}
}

// DeviceIDFromTopic derives a device identity from the topic path.
// Compatibility contract with existing topic naming:
// "prefix/{id}/suffix" topics yield the second segment, "{id}/suffix"
// topics the first, anything shorter the placeholder "unknown".
func DeviceIDFromTopic(topic string) string {
	segments := strings.Split(topic, "/")
	if len(segments) >= 3 {
		return segments[1]
	}
	if len(segments) == 2 {
		return segments[0]
	}
	return "unknown"
}

// decodePayload attempts a structured decode of the payload as a generic
// key-value record. Returns false when the payload is not a JSON object.
func decodePayload(payload []byte) (map[string]any, bool) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func (n *Normalizer) buildLabels(entry core.Entry, metadata string) map[string]string {
	labels := map[string]string{
		core.LabelSeverity: entry.Severity.String(),
		core.LabelDeviceID: entry.DeviceID,
	}
	if n.source != "" {
		labels[core.LabelSource] = n.source
	}
	if metadata != "" {
		labels[core.LabelMetadata] = metadata
	}
	return labels
}

// metadataFor serializes the payload fields not consumed during
// normalization. Returns "" when nothing is left over.
func metadataFor(fields map[string]any) string {
	leftover := make(map[string]any, len(fields))
	for k, v := range fields {
		switch k {
		case fieldDeviceID, fieldMessage, fieldSeverity, fieldTimestamp:
		default:
			leftover[k] = v
		}
	}
	if len(leftover) == 0 {
		return ""
	}
	serialized, err := json.Marshal(leftover)
	if err != nil {
		return ""
	}
	return string(serialized)
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

// parseTimestamp resolves the entry time from an explicit timestamp field,
// accepting RFC3339 strings and unix-second numbers, else ingestion time.
func parseTimestamp(fields map[string]any, fallback time.Time) time.Time {
	switch v := fields[fieldTimestamp].(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return ts
		}
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts
		}
	case float64:
		if v > 0 {
			sec := int64(v)
			nsec := int64((v - float64(sec)) * float64(time.Second))
			return time.Unix(sec, nsec)
		}
	}
	return fallback
}
