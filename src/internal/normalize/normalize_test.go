package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"mqbridge/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestDeviceIDFromTopic(t *testing.T) {
	testCases := []struct {
		name     string
		topic    string
		expected string
	}{
		{"ThreeSegments", "smtrack/dev42/logs", "dev42"},
		{"FourSegments", "iot/sensor1/env/temp", "sensor1"},
		{"TwoSegments", "dev7/logs", "dev7"},
		{"OneSegment", "telemetry", "unknown"},
		{"Empty", "", "unknown"},
		{"LeadingSlash", "/dev9/logs", "dev9"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DeviceIDFromTopic(tc.topic))
		})
	}
}

func TestNormalizer_PlainPayload(t *testing.T) {
	n := New("mqtt", newTestLogger())

	t.Run("RawTextVerbatim", func(t *testing.T) {
		entry := n.Normalize("smtrack/dev42/logs", []byte("hello"))

		assert.Equal(t, "hello", entry.Message)
		assert.Equal(t, "dev42", entry.DeviceID)
		assert.Equal(t, core.SeverityInfo, entry.Severity)
		assert.Equal(t, "dev42", entry.Labels[core.LabelDeviceID])
		assert.Equal(t, "info", entry.Labels[core.LabelSeverity])
		assert.Equal(t, "mqtt", entry.Labels[core.LabelSource])
	})

	t.Run("InvalidJSONIsPlainText", func(t *testing.T) {
		raw := `{"broken": `
		entry := n.Normalize("smtrack/dev42/logs", []byte(raw))
		assert.Equal(t, raw, entry.Message)
	})

	t.Run("NonObjectJSONIsPlainText", func(t *testing.T) {
		entry := n.Normalize("smtrack/dev42/logs", []byte(`["a","b"]`))
		assert.Equal(t, `["a","b"]`, entry.Message)
	})

	t.Run("IngestionTimeDefault", func(t *testing.T) {
		before := time.Now()
		entry := n.Normalize("smtrack/dev42/logs", []byte("hello"))
		after := time.Now()
		assert.False(t, entry.Time.Before(before))
		assert.False(t, entry.Time.After(after))
	})
}

func TestNormalizer_StructuredPayload(t *testing.T) {
	n := New("mqtt", newTestLogger())

	t.Run("ExplicitFields", func(t *testing.T) {
		payload := []byte(`{"device_id":"d9","message":"pump stopped","severity":"warn"}`)
		entry := n.Normalize("smtrack/dev42/logs", payload)

		assert.Equal(t, "d9", entry.DeviceID)
		assert.Equal(t, "pump stopped", entry.Message)
		assert.Equal(t, core.SeverityWarning, entry.Severity)
	})

	t.Run("DeviceIDFromTopicWhenAbsent", func(t *testing.T) {
		payload := []byte(`{"message":"ok"}`)
		entry := n.Normalize("smtrack/dev42/logs", payload)
		assert.Equal(t, "dev42", entry.DeviceID)
	})

	t.Run("TopicHintWithoutExplicitSeverity", func(t *testing.T) {
		payload := []byte(`{"message":"oops"}`)
		entry := n.Normalize("iot/sensor1/error", payload)
		assert.Equal(t, core.SeverityError, entry.Severity)
	})

	t.Run("MessageFallsBackToSerializedRecord", func(t *testing.T) {
		payload := []byte(`{"temp":21.5,"unit":"C"}`)
		entry := n.Normalize("smtrack/dev42/logs", payload)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(entry.Message), &decoded))
		assert.Equal(t, 21.5, decoded["temp"])
		assert.Equal(t, "C", decoded["unit"])
	})

	t.Run("ExplicitTimestamp", func(t *testing.T) {
		payload := []byte(`{"message":"ok","timestamp":"2026-03-01T10:00:00Z"}`)
		entry := n.Normalize("smtrack/dev42/logs", payload)
		assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), entry.Time.UTC())
	})

	t.Run("InvalidTimestampUsesIngestionTime", func(t *testing.T) {
		payload := []byte(`{"message":"ok","timestamp":"yesterday"}`)
		entry := n.Normalize("smtrack/dev42/logs", payload)
		assert.WithinDuration(t, time.Now(), entry.Time, time.Second)
	})

	t.Run("LeftoverFieldsInMetadataLabel", func(t *testing.T) {
		payload := []byte(`{"message":"ok","battery":77}`)
		entry := n.Normalize("smtrack/dev42/logs", payload)

		metadata := entry.Labels[core.LabelMetadata]
		require.NotEmpty(t, metadata)

		var fields map[string]any
		require.NoError(t, json.Unmarshal([]byte(metadata), &fields))
		assert.Equal(t, 77.0, fields["battery"])
		assert.NotContains(t, fields, "message")
	})

	t.Run("NoMetadataLabelWhenNothingLeftOver", func(t *testing.T) {
		payload := []byte(`{"message":"ok"}`)
		entry := n.Normalize("smtrack/dev42/logs", payload)
		assert.NotContains(t, entry.Labels, core.LabelMetadata)
	})
}
