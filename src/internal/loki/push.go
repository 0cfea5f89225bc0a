package loki

import (
	"sort"
	"strconv"
	"strings"

	"mqbridge/src/internal/core"
)

// PushRequest is the JSON body of one push call to the sink.
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is the sink's addressing unit: a label set plus its ordered
// (timestamp, line) value pairs.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// GroupStreams partitions a batch into streams keyed by the full label
// set, compared by value. Within a stream the value pairs preserve the
// order entries were appended to the batch; stream order follows first
// appearance of each label set.
func GroupStreams(entries []core.Entry) []Stream {
	streams := make([]Stream, 0)
	index := make(map[string]int)

	for _, entry := range entries {
		key := labelKey(entry.Labels)
		i, seen := index[key]
		if !seen {
			i = len(streams)
			index[key] = i
			streams = append(streams, Stream{Stream: entry.Labels})
		}
		streams[i].Values = append(streams[i].Values, [2]string{
			timestampString(entry),
			entry.Message,
		})
	}

	return streams
}

// timestampString encodes the entry time as a nanosecond-resolution
// integer string. Only millisecond precision is available upstream, so
// no finer precision is fabricated.
func timestampString(entry core.Entry) string {
	return strconv.FormatInt(entry.Time.UnixMilli()*1_000_000, 10)
}

// labelKey builds a value-equality key over the full label set.
func labelKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte(0x1f)
		sb.WriteString(labels[k])
		sb.WriteByte(0x1e)
	}
	return sb.String()
}
