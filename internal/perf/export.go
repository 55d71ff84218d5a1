package perf

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultExportFilename = "voxim-perf.json"

type exportEntry struct {
	Name         string                 `json:"name"`
	TraceID      string                 `json:"trace_id"`
	SpanID       string                 `json:"span_id"`
	ParentSpanID string                 `json:"parent_span_id,omitempty"`
	Start        time.Time              `json:"start"`
	DurationNS   int64                  `json:"duration_ns"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
}

// ExportToFile writes the recorded spans as JSON to
// <outDir>/voxim-perf.json. Absolute filesystem paths in attribute values
// are rewritten to be relative to baseDir so the output stays portable.
//
// This is a best-effort diagnostic artifact; callers should treat any
// returned error as non-fatal.
func ExportToFile(outDir string, baseDir string) (string, error) {
	if outDir == "" {
		outDir = "."
	}

	spans, err := GetSpans()
	if err != nil {
		return "", err
	}

	exported := make([]exportEntry, 0, len(spans))
	for _, span := range spans {
		exported = append(exported, exportEntry{
			Name:         span.Name,
			TraceID:      span.TraceID,
			SpanID:       span.SpanID,
			ParentSpanID: span.ParentSpanID,
			Start:        span.StartTime,
			DurationNS:   span.EndTime.Sub(span.StartTime).Nanoseconds(),
			Attributes:   relativizeAttributes(span.Attributes, baseDir),
		})
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(outDir, defaultExportFilename)
	data, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		return "", err
	}

	return path, os.WriteFile(path, data, 0644)
}

func relativizeAttributes(attrs map[string]interface{}, baseDir string) map[string]interface{} {
	if len(attrs) == 0 || baseDir == "" {
		return attrs
	}

	out := make(map[string]interface{}, len(attrs))
	for key, value := range attrs {
		text, ok := value.(string)
		if !ok || !filepath.IsAbs(text) {
			out[key] = value
			continue
		}
		relative, err := filepath.Rel(baseDir, text)
		if err != nil || strings.HasPrefix(relative, "..") {
			out[key] = value
			continue
		}
		out[key] = relative
	}
	return out
}
