package perf

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestStartSpanRecordsNameAndAttributes(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	_, span := StartSpan(context.Background(), "app.command.configure",
		WithAttributes(attribute.String("buildDir", "build")),
	)
	span.SetAttributes(attribute.Bool("success", true))
	span.End()

	spans, err := GetSpans()
	assert.NoError(t, err)

	snapshot, ok := FindSpanByName(spans, "app.command.configure")
	assert.True(t, ok)
	assert.Equal(t, "build", snapshot.Attributes["buildDir"])
	assert.Equal(t, true, snapshot.Attributes["success"])
}

func TestStartSpanNestingLinksParent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	ctx, parent := StartSpan(context.Background(), "outer")
	_, child := StartSpan(ctx, "inner")
	child.End()
	parent.End()

	spans, err := GetSpans()
	assert.NoError(t, err)

	outer, ok := FindSpanByName(spans, "outer")
	assert.True(t, ok)
	inner, ok := FindSpanByName(spans, "inner")
	assert.True(t, ok)
	assert.Equal(t, outer.SpanID, inner.ParentSpanID)
}

func TestStartSpanNilContext(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	_, span := StartSpan(nil, "tolerates.nil") //nolint:staticcheck
	span.End()

	spans, err := GetSpans()
	assert.NoError(t, err)
	_, ok := FindSpanByName(spans, "tolerates.nil")
	assert.True(t, ok)
}

func TestNilSpanIsSafe(t *testing.T) {
	var span *Span
	span.SetAttributes(attribute.Bool("ignored", true))
	span.AddEvent("ignored")
	span.End()
}

func TestExportToFileWritesRelativePaths(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	base := t.TempDir()
	_, span := StartSpan(context.Background(), "io.plan.write",
		WithAttributes(attribute.String("path", filepath.Join(base, "build", "voxim-plan.json"))),
	)
	span.End()

	outDir := t.TempDir()
	path, err := ExportToFile(outDir, base)
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "voxim-perf.json"), path)

	data, err := os.ReadFile(path)
	assert.NoError(t, err)

	var entries []map[string]interface{}
	assert.NoError(t, json.Unmarshal(data, &entries))
	assert.Len(t, entries, 1)

	attrs := entries[0]["attributes"].(map[string]interface{})
	assert.Equal(t, filepath.Join("build", "voxim-plan.json"), attrs["path"])
}
