// Package perf records diagnostic spans for the build pipeline.
package perf

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var (
	setupMu  sync.Mutex
	provider *sdktrace.TracerProvider
	exporter *spanExporter
)

type Span struct {
	span trace.Span
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	if s == nil || s.span == nil {
		return
	}
	s.span.SetAttributes(attrs...)
}

func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	if s == nil || s.span == nil {
		return
	}
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (s *Span) End() {
	if s == nil || s.span == nil {
		return
	}
	s.span.End()
}

type StartOption func(*startConfig)

type startConfig struct {
	attributes []attribute.KeyValue
}

func WithAttributes(attrs ...attribute.KeyValue) StartOption {
	return func(cfg *startConfig) {
		cfg.attributes = append(cfg.attributes, attrs...)
	}
}

// StartSpan opens a named span. The returned context carries the span so
// nested StartSpan calls produce a parent/child chain.
func StartSpan(ctx context.Context, name string, opts ...StartOption) (context.Context, *Span) {
	var cfg startConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tracer := ensureProvider().Tracer("voxim/perf")
	ctx, span := tracer.Start(ctx, name)
	if len(cfg.attributes) > 0 {
		span.SetAttributes(cfg.attributes...)
	}
	return ctx, &Span{span: span}
}

func ensureProvider() *sdktrace.TracerProvider {
	setupMu.Lock()
	defer setupMu.Unlock()

	if provider == nil {
		exporter = newSpanExporter()
		provider = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	}
	return provider
}

// Reset discards every recorded span. Intended for tests.
func Reset() {
	setupMu.Lock()
	defer setupMu.Unlock()
	if exporter != nil {
		exporter.Reset()
	}
}

// Shutdown flushes the provider. Safe to call when nothing was recorded.
func Shutdown(ctx context.Context) error {
	setupMu.Lock()
	defer setupMu.Unlock()
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

// SnapshotSpans returns the raw recorded spans in export order.
func SnapshotSpans() ([]sdktrace.ReadOnlySpan, error) {
	setupMu.Lock()
	defer setupMu.Unlock()
	if exporter == nil {
		return nil, nil
	}
	return exporter.Snapshot(), nil
}
