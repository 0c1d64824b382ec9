// Package tracing starts OpenTelemetry spans for pipeline stages.
//
// ocpack installs no exporter. Spans go to whatever tracer provider the
// embedding program registered with otel.SetTracerProvider, and are no-ops
// otherwise.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName prefixes every tracer name.
const InstrumentationName = "github.com/conneroisu/ocpack"

// Start begins a span named name on the tracer for scope.
func Start(ctx context.Context, scope, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName+"/"+scope).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End records err, sets the span status and ends the span.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
