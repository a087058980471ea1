package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/ggoodman/mcp-rpc-go/internal/engine"

// Attribute keys for dispatch spans and metrics.
var (
	AttrRPCSystem    = attribute.Key("rpc.system")
	AttrRPCMethod    = attribute.Key("rpc.method")
	AttrRPCErrorCode = attribute.Key("rpc.jsonrpc.error_code")
	AttrRPCBatch     = attribute.Key("rpc.jsonrpc.batch")
	AttrStatus       = attribute.Key("status")
)

type telemetry struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(scopeName)

	t := &telemetry{tracer: tp.Tracer(scopeName)}
	var err error
	t.requests, err = meter.Int64Counter("mcp.requests",
		metric.WithDescription("JSON-RPC entries dispatched"))
	if err != nil {
		t.requests, _ = metricnoop.NewMeterProvider().Meter(scopeName).Int64Counter("mcp.requests")
	}
	t.duration, err = meter.Float64Histogram("mcp.request.duration",
		metric.WithDescription("JSON-RPC entry dispatch duration"),
		metric.WithUnit("ms"))
	if err != nil {
		t.duration, _ = metricnoop.NewMeterProvider().Meter(scopeName).Float64Histogram("mcp.request.duration")
	}
	return t
}

func (t *telemetry) start(ctx context.Context, method string, batch bool) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "mcp.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			AttrRPCSystem.String("jsonrpc"),
			AttrRPCMethod.String(method),
			AttrRPCBatch.Bool(batch),
		))
}

// finish closes span and records metrics. route is the resolved method, or
// "unknown" so unresolvable names do not become metric dimensions.
func (t *telemetry) finish(ctx context.Context, span trace.Span, route string, code int, fault error, start time.Time) {
	status := "ok"
	if code != 0 {
		status = "error"
		span.SetAttributes(AttrRPCErrorCode.Int(code))
	}
	if fault != nil {
		span.RecordError(fault)
		span.SetStatus(codes.Error, "internal error")
	}
	span.End()

	attrs := metric.WithAttributes(AttrRPCMethod.String(route), AttrStatus.String(status))
	t.requests.Add(ctx, 1, attrs)
	t.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
}
