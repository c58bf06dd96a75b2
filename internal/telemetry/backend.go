package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/issueboard/internal/tracker"
	"github.com/steveyegge/issueboard/internal/types"
)

const backendScopeName = "github.com/steveyegge/issueboard/backend"

// InstrumentedBackend wraps a tracker.Backend with OTel tracing and metrics.
// Every call gets a span and is counted in the ib.backend.* metrics.
type InstrumentedBackend struct {
	inner  tracker.Backend
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapBackend returns b decorated with OTel instrumentation.
// When telemetry is disabled, b is returned as-is.
func WrapBackend(b tracker.Backend) tracker.Backend {
	if !Enabled() {
		return b
	}
	return newInstrumentedBackend(b)
}

func newInstrumentedBackend(b tracker.Backend) *InstrumentedBackend {
	m := Meter(backendScopeName)
	ops, _ := m.Int64Counter("ib.backend.operations",
		metric.WithDescription("Total backend operations executed"),
	)
	dur, _ := m.Float64Histogram("ib.backend.operation.duration",
		metric.WithDescription("Backend operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("ib.backend.errors",
		metric.WithDescription("Total backend operation errors"),
	)
	return &InstrumentedBackend{
		inner:  b,
		tracer: Tracer(backendScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// Unwrap returns the instrumented backend.
func (b *InstrumentedBackend) Unwrap() tracker.Backend { return b.inner }

func (b *InstrumentedBackend) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time, []attribute.KeyValue) {
	all := append([]attribute.KeyValue{
		attribute.String("ib.backend", b.inner.Name()),
		attribute.String("ib.operation", name),
	}, attrs...)
	ctx, span := b.tracer.Start(ctx, "backend."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	b.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now(), all
}

func (b *InstrumentedBackend) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs []attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	b.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind := tracker.Kind(err); kind != nil {
			span.SetAttributes(attribute.String("ib.error.kind", kind.Error()))
		}
		b.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

// Name implements tracker.Backend.
func (b *InstrumentedBackend) Name() string { return b.inner.Name() }

// ListIssues implements tracker.Backend.
func (b *InstrumentedBackend) ListIssues(ctx context.Context, prefix string, filter tracker.ListFilter) ([]types.ListItem, error) {
	ctx, span, t, attrs := b.op(ctx, "ListIssues", attribute.String("ib.issue.prefix", prefix))
	items, err := b.inner.ListIssues(ctx, prefix, filter)
	span.SetAttributes(attribute.Int("ib.issue.count", len(items)))
	b.done(ctx, span, t, err, attrs)
	return items, err
}

// CreateIssue implements tracker.Backend.
func (b *InstrumentedBackend) CreateIssue(ctx context.Context, parent string, rec *types.Record, assignee string) (*types.Outcome, error) {
	ctx, span, t, attrs := b.op(ctx, "CreateIssue", attribute.String("ib.issue.parent", parent))
	out, err := b.inner.CreateIssue(ctx, parent, rec, assignee)
	if out != nil {
		span.SetAttributes(attribute.String("ib.issue.id", out.Issue))
	}
	b.done(ctx, span, t, err, attrs)
	return out, err
}

// ReadIssue implements tracker.Backend.
func (b *InstrumentedBackend) ReadIssue(ctx context.Context, id string) (types.Detail, error) {
	ctx, span, t, attrs := b.op(ctx, "ReadIssue", attribute.String("ib.issue.id", id))
	d, err := b.inner.ReadIssue(ctx, id)
	b.done(ctx, span, t, err, attrs)
	return d, err
}

// AppendEvent implements tracker.Backend.
func (b *InstrumentedBackend) AppendEvent(ctx context.Context, id string, ev types.Event, guard tracker.Guard) error {
	ctx, span, t, attrs := b.op(ctx, "AppendEvent",
		attribute.String("ib.issue.id", id),
		attribute.String("ib.actor", ev.UpdatedBy),
	)
	err := b.inner.AppendEvent(ctx, id, ev, guard)
	b.done(ctx, span, t, err, attrs)
	return err
}

// SetAssignee implements tracker.Backend.
func (b *InstrumentedBackend) SetAssignee(ctx context.Context, id, assignee string, ev types.Event, guard tracker.Guard) error {
	ctx, span, t, attrs := b.op(ctx, "SetAssignee",
		attribute.String("ib.issue.id", id),
		attribute.String("ib.actor", ev.UpdatedBy),
	)
	err := b.inner.SetAssignee(ctx, id, assignee, ev, guard)
	b.done(ctx, span, t, err, attrs)
	return err
}

// ValidateAssignee implements tracker.AssigneeValidator. Backends that cannot
// validate accept every name.
func (b *InstrumentedBackend) ValidateAssignee(ctx context.Context, name string) error {
	v, ok := b.inner.(tracker.AssigneeValidator)
	if !ok {
		return nil
	}
	ctx, span, t, attrs := b.op(ctx, "ValidateAssignee")
	err := v.ValidateAssignee(ctx, name)
	b.done(ctx, span, t, err, attrs)
	return err
}

var _ tracker.Backend = (*InstrumentedBackend)(nil)
var _ tracker.AssigneeValidator = (*InstrumentedBackend)(nil)
