package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/ddgroups/pkg/vgroup"
)

const (
	metricReserveTotal     = "ddgroups.reserve.total"
	metricReserveLevels    = "ddgroups.reserve.levels.total"
	metricReleaseTotal     = "ddgroups.release.total"
	metricDissolveTotal    = "ddgroups.dissolve.total"
	metricInvalidatedTotal = "ddgroups.handles.invalidated.total"
	metricConflictsTotal   = "ddgroups.conflicts.total"
	metricResyncTotal      = "ddgroups.resync.total"
	metricResyncMoved      = "ddgroups.resync.moved.total"
	metricGroupsLive       = "ddgroups.groups.live"
	metricStepDuration     = "ddgroups.scenario.step.duration.seconds"

	attrOutcome   = "outcome"
	attrDestroyed = "destroyed"
	attrOp        = "op"
	attrStatus    = "status"
)

// stepBucketBoundaries covers 10µs to 1s; scenario steps are in-memory.
var stepBucketBoundaries = []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1}

// AllocatorMetrics records group allocator events as OTel instruments. It
// implements vgroup.Observer.
type AllocatorMetrics struct {
	reserveTotal     metric.Int64Counter
	reserveLevels    metric.Int64Counter
	releaseTotal     metric.Int64Counter
	dissolveTotal    metric.Int64Counter
	invalidatedTotal metric.Int64Counter
	conflictsTotal   metric.Int64Counter
	resyncTotal      metric.Int64Counter
	resyncMoved      metric.Int64Counter
	groupsLive       metric.Int64UpDownCounter
	stepDuration     metric.Float64Histogram
}

var _ vgroup.Observer = (*AllocatorMetrics)(nil)

// NewAllocatorMetrics creates allocator metric instruments from the given meter.
func NewAllocatorMetrics(mt metric.Meter) (*AllocatorMetrics, error) {
	b := newMetricBuilder(mt)

	am := &AllocatorMetrics{
		reserveTotal:     b.counter(metricReserveTotal, "Reservations by outcome", "{reservation}"),
		reserveLevels:    b.counter(metricReserveLevels, "Levels requested by reservations", "{level}"),
		releaseTotal:     b.counter(metricReleaseTotal, "Released handles", "{handle}"),
		dissolveTotal:    b.counter(metricDissolveTotal, "Forced group dissolutions", "{dissolve}"),
		invalidatedTotal: b.counter(metricInvalidatedTotal, "Handles invalidated by another caller's dissolve", "{handle}"),
		conflictsTotal:   b.counter(metricConflictsTotal, "Share requests that conflicted with existing groups", "{conflict}"),
		resyncTotal:      b.counter(metricResyncTotal, "Forest resynchronisations", "{resync}"),
		resyncMoved:      b.counter(metricResyncMoved, "Groups moved by resynchronisation", "{group}"),
		groupsLive:       b.upDownCounter(metricGroupsLive, "Groups currently in the forest", "{group}"),
		stepDuration:     b.histogram(metricStepDuration, "Scenario step duration in seconds", "s", stepBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return am, nil
}

// Reserved implements vgroup.Observer.
func (am *AllocatorMetrics) Reserved(outcome vgroup.Outcome, size int) {
	if am == nil {
		return
	}

	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String(attrOutcome, string(outcome)))

	am.reserveTotal.Add(ctx, 1, attrs)
	am.reserveLevels.Add(ctx, int64(size), attrs)
}

// Conflict implements vgroup.Observer.
func (am *AllocatorMetrics) Conflict() {
	if am == nil {
		return
	}

	am.conflictsTotal.Add(context.Background(), 1)
}

// Released implements vgroup.Observer.
func (am *AllocatorMetrics) Released(destroyed bool) {
	if am == nil {
		return
	}

	am.releaseTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(attrDestroyed, strconv.FormatBool(destroyed))))
}

// Dissolved implements vgroup.Observer.
func (am *AllocatorMetrics) Dissolved(invalidated int) {
	if am == nil {
		return
	}

	ctx := context.Background()

	am.dissolveTotal.Add(ctx, 1)
	am.invalidatedTotal.Add(ctx, int64(invalidated))
}

// Resynced implements vgroup.Observer.
func (am *AllocatorMetrics) Resynced(moved int) {
	if am == nil {
		return
	}

	ctx := context.Background()

	am.resyncTotal.Add(ctx, 1)
	am.resyncMoved.Add(ctx, int64(moved))
}

// GroupsChanged implements vgroup.Observer.
func (am *AllocatorMetrics) GroupsChanged(delta int) {
	if am == nil {
		return
	}

	am.groupsLive.Add(context.Background(), int64(delta))
}

// RecordStep records the duration and status of one scenario step.
// Safe to call on a nil receiver (no-op).
func (am *AllocatorMetrics) RecordStep(ctx context.Context, op, status string, elapsed time.Duration) {
	if am == nil {
		return
	}

	am.stepDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String(attrOp, op), attribute.String(attrStatus, status)))
}
