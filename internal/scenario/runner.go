package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/ddgroups/internal/config"
	"github.com/Sumatoshi-tech/ddgroups/internal/observability"
	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
	"github.com/Sumatoshi-tech/ddgroups/pkg/vgroup"
)

const tracerName = "github.com/Sumatoshi-tech/ddgroups/internal/scenario"

// Runner replays a Document against a fresh diagram.Memory and
// vgroup.Allocator.
type Runner struct {
	doc     *Document
	cfg     config.Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.AllocatorMetrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger passed to the allocator and the package.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer sets the tracer used for per-step spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithMetrics records allocator events and step durations.
func WithMetrics(metrics *observability.AllocatorMetrics) Option {
	return func(r *Runner) {
		r.metrics = metrics
	}
}

// NewRunner merges the document's config overrides into base.
func NewRunner(doc *Document, base config.Config, opts ...Option) (*Runner, error) {
	cfg, err := base.Apply(doc.Config)
	if err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}

	r := &Runner{
		doc:    doc,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: noop.NewTracerProvider().Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Config returns the effective configuration of the run.
func (r *Runner) Config() config.Config {
	return r.cfg
}

// Run executes every step in order and returns the collected results. A fatal
// step ends the run; it is reported in the Report, not as an error. The error
// is non-nil only when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	sess := r.newSession()

	report := &Report{Name: r.doc.Name, Steps: make([]StepResult, 0, len(r.doc.Steps))}

	for idx := range r.doc.Steps {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return report, fmt.Errorf("scenario %q interrupted at step %d: %w", r.doc.Name, idx, ctxErr)
		}

		res := r.runStep(ctx, sess, idx)
		report.Steps = append(report.Steps, res)

		if res.Status == StatusFatal {
			r.logger.WarnContext(ctx, "scenario stopped", "step", idx, "op", string(res.Op), "error", res.Err)

			break
		}
	}

	report.Allocator = sess.alloc.Stats()
	report.Diagram = sess.mem.Stats()

	closeErr := sess.alloc.Close()
	if closeErr != nil {
		r.logger.WarnContext(ctx, "allocator close failed", "error", closeErr)
	}

	return report, nil
}

func (r *Runner) runStep(ctx context.Context, sess *session, idx int) StepResult {
	step := &r.doc.Steps[idx]

	ctx, span := r.tracer.Start(ctx, "scenario."+string(step.Op),
		trace.WithAttributes(
			attribute.Int("scenario.step", idx),
			attribute.String("scenario.op", string(step.Op)),
		),
	)
	defer span.End()

	start := time.Now()

	sess.probe.reset()

	res := StepResult{Index: idx, Op: step.Op}

	seen, err := sess.exec(step)
	if err == nil {
		err = sess.alloc.Check()
	}

	res.Elapsed = time.Since(start)
	res.Detail = seen.detail
	res.Dump = sess.alloc.DebugDump()

	switch mismatches := seen.compare(step.Expect, sess.probe.conflict); {
	case err != nil:
		res.Status = StatusFatal
		res.Err = err

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case len(mismatches) > 0:
		res.Status = StatusMismatch
		res.Err = fmt.Errorf("%w: %s", ErrExpectation, strings.Join(mismatches, "; "))
	case sess.probe.conflict:
		res.Status = StatusConflict
	default:
		res.Status = StatusOK
	}

	span.SetAttributes(attribute.String("scenario.status", string(res.Status)))
	r.metrics.RecordStep(ctx, string(step.Op), string(res.Status), res.Elapsed)

	r.logger.DebugContext(ctx, "step replayed",
		"step", idx, "op", string(step.Op), "status", string(res.Status), "detail", res.Detail)

	return res
}

func (r *Runner) newSession() *session {
	probe := &probe{next: vgroup.NopObserver{}}
	if r.metrics != nil {
		probe.next = r.metrics
	}

	mem := diagram.NewMemory(r.cfg.MemoryOptions(r.logger)...)

	return &session{
		cfg:       r.cfg,
		mem:       mem,
		alloc:     vgroup.New(mem, r.cfg.AllocatorOptions(r.logger, probe)...),
		probe:     probe,
		handles:   make(map[string]vgroup.Handle),
		snapshots: make(map[string][]byte),
	}
}

// probe forwards allocator events and remembers whether the current step hit
// a sharing conflict.
type probe struct {
	next     vgroup.Observer
	conflict bool
}

func (p *probe) reset() { p.conflict = false }

func (p *probe) Reserved(outcome vgroup.Outcome, size int) { p.next.Reserved(outcome, size) }

func (p *probe) Conflict() {
	p.conflict = true
	p.next.Conflict()
}

func (p *probe) Released(destroyed bool) { p.next.Released(destroyed) }

func (p *probe) Dissolved(invalidated int) { p.next.Dissolved(invalidated) }

func (p *probe) Resynced(moved int) { p.next.Resynced(moved) }

func (p *probe) GroupsChanged(delta int) { p.next.GroupsChanged(delta) }
