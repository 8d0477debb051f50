package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ddgroups/internal/observability"
	"github.com/Sumatoshi-tech/ddgroups/internal/scenario"
)

// ErrReplayFailed is returned when a replayed scenario had mismatched or fatal steps.
var ErrReplayFailed = errors.New("scenario replay failed")

// ReplayCommand holds the flags of the replay command.
type ReplayCommand struct {
	global  *GlobalOptions
	diff    bool
	metrics bool
	noColor bool
}

func newReplayCommand(global *GlobalOptions) *cobra.Command {
	rc := &ReplayCommand{global: global}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Run a scenario against a fresh allocator",
		Long: `Replay the steps of a scenario file against a fresh diagram package and
group allocator. Every step is checked against the forest invariants and its
expectations.

Examples:
  ddgroups replay testdata/share.yaml
  ddgroups replay --diff --metrics scenario.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().BoolVar(&rc.diff, "diff", false, "Print forest dump changes after each step")
	cmd.Flags().BoolVar(&rc.metrics, "metrics", false, "Print allocator metrics after the run")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (rc *ReplayCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := rc.global.loadConfig()
	if err != nil {
		return err
	}

	doc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	providers, err := rc.global.telemetry(cfg, observability.ModeReplay, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("telemetry shutdown failed", "error", shutdownErr)
		}
	}()

	meter := providers.Meter

	var snapshot *observability.PrometheusSnapshot

	if rc.metrics {
		snapshot, err = observability.NewPrometheusSnapshot()
		if err != nil {
			return err
		}

		defer func() {
			shutdownErr := snapshot.Shutdown(context.Background())
			if shutdownErr != nil {
				providers.Logger.Warn("metrics snapshot shutdown failed", "error", shutdownErr)
			}
		}()

		meter = snapshot.Meter()
	}

	allocMetrics, err := observability.NewAllocatorMetrics(meter)
	if err != nil {
		return fmt.Errorf("allocator metrics: %w", err)
	}

	runner, err := scenario.NewRunner(doc, *cfg,
		scenario.WithLogger(providers.Logger),
		scenario.WithTracer(providers.Tracer),
		scenario.WithMetrics(allocMetrics),
	)
	if err != nil {
		return err
	}

	report, err := runner.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("replay %s: %w", args[0], err)
	}

	pr := newPrinter(cmd.OutOrStdout(), rc.noColor)

	pr.steps(report, rc.diff)

	if snapshot != nil {
		samples, samplesErr := snapshot.Samples()
		if samplesErr != nil {
			return samplesErr
		}

		pr.metrics(samples)
	}

	pr.summary(report)

	if report.Failed() {
		return fmt.Errorf("%w: %s", ErrReplayFailed, args[0])
	}

	return nil
}
