package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/ddgroups/internal/observability"
	"github.com/Sumatoshi-tech/ddgroups/internal/scenario"
)

// printer writes replay output, coloring statuses and dump diffs.
type printer struct {
	out    io.Writer
	colors map[scenario.Status]*color.Color
	added  *color.Color
	gone   *color.Color
	faint  *color.Color
}

func newPrinter(out io.Writer, noColor bool) *printer {
	pr := &printer{
		out: out,
		colors: map[scenario.Status]*color.Color{
			scenario.StatusOK:       color.New(color.FgGreen),
			scenario.StatusConflict: color.New(color.FgYellow),
			scenario.StatusMismatch: color.New(color.FgRed),
			scenario.StatusFatal:    color.New(color.FgRed, color.Bold),
		},
		added: color.New(color.FgGreen),
		gone:  color.New(color.FgRed),
		faint: color.New(color.Faint),
	}

	if noColor {
		for _, c := range pr.colors {
			c.DisableColor()
		}

		pr.added.DisableColor()
		pr.gone.DisableColor()
		pr.faint.DisableColor()
	}

	return pr
}

func (pr *printer) steps(report *scenario.Report, diff bool) {
	if report.Name != "" {
		fmt.Fprintf(pr.out, "scenario %s\n", report.Name)
	}

	prevDump := ""

	for idx := range report.Steps {
		step := &report.Steps[idx]

		status := pr.colors[step.Status].Sprintf("%-8s", step.Status)

		if step.Op == scenario.OpDump {
			fmt.Fprintf(pr.out, "%3d %s %-9s\n", step.Index, status, step.Op)
			pr.indented(step.Detail)
		} else {
			fmt.Fprintf(pr.out, "%3d %s %-9s %s\n", step.Index, status, step.Op, step.Detail)
		}

		if step.Err != nil {
			pr.colors[step.Status].Fprintf(pr.out, "             %v\n", step.Err)
		}

		if diff && step.Dump != prevDump {
			pr.dumpDiff(prevDump, step.Dump)
		}

		prevDump = step.Dump
	}
}

func (pr *printer) indented(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(pr.out, "             %s\n", line)
	}
}

// dumpDiff prints a line diff between two forest dumps.
func (pr *printer) dumpDiff(prev, next string) {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToChars(prev, next)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(src, dst, false), lines)

	for _, d := range diffs {
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				pr.added.Fprintf(pr.out, "           + %s\n", line)
			case diffmatchpatch.DiffDelete:
				pr.gone.Fprintf(pr.out, "           - %s\n", line)
			case diffmatchpatch.DiffEqual:
				pr.faint.Fprintf(pr.out, "             %s\n", line)
			}
		}
	}
}

func (pr *printer) metrics(samples []observability.Sample) {
	tw := table.NewWriter()
	tw.SetOutputMirror(pr.out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"metric", "labels", "value"})

	for _, s := range samples {
		tw.AppendRow(table.Row{s.Name, s.Labels, humanize.FtoaWithDigits(s.Value, 6)})
	}

	tw.Render()
}

func (pr *printer) summary(report *scenario.Report) {
	var elapsed time.Duration

	for idx := range report.Steps {
		elapsed += report.Steps[idx].Elapsed
	}

	fmt.Fprintf(pr.out, "%s: %s ok, %s conflict, %s mismatch, %s fatal in %s\n",
		english.Plural(len(report.Steps), "step", ""),
		humanize.Comma(int64(report.Count(scenario.StatusOK))),
		humanize.Comma(int64(report.Count(scenario.StatusConflict))),
		humanize.Comma(int64(report.Count(scenario.StatusMismatch))),
		humanize.Comma(int64(report.Count(scenario.StatusFatal))),
		humanize.SIWithDigits(elapsed.Seconds(), 1, "s"),
	)

	fmt.Fprintf(pr.out, "diagram: %s created, %s reserved, %s freed, %s\n",
		english.Plural(report.Diagram.VariablesCreated, "variable", ""),
		english.Plural(report.Diagram.BlocksReserved, "block", ""),
		english.Plural(report.Diagram.BlocksFreed, "block", ""),
		english.Plural(report.Diagram.Reorders, "reorder", ""),
	)
}
