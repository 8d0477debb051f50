package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ddgroups/internal/scenario"
)

// ErrInvalidScenario is returned when a scenario fails validation.
var ErrInvalidScenario = errors.New("invalid scenario")

func newValidateCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Check a scenario against the schema",
		Long: `Validate a scenario file against the embedded scenario schema without
running it.

Examples:
  ddgroups validate scenario.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], noColor)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runValidate(cmd *cobra.Command, path string, noColor bool) error {
	out := cmd.OutOrStdout()

	okColor := color.New(color.FgGreen)
	failColor := color.New(color.FgRed)

	if noColor {
		okColor.DisableColor()
		failColor.DisableColor()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}

	validateErr := scenario.Validate(raw)
	if validateErr == nil {
		_, validateErr = scenario.Decode(bytes.NewReader(raw))
	}

	if validateErr == nil {
		okColor.Fprintf(out, "scenario is valid (%s)\n", path)

		return nil
	}

	failColor.Fprintf(out, "scenario validation failed (%s)\n", path)

	var verr *scenario.ValidationError
	if errors.As(validateErr, &verr) {
		for _, issue := range verr.Issues {
			failColor.Fprintf(out, "  - %s\n", issue)
		}
	} else {
		failColor.Fprintf(out, "  - %v\n", validateErr)
	}

	return fmt.Errorf("%w: %s", ErrInvalidScenario, path)
}
