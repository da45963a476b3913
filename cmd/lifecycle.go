package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/scenarioctl/scenarioctl/internal/scenario"
)

func init() {
	rootCmd.AddCommand(
		newLifecycleCmd(scenario.OpEnable, "Install a scenario and import its content migrations"),
		newLifecycleCmd(scenario.OpDisable, "Roll back a scenario's content migrations and uninstall it"),
		newLifecycleCmd(scenario.OpReset, "Disable a scenario and run the configured second pass"),
	)
}

var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var confirm = func(title string) (bool, error) {
	ok := false
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	return ok, err
}

type lifecycleOptions struct {
	yes    bool
	strict bool
	json   bool
}

func newLifecycleCmd(op scenario.Operation, short string) *cobra.Command {
	opts := &lifecycleOptions{}
	c := &cobra.Command{
		Use:     string(op) + " <name>",
		Aliases: []string{"scenario:" + string(op)},
		Short:   short,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycle(cmd, op, args[0], opts)
		},
	}
	c.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Skip the confirmation prompt")
	c.Flags().BoolVar(&opts.strict, "strict", false, "Exit non-zero when any step failed")
	c.Flags().BoolVar(&opts.json, "json", false, "Print the run report as JSON")
	return c
}

func runLifecycle(cmd *cobra.Command, op scenario.Operation, name string, opts *lifecycleOptions) error {
	name, err := scenario.MachineName(name)
	if err != nil {
		return err
	}

	if !opts.yes && isTerminal() {
		ok, err := confirm(fmt.Sprintf("%s scenario %s?", titleCase(op), name))
		if err != nil {
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
			return nil
		}
	}

	a, err := newApp(cmd, appOptions{quiet: opts.json})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	report, runErr := a.Run(cmd.Context(), op, name)
	if opts.json && report != nil {
		if err := writeReport(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if opts.strict && report.Failed() {
		return fmt.Errorf("%s %s finished with failures: %w", op, name, report.Err())
	}
	return nil
}

type reportJSON struct {
	*scenario.Report
	Failures []string `json:"failures,omitempty"`
}

func writeReport(w io.Writer, report *scenario.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reportJSON{Report: report, Failures: report.FailureMessages()})
}

func titleCase(op scenario.Operation) string {
	s := string(op)
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
