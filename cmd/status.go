package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/scenarioctl/scenarioctl/internal/notify"
)

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the scenario list as JSON")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List scenarios and whether they are enabled",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

type statusEntry struct {
	Name       string `json:"name"`
	Label      string `json:"label,omitempty"`
	State      string `json:"state"`
	Theme      string `json:"theme,omitempty"`
	Migrations int    `json:"migrations"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{execution: notify.ContextSilent, local: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	entries, listErr := a.List(cmd.Context())
	if listErr != nil && entries == nil {
		return listErr
	}

	rows := make([]statusEntry, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, statusEntry{
			Name:       e.Descriptor.Name,
			Label:      e.Descriptor.Label,
			State:      e.State.String(),
			Theme:      e.Descriptor.Theme,
			Migrations: len(e.Descriptor.Migrations),
		})
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return listErr
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintf(out, "No scenarios found in %s\n", a.cfg.ScenariosDir)
		return listErr
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "LABEL", "STATE", "THEME", "MIGRATIONS")
	for _, r := range rows {
		t.Row(r.Name, r.Label, r.State, r.Theme, strconv.Itoa(r.Migrations))
	}
	_, _ = fmt.Fprintln(out, t.Render())

	if verboseFlag {
		if err := printExtensions(cmd, a); err != nil {
			return err
		}
	}
	return listErr
}

// printExtensions lists every installed module and theme as recorded in the
// registry, including themes that no scenario owns anymore.
func printExtensions(cmd *cobra.Command, a *app) error {
	exts, err := a.registry.Extensions(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(exts) == 0 {
		_, _ = fmt.Fprintln(out, "No extensions installed.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("EXTENSION", "KIND", "INSTALLED")
	for _, e := range exts {
		t.Row(e.Name, string(e.Kind), e.InstalledAt.Local().Format(time.DateTime))
	}
	_, _ = fmt.Fprintln(out, t.Render())
	return nil
}
