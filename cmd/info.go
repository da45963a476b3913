package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/scenarioctl/scenarioctl/internal/notify"
	"github.com/scenarioctl/scenarioctl/internal/scenario"
)

var infoJSON bool

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Print the descriptor as JSON")
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:     "info <name>",
	Aliases: []string{"scenario:info"},
	Short:   "Show a scenario's descriptor, screenshot and migration status",
	Args:    cobra.ExactArgs(1),
	RunE:    runInfo,
}

type migrationStatus struct {
	ID       string `json:"id"`
	Label    string `json:"label,omitempty"`
	Path     string `json:"path,omitempty"`
	Imported bool   `json:"imported"`
}

type scenarioInfo struct {
	scenario.Descriptor
	State           string            `json:"state"`
	MigrationStatus []migrationStatus `json:"migration_status"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{execution: notify.ContextSilent, local: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := cmd.Context()
	desc, err := a.descriptors.Descriptor(ctx, args[0])
	if err != nil {
		return err
	}
	state, err := a.orchestrator.State(ctx, desc.Name)
	if err != nil {
		return err
	}

	info := scenarioInfo{Descriptor: desc, State: state.String()}
	for _, id := range desc.Migrations {
		ms := migrationStatus{ID: id}
		if m, err := a.migrations.Lookup(id); err == nil {
			ms.Label = m.Label()
			ms.Path = m.Path()
		}
		if ms.Imported, err = a.migrations.Imported(ctx, id); err != nil {
			return err
		}
		info.MigrationStatus = append(info.MigrationStatus, ms)
	}

	out := cmd.OutOrStdout()
	if infoJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	bold := color.New(color.Bold).SprintFunc()
	_, _ = fmt.Fprintf(out, "%s %s\n", bold("Scenario:"), desc.Name)
	if desc.Label != "" {
		_, _ = fmt.Fprintf(out, "%s %s\n", bold("Label:"), desc.Label)
	}
	if desc.Description != "" {
		_, _ = fmt.Fprintf(out, "%s %s\n", bold("Description:"), desc.Description)
	}
	_, _ = fmt.Fprintf(out, "%s %s\n", bold("State:"), info.State)
	if desc.Theme != "" {
		_, _ = fmt.Fprintf(out, "%s %s\n", bold("Theme:"), desc.Theme)
	}
	if desc.Screenshot != "" {
		_, _ = fmt.Fprintf(out, "%s %s\n", bold("Screenshot:"), desc.Screenshot)
	}
	_, _ = fmt.Fprintf(out, "%s\n", bold("Migrations:"))
	for _, ms := range info.MigrationStatus {
		mark := color.YellowString("pending ")
		if ms.Imported {
			mark = color.GreenString("imported")
		}
		label := ms.ID
		if ms.Label != "" && ms.Label != ms.ID {
			label = fmt.Sprintf("%s (%s)", ms.ID, ms.Label)
		}
		_, _ = fmt.Fprintf(out, "  %s  %s\n", mark, label)
		if ms.Path != "" && verboseFlag {
			_, _ = fmt.Fprintf(out, "            %s\n", color.HiBlackString(ms.Path))
		}
	}
	return nil
}
