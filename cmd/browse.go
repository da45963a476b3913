package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/scenarioctl/scenarioctl/internal/notify"
	"github.com/scenarioctl/scenarioctl/internal/tui"
)

func init() {
	rootCmd.AddCommand(browseCmd)
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse scenarios and enable, disable or reset them interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{execution: notify.ContextEmbedded})
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		p := tea.NewProgram(tui.New(cmd.Context(), a),
			tea.WithInput(cmd.InOrStdin()),
			tea.WithOutput(cmd.OutOrStdout()))
		_, err = p.Run()
		return err
	},
}
