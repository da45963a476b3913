package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scenarioctl/scenarioctl/internal/notify"
	"github.com/scenarioctl/scenarioctl/internal/cache"
)

func init() {
	rootCmd.AddCommand(cacheRebuildCmd)
}

var cacheRebuildCmd = &cobra.Command{
	Use:     cache.RebuildCommand,
	Aliases: []string{"cr"},
	Short:   "Flush descriptor and migration definition caches",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{execution: notify.ContextSilent, local: true})
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if err := cache.NewLocal(a.descriptors, a.migrations).Invalidate(cmd.Context()); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache rebuild complete.")
		return nil
	},
}
