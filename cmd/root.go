package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/scenarioctl/scenarioctl/internal/cache"
)

var (
	environmentFlag string
	aliasFlag       string
	verboseFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "scenarioctl",
	Short: "Enable, disable and reset demo content scenarios",
	Long: `scenarioctl installs scenario modules and themes, imports their content
migrations in declared order and rolls them back again.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&environmentFlag, "environment", "e", "", "Environment from scenarioctl.toml (default: default_environment)")
	rootCmd.PersistentFlags().StringVar(&aliasFlag, "alias", cache.SelfAlias, "Alias whose caches are rebuilt after enabling (@self is this installation)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
