package cmd

import (
	"fmt"
	"io"

	"github.com/scenarioctl/scenarioctl/internal/config"
)

// printConfigNotFound prints a hint when scenarioctl.toml is not found
func printConfigNotFound(w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s not found, using defaults. Create one that looks like:

scenarios_dir = "scenarios"
themes_dir = "themes"

[environments.local]
database_url = "sqlite://.scenarioctl/site.db"
`, config.FileName)
}
