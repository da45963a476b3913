package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at release time:
//
//	go build -ldflags "-X github.com/scenarioctl/scenarioctl/cmd.version=v1.2.0"
var version string

var versionJSON bool

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print build information as JSON")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scenarioctl version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := readBuildInfo()
		if versionJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "scenarioctl %s (%s)\n", info, info.GoVersion)
		return nil
	},
}

type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	BuiltAt   string `json:"built_at,omitempty"`
	GoVersion string `json:"go_version"`
}

func (b buildInfo) String() string {
	s := b.Version
	if b.Commit != "" {
		s += " (" + b.Commit
		if b.Modified {
			s += " modified"
		}
		s += ")"
	}
	if b.BuiltAt != "" {
		s += " built " + b.BuiltAt
	}
	return s
}

// readBuildInfo prefers the linker-injected version, then the module
// version, then "dev". VCS details come from the embedded build settings.
func readBuildInfo() buildInfo {
	b := buildInfo{Version: version, GoVersion: runtime.Version()}

	info, ok := debug.ReadBuildInfo()
	if ok && b.Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	if b.Version == "" {
		b.Version = "dev"
	}
	if !ok {
		return b
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			b.Commit = setting.Value
			if len(b.Commit) > 7 {
				b.Commit = b.Commit[:7]
			}
		case "vcs.modified":
			b.Modified = setting.Value == "true"
		case "vcs.time":
			b.BuiltAt = setting.Value
		}
	}
	return b
}

func getVersion() string {
	return readBuildInfo().String()
}
