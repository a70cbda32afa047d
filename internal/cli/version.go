package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/kiro-labs/steerkit/internal/branding"
	"github.com/kiro-labs/steerkit/internal/registry"
)

var (
	versionShort bool
	versionJSON  bool
)

// versionInfo is what `version --json` prints.
type versionInfo struct {
	Version        string `json:"version"`
	Commit         string `json:"commit"`
	Date           string `json:"date"`
	GoVersion      string `json:"goVersion"`
	RegistryFormat string `json:"registryFormat"`
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print the version number only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print build details as JSON")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the build version and the registry format it writes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersion()
		switch {
		case versionShort:
			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.Version)
			return err
		case versionJSON:
			return printJSON(cmd, info)
		}
		out := newPrinter(cmd.OutOrStdout())
		out.line("%s %s", branding.CLIName(), info.Version)
		out.dim("  commit %s, built %s, %s", info.Commit, info.Date, info.GoVersion)
		out.dim("  writes registry format %s", info.RegistryFormat)
		return nil
	},
}

// currentVersion reports the linker-injected build values. A binary built
// with `go install` has none, so the module version and VCS revision are
// taken from the embedded build info instead.
func currentVersion() versionInfo {
	info := versionInfo{
		Version:        buildVersion,
		Commit:         buildCommit,
		Date:           buildDate,
		GoVersion:      runtime.Version(),
		RegistryFormat: registry.FormatVersion,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if (info.Version == "" || info.Version == "dev") && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" || info.Commit == "unknown" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "" || info.Date == "unknown" {
				info.Date = s.Value
			}
		}
	}
	return info
}
