package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kiro-labs/steerkit/internal/branding"
	"github.com/kiro-labs/steerkit/internal/config"
	"github.com/kiro-labs/steerkit/internal/logging"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	verbosity   int
	sourceFlag  string
	packageFlag string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` builds steering protocol packages from a source tree and installs
them into the Kiro powers directory, a relocatable distribution bundle, or a
live development directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
		logging.SetupLogger(verbosity)
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")
	rootCmd.PersistentFlags().StringVar(&sourceFlag, "source", "", "Source root holding the manifest (default: config source_root or the current directory)")
	rootCmd.PersistentFlags().StringVar(&packageFlag, "package", "", "Override the package name")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil {
		newPrinter(os.Stderr).fail("%v", err)
	}
	return err
}
