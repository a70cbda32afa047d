package cli

import (
	"github.com/spf13/cobra"

	"github.com/kiro-labs/steerkit/internal/userdata"
)

var doctorFix bool

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Relock installed files that are writable")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the installed package",
	Long: `Check that the package is installed, that every installed file is read-only and
that registry.json records it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, err := packageName()
		if err != nil {
			return err
		}
		return userdata.CheckInstall(cmd.OutOrStdout(), appFs, pkg, doctorFix)
	},
}
