package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kiro-labs/steerkit/internal/installer"
	"github.com/kiro-labs/steerkit/internal/registry"
	"github.com/kiro-labs/steerkit/internal/userdata"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the installed package",
	Long:  `Unlock and delete ~/.kiro/powers/<package> and drop it from registry.json.`,
	Args:  cobra.NoArgs,
	RunE:  runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	pkg, err := packageName()
	if err != nil {
		return err
	}
	root, err := userdata.GetInstallRoot(pkg)
	if err != nil {
		return fmt.Errorf("resolving install root: %w", err)
	}
	regPath, err := userdata.GetRegistryPath()
	if err != nil {
		return fmt.Errorf("resolving registry path: %w", err)
	}

	out := newPrinter(cmd.OutOrStdout())
	res, err := installer.Uninstall(appFs, root, registry.NewStore(appFs, regPath), pkg)
	if err != nil {
		return err
	}
	switch {
	case res.RegistryErr != nil:
		out.warn("registry not updated: %v", res.RegistryErr)
	case !res.Registered:
		out.warn("%s was not in the registry", pkg)
	}
	out.ok("Removed %s (%d files)", pkg, res.Removed)
	return nil
}
