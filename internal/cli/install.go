package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/installer"
	"github.com/kiro-labs/steerkit/internal/registry"
	"github.com/kiro-labs/steerkit/internal/userdata"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the package into the powers directory",
	Long: `Build the package for the local-install target into ~/.kiro/powers/<package>,
lock every installed file read-only and record the package in registry.json.
A registry failure is reported but does not fail the install.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	proj, err := loadProject()
	if err != nil {
		return err
	}
	bctx, err := proj.Context(build.LocalInstall)
	if err != nil {
		return err
	}
	regPath, err := userdata.GetRegistryPath()
	if err != nil {
		return fmt.Errorf("resolving registry path: %w", err)
	}

	out := newPrinter(cmd.OutOrStdout())
	in, err := installer.New(installer.Options{
		Fs:       appFs,
		Manifest: proj.Manifest,
		Rules:    proj.Rules,
		Context:  bctx,
		Registry: registry.NewStore(appFs, regPath),
		Progress: progressPrinter(out),
	})
	if err != nil {
		return err
	}

	out.line("Installing %s into %s...", bctx.PackageName, bctx.DestRoot)
	report, err := in.Run(cmd.Context())
	printReport(out, report, proj.Warnings)
	if err != nil {
		return fmt.Errorf("install failed: %w", err)
	}
	if report.RegistryErr != nil {
		out.warn("Installed %s, but the registry was not updated.", bctx.PackageName)
		out.line("  %s", report.Fallback)
		return nil
	}
	out.ok("Installed %s (%d files).", bctx.PackageName, len(report.Written))
	return nil
}

// progressPrinter prints one line per finished installer phase.
func progressPrinter(out *printer) installer.ProgressFunc {
	return func(phase installer.Phase, msg string) {
		if !phase.Terminal() {
			out.item(glyphOK, "%s: %s", phase, msg)
			return
		}
		if phase == installer.PhaseFailed {
			out.item(glyphFail, "%s", msg)
		}
	}
}

func printReport(out *printer, report *installer.Report, extra []string) {
	if report == nil {
		return
	}
	for _, s := range report.Skipped {
		out.item(glyphWarn, "skipped %s (source missing)", s)
	}
	if len(report.Inclusions) > 0 {
		modes := make([]string, 0, len(report.Inclusions))
		for mode := range report.Inclusions {
			modes = append(modes, mode)
		}
		sort.Strings(modes)
		for _, mode := range modes {
			out.dim("  steering %s: %d", mode, report.Inclusions[mode])
		}
	}
	warnings := append(append([]string{}, extra...), report.Warnings...)
	if len(warnings) > 0 {
		out.line("")
		for _, w := range warnings {
			out.warn("%s", w)
		}
	}
}
