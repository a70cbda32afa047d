package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/installer"
)

var (
	buildTarget string
	buildNoLock bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the package for a target without registering it",
	Long: `Purge and rebuild the output root of a target. The distribution target writes a
relocatable bundle into dist/<package>; dev-watch writes a single build into
.dev/<package>. Neither touches the registry.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	names := make([]string, 0, len(build.AllTargets()))
	for _, t := range build.AllTargets() {
		names = append(names, t.String())
	}
	buildCmd.Flags().StringVarP(&buildTarget, "target", "t", build.Distribution.String(), "Build target ("+strings.Join(names, ", ")+")")
	buildCmd.Flags().BoolVar(&buildNoLock, "no-lock", false, "Leave the output writable")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	target, ok := build.ParseTarget(buildTarget)
	if !ok {
		return fmt.Errorf("unknown target %q", buildTarget)
	}
	if target == build.LocalInstall {
		return fmt.Errorf("use '%s install' for the local-install target", rootCmd.Name())
	}

	proj, err := loadProject()
	if err != nil {
		return err
	}
	bctx, err := proj.Context(target)
	if err != nil {
		return err
	}

	out := newPrinter(cmd.OutOrStdout())
	in, err := installer.New(installer.Options{
		Fs:       appFs,
		Manifest: proj.Manifest,
		Rules:    proj.Rules,
		Context:  bctx,
		SkipLock: buildNoLock || target == build.Distribution,
		Progress: progressPrinter(out),
	})
	if err != nil {
		return err
	}

	out.line("Building %s (%s) into %s...", bctx.PackageName, target, bctx.DestRoot)
	report, err := in.Run(cmd.Context())
	printReport(out, report, proj.Warnings)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	out.ok("Built %d files.", len(report.Written))
	return nil
}
