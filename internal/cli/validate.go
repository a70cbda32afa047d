package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kiro-labs/steerkit/internal/manifest"
	"github.com/kiro-labs/steerkit/internal/placeholders"
)

var validateCmd = &cobra.Command{
	Use:   "validate [manifest]",
	Short: "Check the manifest and its mappings for every target",
	Long: `Validate the manifest against its schema, then resolve the mappings for every
target and report duplicate destinations, bad patterns and missing sources.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	root, err := sourceRoot()
	if err != nil {
		return err
	}
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else if path, err = manifestPath(root); err != nil {
		return err
	}

	out := newPrinter(cmd.OutOrStdout())
	out.line("Manifest validation: %s", path)

	result, err := manifest.ValidateFile(appFs, path)
	if err != nil {
		out.item(glyphFail, "%v", err)
		return fmt.Errorf("manifest validation failed: %w", err)
	}
	if !result.Valid {
		out.item(glyphFail, "%d validation issue(s):", len(result.Issues))
		for _, issue := range result.Issues {
			if issue.Path != "" {
				out.line("    - %s: %s", issue.Path, issue.Message)
			} else {
				out.line("    - %s", issue.Message)
			}
		}
		return fmt.Errorf("manifest %s has %d validation issue(s)", path, len(result.Issues))
	}

	m, err := manifest.Load(appFs, path)
	if err != nil {
		reportJoined(out, err)
		return fmt.Errorf("manifest %s is invalid", path)
	}
	out.item(glyphOK, "Valid manifest: %s (v%s)", m.Package.Name, m.Package.Version)

	warnings, err := m.Verify(appFs, root)
	for _, w := range warnings {
		out.item(glyphWarn, "%s", w)
	}
	if err != nil {
		reportJoined(out, err)
		return fmt.Errorf("manifest %s has conflicting mappings", path)
	}
	out.item(glyphOK, "%d mapping rules resolve cleanly", len(m.Mappings))

	rules, _, err := placeholders.Standard(m, appFs, root)
	if err != nil {
		return fmt.Errorf("building placeholders: %w", err)
	}
	unknown, err := placeholders.UnknownTokens(m, appFs, root, rules)
	if err != nil {
		return err
	}
	for _, u := range unknown {
		out.item(glyphWarn, "%s", u)
	}
	return nil
}

// reportJoined prints each line of a joined error on its own line.
func reportJoined(out *printer, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		out.item(glyphFail, "%s", line)
	}
}
