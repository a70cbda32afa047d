package cli

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/userdata"
)

var (
	previewWidth  int
	previewPlain  bool
	previewTarget string
)

var previewCmd = &cobra.Command{
	Use:   "preview <path>",
	Short: "Render an installed markdown file",
	Long: `Render a file from the package output, as Kiro will read it, with every
placeholder already substituted. The path is relative to the output root of
the chosen target (local-install by default).`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().IntVar(&previewWidth, "width", 0, "Wrap at this many columns (default: renderer default)")
	previewCmd.Flags().BoolVar(&previewPlain, "plain", false, "Print the raw file without rendering")
	previewCmd.Flags().StringVarP(&previewTarget, "target", "t", build.LocalInstall.String(), "Target whose output to read")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	target, ok := build.ParseTarget(previewTarget)
	if !ok {
		return fmt.Errorf("unknown target %q", previewTarget)
	}
	root, err := sourceRoot()
	if err != nil {
		return err
	}
	pkg, err := packageName()
	if err != nil {
		return err
	}
	destRoot, err := userdata.DestRootFor(target, root, pkg)
	if err != nil {
		return err
	}

	path := filepath.Join(destRoot, filepath.FromSlash(args[0]))
	data, err := afero.ReadFile(appFs, path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if previewPlain || filepath.Ext(path) != ".md" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	rendered, err := renderMarkdown(string(data), isTerminal(cmd.OutOrStdout()), previewWidth)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
	return err
}

func renderMarkdown(content string, tty bool, width int) (string, error) {
	var options []glamour.TermRendererOption
	if tty {
		options = append(options, glamour.WithAutoStyle())
	} else {
		options = append(options, glamour.WithStandardStyle("notty"))
	}
	if width > 0 {
		options = append(options, glamour.WithWordWrap(width))
	}
	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := renderer.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
