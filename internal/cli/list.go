package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kiro-labs/steerkit/internal/frontmatter"
	"github.com/kiro-labs/steerkit/internal/registry"
	"github.com/kiro-labs/steerkit/internal/userdata"
)

var (
	listJSON  bool
	listFiles bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List packages recorded in the registry",
	Long: `List every package in ~/.kiro/powers/registry.json. With --files, list the
installed files of one package along with their steering inclusion mode.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listFiles, "files", false, "List installed files of the package")
	rootCmd.AddCommand(listCmd)
}

// listEntry is one registry package for display.
type listEntry struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Installed   bool   `json:"installed"`
	InstalledAt string `json:"installedAt"`
	InstallPath string `json:"installPath"`
	Source      string `json:"source"`
}

// fileEntry is one installed file for display.
type fileEntry struct {
	Path      string `json:"path"`
	Title     string `json:"title,omitempty"`
	Inclusion string `json:"inclusion,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	if listFiles {
		return runListFiles(cmd)
	}

	regPath, err := userdata.GetRegistryPath()
	if err != nil {
		return fmt.Errorf("resolving registry path: %w", err)
	}
	store := registry.NewStore(appFs, regPath)
	if !store.Exists() {
		fmt.Fprintln(cmd.OutOrStdout(), "No packages installed yet.")
		return nil
	}
	doc, err := store.Load()
	if err != nil {
		return err
	}

	var entries []listEntry
	for _, name := range doc.PackageNames() {
		p, _, err := doc.Package(name)
		if err != nil {
			return err
		}
		entries = append(entries, listEntry{
			Name:        name,
			DisplayName: p.DisplayName,
			Installed:   p.Installed,
			InstalledAt: p.InstalledAt.String(),
			InstallPath: p.InstallPath,
			Source:      p.Source.ID,
		})
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No packages installed yet.")
		return nil
	}

	if listJSON {
		return printJSON(cmd, entries)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tDISPLAY NAME\tINSTALLED\tPATH")
	for _, e := range entries {
		at := e.InstalledAt
		if !e.Installed || at == "" {
			at = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.DisplayName, at, e.InstallPath)
	}
	return w.Flush()
}

func runListFiles(cmd *cobra.Command) error {
	pkg, err := packageName()
	if err != nil {
		return err
	}
	root, err := userdata.GetInstallRoot(pkg)
	if err != nil {
		return fmt.Errorf("resolving install root: %w", err)
	}

	var entries []fileEntry
	err = afero.Walk(appFs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		e := fileEntry{Path: filepath.ToSlash(rel)}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			meta, _ := frontmatter.Describe(appFs, path)
			e.Title = meta.Title
			e.Inclusion = meta.Inclusion
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is not installed.\n", pkg)
			return nil
		}
		return fmt.Errorf("listing %s: %w", root, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	if listJSON {
		return printJSON(cmd, entries)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FILE\tINCLUSION\tTITLE")
	for _, e := range entries {
		inclusion, title := e.Inclusion, e.Title
		if inclusion == "" {
			inclusion = "-"
		}
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Path, inclusion, title)
	}
	return w.Flush()
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
