package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kiro-labs/steerkit/internal/build"
	"github.com/kiro-labs/steerkit/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild into the dev-watch directory on every change",
	Long: `Run one dev-watch build, then watch the source tree and rebuild only the files
whose sources changed. A change to the manifest or to a section source
triggers a full rebuild. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	proj, err := loadProject()
	if err != nil {
		return err
	}
	bctx, err := proj.Context(build.DevWatch)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newPrinter(cmd.OutOrStdout())
	out.line("Watching %s, writing to %s", proj.SourceRoot, bctx.DestRoot)
	return watch.Run(ctx, watch.Options{
		Fs:           appFs,
		ManifestPath: proj.ManifestPath,
		SourceRoot:   proj.SourceRoot,
		DestRoot:     bctx.DestRoot,
		PackageName:  bctx.PackageName,
		Report:       watchReporter(out),
	})
}

func watchReporter(out *printer) func(watch.Result) {
	return func(r watch.Result) {
		if r.Err != nil {
			out.fail("rebuild failed: %v", r.Err)
			return
		}
		switch {
		case r.Full:
			out.ok("full build: %d files", len(r.Written))
		case len(r.Written)+len(r.Removed) > 0:
			for _, w := range r.Written {
				out.item(glyphOK, "%s", w)
			}
			for _, rm := range r.Removed {
				out.item(glyphOK, "removed %s", rm)
			}
		}
		for _, w := range r.Warnings {
			out.warn("%s", w)
		}
	}
}
