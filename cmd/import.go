package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nubip/schedsync/internal/importer"
	"github.com/nubip/schedsync/internal/watcher"
)

func newImportCmd() *cobra.Command {
	var opts importer.Options

	cmd := &cobra.Command{
		Use:   "import <workbook.xlsx>",
		Short: "Import a schedule workbook into the lesson database",
		Long: `Read the lessons of a faculty schedule workbook and store them for a semester.

Lessons already stored for the semester keep their identifiers, meeting links
and types; their location is refreshed and new groups are added. Use --reload
to delete the semester's lessons first, and --dry-run to only print what the
workbook contains.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.SemesterID <= 0 && !opts.DryRun {
				return fmt.Errorf("--semester is required unless --dry-run is set")
			}
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			im, err := a.importer(ctx)
			if err != nil {
				return err
			}
			report, err := im.Import(ctx, args[0], opts)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.SemesterID, "semester", 0, "Semester ID the lessons belong to (required unless --dry-run)")
	cmd.Flags().StringVar(&opts.Faculty, "faculty", "", "Faculty name overriding the one written in the sheet")
	cmd.Flags().BoolVar(&opts.Reload, "reload", false, "Delete the semester's lessons before importing")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the extracted lessons without storing anything")
	return cmd
}

func printReport(w io.Writer, r *importer.Report) {
	for _, l := range r.Lessons {
		fmt.Fprintf(w, "%-9s %d %-11s %s | %s | %v\n", l.Day, l.Number, l.Frequency, l.Name, l.Location, l.Groups)
	}
	for _, p := range r.Problems {
		fmt.Fprintf(w, "skipped %s\n", p)
	}
	fmt.Fprintf(w, "%s: %s\n", r.File, r)
}

func newUploadCmd() *cobra.Command {
	var (
		semesterID int64
		faculty    string
	)

	cmd := &cobra.Command{
		Use:   "upload <workbook.xlsx>",
		Short: "Queue a schedule workbook for the watcher",
		Long: `Copy a workbook into the upload directory and queue it. A running
"schedsync watch" imports it on its next pass.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.store.Semester(ctx, semesterID); err != nil {
				return fmt.Errorf("semester %d: %w", semesterID, err)
			}
			f, err := watcher.Upload(ctx, a.store, a.cfg.Schedule.UploadDir, args[0], semesterID, faculty)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s as %s (file %d)\n", args[0], f.Path, f.ID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&semesterID, "semester", 0, "Semester ID")
	cmd.Flags().StringVar(&faculty, "faculty", "", "Faculty name overriding the one written in the sheet")
	_ = cmd.MarkFlagRequired("semester")
	return cmd
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Import uploaded workbooks in the background",
		Long: `Poll for queued schedule workbooks and import them in upload order.
The interval is set with WATCH_INTERVAL (default 30s). When METRICS_ENABLED
is set, metrics and health endpoints are served on METRICS_ADDR.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runWatch(ctx)
		},
	}
	return cmd
}

func runWatch(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	provider, err := a.instrument(ctx)
	if err != nil {
		return err
	}
	im, err := a.importer(ctx)
	if err != nil {
		return err
	}

	metricsServer, err := startMetricsServer(a, provider, nil)
	if err != nil {
		return err
	}
	defer stopMetricsServer(a, metricsServer)

	w := watcher.New(a.store, im, a.cfg.Schedule.WatchInterval, watcher.WithLogger(a.logger))
	return w.Run(ctx)
}
