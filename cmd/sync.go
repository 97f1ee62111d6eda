package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nubip/schedsync/internal/ics"
	"github.com/nubip/schedsync/internal/logging"
	"github.com/nubip/schedsync/internal/server"
	calsync "github.com/nubip/schedsync/internal/sync"
	"github.com/nubip/schedsync/internal/tools/schedule_tools"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <email>...",
		Short: "Bring Google Calendars in line with the lessons of each person",
		Long: `Sync the Google Calendar of every given student or teacher with the
lessons of the semesters running today. Only events tagged with the
configured source are touched. Each person must have run "schedsync auth
login" once.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			syncer, err := a.syncer(ctx)
			if err != nil {
				return err
			}
			return runSync(ctx, cmd.OutOrStdout(), a.logger, syncer, args)
		},
	}
	return cmd
}

// runSync syncs every email in turn. A person without lessons or
// credentials does not stop the others; the last failure is returned.
func runSync(ctx context.Context, w io.Writer, logger *slog.Logger, syncer server.CalendarSyncer, emails []string) error {
	var failed error
	for _, email := range emails {
		result, err := syncer.SyncPerson(ctx, email)
		switch {
		case errors.Is(err, calsync.ErrNoActiveLessons):
			fmt.Fprintf(w, "%s: No active lessons found for user\n", email)
		case err != nil:
			fmt.Fprintf(w, "%s: %v\n", email, err)
			logger.Error("Sync failed", logging.UserHash(email), logging.Err(err))
			failed = err
		default:
			fmt.Fprintf(w, "%s: %s\n", email, result)
		}
	}
	return failed
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear <email>",
		Short: "Delete every schedule event from a person's Google Calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			syncer, err := a.syncer(ctx)
			if err != nil {
				return err
			}
			n, err := syncer.ClearPerson(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d events\n", n)
			return nil
		},
	}
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		output string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "export <email>",
		Short: "Write a person's lessons as an iCalendar file",
		Long: `Compute the calendar events of a person's current lessons, exactly as
"schedsync sync" would write them, and export them as iCalendar. No Google
credentials are needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			syncer, err := a.syncer(ctx)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return runExport(ctx, w, syncer, args[0], name)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&name, "name", "Schedule", "Calendar name written into the file")
	return cmd
}

func runExport(ctx context.Context, w io.Writer, syncer server.CalendarSyncer, email, name string) error {
	_, events, err := syncer.PersonEvents(ctx, email)
	if err != nil {
		return err
	}
	return ics.Write(w, events, ics.Options{ProductID: schedule_tools.ProductID, Name: name})
}
