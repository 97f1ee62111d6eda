package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nubip/schedsync/internal/model"
	"github.com/nubip/schedsync/internal/store"
)

func newSemesterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semester",
		Short: "Manage semesters",
	}
	cmd.AddCommand(newSemesterAddCmd())
	cmd.AddCommand(newSemesterListCmd())
	return cmd
}

func newSemesterAddCmd() *cobra.Command {
	var start, end, weekType string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a semester",
		Long: `Add a semester. --week-type tells whether the week containing --start
is a numerator or a denominator week.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sem, err := parseSemester(start, end, weekType)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.CreateSemester(ctx, sem); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created semester %d\n", sem.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&weekType, "week-type", "numerator", "Parity of the first week: numerator or denominator")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func parseSemester(start, end, weekType string) (*model.Semester, error) {
	startDate, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return nil, fmt.Errorf("invalid --start: %w", err)
	}
	endDate, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return nil, fmt.Errorf("invalid --end: %w", err)
	}
	sem := &model.Semester{StartDate: startDate, EndDate: endDate}
	switch weekType {
	case "numerator":
		sem.WeekType = model.Numerator
	case "denominator":
		sem.WeekType = model.Denominator
	default:
		return nil, fmt.Errorf("--week-type must be numerator or denominator, got %q", weekType)
	}
	if err := sem.Validate(); err != nil {
		return nil, err
	}
	return sem, nil
}

func newSemesterListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List semesters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			return listSemesters(ctx, cmd.OutOrStdout(), a.store)
		},
	}
}

func listSemesters(ctx context.Context, w io.Writer, st store.Store) error {
	semesters, err := st.Semesters(ctx)
	if err != nil {
		return err
	}
	for _, s := range semesters {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ID, s.StartDate.Format(time.DateOnly), s.EndDate.Format(time.DateOnly), s.WeekType)
	}
	return nil
}
