package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nubip/schedsync/internal/model"
	"github.com/nubip/schedsync/internal/store"
)

func newLessonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lessons",
		Short: "List and edit stored lessons",
	}
	cmd.AddCommand(newLessonsListCmd())
	cmd.AddCommand(newSetMeetingURLCmd())
	cmd.AddCommand(newSetTypeCmd())
	return cmd
}

func newLessonsListCmd() *cobra.Command {
	var (
		semesterID int64
		groups     []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List lessons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var f store.LessonFilter
			if semesterID > 0 {
				f.SemesterIDs = []int64{semesterID}
			}
			if len(groups) > 0 {
				f.GroupNames = groups
			}
			return listLessons(ctx, cmd.OutOrStdout(), a.store, f)
		},
	}

	cmd.Flags().Int64Var(&semesterID, "semester", 0, "Only lessons of this semester")
	cmd.Flags().StringSliceVar(&groups, "group", nil, "Only lessons of these groups (repeatable or comma-separated)")
	return cmd
}

func listLessons(ctx context.Context, w io.Writer, st store.Store, f store.LessonFilter) error {
	lessons, err := st.Lessons(ctx, f)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDAY\tNO\tWEEKS\tSUBJECT\tTYPE\tLOCATION\tGROUPS")
	for _, l := range lessons {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%v\n",
			l.ID, l.DayOfWeek, l.LessonNumber, l.Frequency, l.SubjectTitle, l.Type, l.Location, l.Groups)
	}
	return tw.Flush()
}

func newSetMeetingURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-meeting-url <url> <lesson-id>...",
		Short: "Set the online meeting link of lessons",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := model.ValidateMeetingURL(args[0]); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.store.SetMeetingURL(ctx, args[1:], args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d lessons\n", n)
			return nil
		},
	}
}

func newSetTypeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-type <lecture|practice|unknown> <lesson-id>...",
		Short: "Mark lessons as lectures or practice",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lessonType, err := model.ParseLessonType(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.store.SetLessonType(ctx, args[1:], lessonType)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d lessons\n", n)
			return nil
		},
	}
}
