package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/javajoker/licensing-portal/internal/services"
	"github.com/javajoker/licensing-portal/internal/store"
	"github.com/javajoker/licensing-portal/internal/workflow"
)

// timelineOutput renders a timeline as a table in text mode.
type timelineOutput struct {
	*services.Timeline
}

func (t timelineOutput) RenderText(w io.Writer) error {
	app := t.Application
	fmt.Fprintf(w, "Application %s\n", app.UID)
	fmt.Fprintf(w, "  status:   %s (revision %d)\n", app.Status, app.Revision)
	fmt.Fprintf(w, "  officer:  %s\n", app.OfficerIdentity)
	fmt.Fprintf(w, "  dealer:   %s\n\n", app.DealerIdentity)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REV\tTIME\tACTION\tFROM\tTO\tACTOR")
	for _, ev := range t.Events {
		from := "-"
		if ev.FromStatus != nil {
			from = string(*ev.FromStatus)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s (%s)\n",
			ev.Revision, ev.CreatedAt.UTC().Format("2006-01-02 15:04:05"), ev.Action, from, ev.ToStatus, ev.ActorIdentity, ev.ActorRole)
	}
	return tw.Flush()
}

func NewTimelineCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <application-uid>",
		Short: "Print the reconciled history of one application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			_, db, closeDB, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			timelines := services.NewTimelineService(store.NewGormStore(db), nil, nil)
			timeline, err := timelines.GetTimeline(cmd.Context(), args[0])
			if err != nil {
				kind := workflow.KindOf(err)
				if outErr := formatter.Error(string(kind), err.Error(), nil); outErr != nil {
					return outErr
				}
				if kind == workflow.KindIntegrity {
					return WrapExitError(ExitFailure, "timeline failed reconciliation", err)
				}
				return WrapExitError(ExitCommandError, "cannot read timeline", err)
			}

			return formatter.Success(timelineOutput{timeline})
		},
	}
}
