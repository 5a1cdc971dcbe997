package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/javajoker/licensing-portal/internal/services"
	"github.com/javajoker/licensing-portal/internal/store"
)

type verifyOutput struct {
	*services.IntegrityReport
}

func (v verifyOutput) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Checked %d applications, %d failed reconciliation\n", v.Checked, len(v.Failures))
	for _, f := range v.Failures {
		fmt.Fprintf(w, "  %s: %s\n", f.ApplicationUID, f.Reason)
	}
	return nil
}

func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Reconcile every application with its event chain",
		Long: `Reads every application and checks that its events form a contiguous
chain ending at the stored status. Exits with status 1 when any
application fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			if concurrency < 1 {
				return NewExitError(ExitCommandError, "--concurrency must be at least 1")
			}

			_, db, closeDB, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			timelines := services.NewTimelineService(store.NewGormStore(db), nil, nil)
			report, err := timelines.VerifyIntegrity(cmd.Context(), concurrency)
			if err != nil {
				return WrapExitError(ExitCommandError, "integrity scan aborted", err)
			}

			if err := formatter.Success(verifyOutput{report}); err != nil {
				return err
			}
			if len(report.Failures) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d applications failed reconciliation", len(report.Failures)))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "timelines checked in parallel")
	return cmd
}
