package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/javajoker/licensing-portal/internal/workflow"
)

type tableOutput struct {
	InitialStatus string          `json:"initial_status"`
	Transitions   []workflow.Rule `json:"transitions"`
}

func (t tableOutput) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Submission creates the application in %s\n\n", t.InitialStatus)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tACTION\tTO\tROLES\tASSIGNEE ONLY")
	for _, r := range t.Transitions {
		roles := make([]string, 0, len(r.Roles))
		for _, role := range r.Roles {
			roles = append(roles, string(role))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", r.From, r.Action, r.To, strings.Join(roles, ","), r.AssigneeOnly)
	}
	return tw.Flush()
}

func NewTableCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the transition table the engine enforces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newFormatter(rootOpts, cmd).Success(tableOutput{
				InitialStatus: string(workflow.InitialStatus),
				Transitions:   workflow.DefaultTable().Rules(),
			})
		},
	}
}
