package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the labeling and video tools are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			missing := deps.App.CheckTools()
			for _, err := range missing {
				fmt.Fprintf(deps.Out, "missing: %v\n", err)
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d required tool(s) not found", len(missing))
			}

			fmt.Fprintln(deps.Out, "all tools found")
			return nil
		},
	}
}
