package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/ethoimager/internal/version"
)

func NewVersionCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(deps.Out, version.Full())
		},
	}
}
