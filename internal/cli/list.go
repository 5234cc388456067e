package cli

import (
	"github.com/spf13/cobra"
)

func NewListCmd(deps *Dependencies) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List frames already extracted from an archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			im, err := deps.App.Open(cmd.Context(), path)
			if err != nil {
				return err
			}

			files, err := im.List()
			if err != nil {
				return err
			}

			return printLines(deps, files)
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "archive database file")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}
