package cli

import (
	"github.com/spf13/cobra"
)

func NewCleanCmd(deps *Dependencies) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove every extracted frame and video of an archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			im, err := deps.App.Open(cmd.Context(), path)
			if err != nil {
				return err
			}

			if err := im.Reset(); err != nil {
				return err
			}

			deps.App.Logger.Info("snapshot directory cleaned", "archive", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "archive database file")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}
