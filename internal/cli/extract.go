package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/ethoimager/internal/criteria"
	"github.com/kdimtricp/ethoimager/internal/imager"
)

type extractOptions struct {
	path       string
	ids        []int64
	times      []int64
	connective string
	annotate   bool
	video      bool
	fps        int
	workers    int
	resume     bool
}

func NewExtractCmd(deps *Dependencies) *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract frames matching --id and/or --t",
		Long: `Extract writes the matching frames next to the archive and prints one
path per line. Without --id or --t nothing is queried and the frames
already on disk are printed.`,
		Example: `  ethoimager extract --path ETHOSCOPE_001.db --id 1,2 --annotate
  ethoimager extract --path ETHOSCOPE_001.db --t 500 --id 3 --connective AND
  ethoimager extract --path ETHOSCOPE_001.db --video --fps 25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := imager.Request{
				Connective: criteria.Connective(opts.connective),
				Annotate:   opts.annotate,
				Video:      opts.video,
				FPS:        opts.fps,
				Workers:    opts.workers,
				Resume:     opts.resume,
			}
			if cmd.Flags().Changed("id") {
				req.IDs = nonNil(opts.ids)
			}
			if cmd.Flags().Changed("t") {
				req.Times = nonNil(opts.times)
			}

			im, err := deps.App.Open(cmd.Context(), opts.path)
			if err != nil {
				return err
			}

			files, err := im.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			return printLines(deps, files)
		},
	}

	cmd.Flags().StringVarP(&opts.path, "path", "p", "", "archive database file")
	cmd.Flags().Int64SliceVar(&opts.ids, "id", nil, "frame ids (comma separated or repeated)")
	cmd.Flags().Int64SliceVar(&opts.times, "t", nil, "frame time offsets in ms (comma separated or repeated)")
	cmd.Flags().StringVar(&opts.connective, "connective", string(criteria.Or), "combine --id and --t with AND or OR")
	cmd.Flags().BoolVar(&opts.annotate, "annotate", false, "burn the capture time into each frame")
	cmd.Flags().BoolVar(&opts.video, "video", false, "assemble the labeled frames into an mp4")
	cmd.Flags().IntVar(&opts.fps, "fps", 0, "video frame rate (default from config)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "parallel annotation jobs (default from config)")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "annotate raw frames left by an earlier run")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

// nonNil keeps a flag that was given but parsed to nothing distinct from an
// absent one.
func nonNil(values []int64) []int64 {
	if values == nil {
		return []int64{}
	}
	return values
}

func printLines(deps *Dependencies, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(deps.Out, line); err != nil {
			return err
		}
	}
	return nil
}
