package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/ethoimager/internal/app"
	"github.com/kdimtricp/ethoimager/internal/config"
	"github.com/kdimtricp/ethoimager/internal/version"
)

// Dependencies are filled in by the root command before any subcommand runs.
// Tests may preset App to skip configuration loading.
type Dependencies struct {
	App    *app.App
	Out    io.Writer
	ErrOut io.Writer

	configPath string
	verbose    bool
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.ErrOut == nil {
		deps.ErrOut = os.Stderr
	}

	rootCmd := &cobra.Command{
		Use:   "ethoimager",
		Short: "Extract, label and assemble frames from ethoscope archives",
		Long: `ethoimager pulls image snapshots out of an ethoscope SQLite archive,
burns the capture time into each frame with ImageMagick and optionally
stitches the frames into an mp4 with ffmpeg.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return deps.load()
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.SetOut(deps.Out)
	rootCmd.SetErr(deps.ErrOut)

	rootCmd.PersistentFlags().StringVar(&deps.configPath, "config", "", "config file (default ./ethoimager.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&deps.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(NewExtractCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewCleanCmd(deps))
	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))
	rootCmd.AddCommand(NewVersionCmd(deps))

	return rootCmd
}

func (d *Dependencies) load() error {
	if d.App != nil {
		return nil
	}

	cfg, err := config.LoadConfig(d.configPath)
	if err != nil {
		return err
	}
	if d.verbose {
		cfg.Logging.Level = "debug"
	}

	d.App = app.New(cfg, cfg.Logging.NewLogger(d.ErrOut))
	return nil
}
