package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fsbtools",
	Short: "Extract ATRAC9 streams from FSB5 sound banks",
	Long: `fsbtools - Unpacks FSB5 sound banks holding ATRAC9 audio into standalone
.at9 files. The compressed audio is copied as is; every output file gets a
synthesized RIFF/WAVE header describing its ATRAC9 configuration.

Features:
  - FSB5 versions 0 and 1, with or without a sample name table
  - Multi-stream samples split into one .at9 file per channel group
  - Parallel extraction of several sound banks
  - Header read-back of produced .at9 files

Commands:
  - extract: Write the ATRAC9 samples of FSB5 files as .at9 files
  - inspect: Show container and sample metadata of an FSB5 file
  - probe: Show the header of .at9 files`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func setupLogging() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
