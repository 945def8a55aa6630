package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/drgolem/fsbtools/pkg/at9"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <file.at9>...",
	Short: "Show the header of .at9 files",
	Long: `Read back the RIFF header of .at9 files and report the stream format and
the decoded ATRAC9 config.

Examples:
  # Check a file written by extract
  fsbtools probe music_intro.at9

  # Check every stream of a split sample
  fsbtools probe music_intro/*.at9`,
	Args: cobra.MinimumNArgs(1),
	Run:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) {
	failed := false
	for _, fileName := range args {
		info, err := at9.ProbeFile(fileName)
		if err != nil {
			slog.Error("Failed to probe", "path", fileName, "error", err)
			failed = true
			continue
		}

		slog.Info("AT9 stream",
			"file", fileName,
			"sample_rate", info.Format.SampleRate,
			"channels", info.Format.NumChannels,
			"block_align", info.Format.BlockAlign,
			"byte_rate", info.Format.ByteRate,
			"samples_per_block", info.SamplesPerBlock,
			"channel_mask", fmt.Sprintf("%b", info.ChannelMask),
			"subformat", info.SubFormat.String(),
			"version", info.Version,
			"config", fmt.Sprintf("% X", info.Config.Raw),
			"frame_bytes", info.Config.FrameBytes,
			"frames_per_superframe", info.Config.FramesPerSuperframe,
			"sample_count", info.SampleCount,
			"payload_bytes", info.PayloadBytes)
	}

	if failed {
		os.Exit(1)
	}
}
