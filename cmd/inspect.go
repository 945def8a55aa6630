package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/drgolem/fsbtools/internal/demux"
	"github.com/drgolem/fsbtools/pkg/fsb"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.fsb>",
	Short: "Show FSB5 container and sample metadata",
	Long: `Parse an FSB5 sound bank and report its header, every sample descriptor
and its flag chain, without writing anything.

For ATRAC9 banks the decoded config of every channel group is reported too.

Examples:
  # Show the layout of a bank
  fsbtools inspect music.fsb`,
	Args: cobra.ExactArgs(1),
	Run:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) {
	fileName := args[0]

	container, err := fsb.ParseFile(fileName)
	if err != nil {
		slog.Error("Failed to parse FSB", "error", err)
		os.Exit(1)
	}

	slog.Info("Container",
		"file", fileName,
		"version", container.Version,
		"codec", container.Codec.String(),
		"samples", len(container.Samples),
		"sample_header_size", container.SampleHeaderSize,
		"name_table_size", container.NameTableSize,
		"sample_data_size", container.SampleDataSize,
		"data_start", container.DataStart,
		"flags", fmt.Sprintf("% X", container.Flags),
		"guid", container.GUID.String(),
		"hash", fmt.Sprintf("%X", container.Hash))

	for i := range container.Samples {
		inspectSample(container, i)
	}
}

func inspectSample(c *fsb.Container, i int) {
	sample := &c.Samples[i]

	attrs := []any{
		"index", i,
		"name", c.Name(i),
		"sample_rate", sample.Info.SampleRate(),
		"sample_rate_index", sample.Info.SampleRateIndex(),
		"channels", sample.Info.Channels(),
		"data_offset", int64(sample.Info.DataOffset()) * fsb.DataOffsetUnit,
		"sample_count", sample.Info.NumSamples(),
		"flag_count", len(sample.Flags),
	}
	if extent, err := demux.Extent(c, i); err != nil {
		attrs = append(attrs, "extent_error", err)
	} else {
		attrs = append(attrs, "size", extent)
	}
	slog.Info("Sample", attrs...)

	for _, flag := range sample.Flags {
		switch f := flag.(type) {
		case fsb.ChannelsFlag:
			slog.Info("Flag", "type", f.Type().String(), "channels", f.Channels)
		case fsb.SampleRateFlag:
			slog.Info("Flag", "type", f.Type().String(), "sample_rate", f.SampleRate)
		case fsb.LoopFlag:
			slog.Info("Flag", "type", f.Type().String(), "loop_start", f.Start, "loop_end", f.End)
		case fsb.ATRAC9ConfigFlag:
			slog.Info("Flag", "type", f.Type().String(), "data", fmt.Sprintf("% X", f.Data))
		case fsb.UnknownFlag:
			slog.Info("Flag", "type", f.Type().String(), "size", len(f.Data))
		}
	}

	if c.Codec != fsb.CodecAT9 {
		return
	}

	blob, ok := sample.ATRAC9Config()
	if !ok {
		slog.Warn("Sample has no ATRAC9 config", "index", i)
		return
	}
	configs, err := demux.SplitConfigs(blob)
	if err != nil {
		slog.Warn("Invalid ATRAC9 config", "index", i, "error", err)
		return
	}
	for k, cfg := range configs {
		slog.Info("ATRAC9 config",
			"stream", k+1,
			"sample_rate", cfg.SampleRate,
			"channels", cfg.Channels,
			"channel_mask", fmt.Sprintf("%b", cfg.ChannelMask),
			"frame_samples", cfg.FrameSamples,
			"frame_bytes", cfg.FrameBytes,
			"frames_per_superframe", cfg.FramesPerSuperframe,
			"superframe_bytes", cfg.SuperframeBytes(),
			"bitrate_kbps", cfg.Bitrate()/125)
	}
}
