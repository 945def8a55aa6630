package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/drgolem/fsbtools/internal/extractor"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.fsb>...",
	Short: "Extract ATRAC9 samples as .at9 files",
	Long: `Extract every ATRAC9 sample of one or more FSB5 sound banks into standalone
.at9 files. The audio data is copied unchanged behind a synthesized header.

A sample with a single ATRAC9 config is written as <name>.at9. A sample
holding several interleaved channel groups is split into <name>/1.at9,
<name>/2.at9, ... one file per group. Samples without a name table entry are
named after their 1-based index.

Examples:
  # Extract a bank into the current directory
  fsbtools extract music.fsb

  # Extract into a separate directory
  fsbtools extract music.fsb --out extracted

  # Extract several banks, four at a time, each into out/<bank name>
  fsbtools extract -j 4 -o out *.fsb

  # Check a bank without writing anything
  fsbtools extract --dry-run -v music.fsb

Banks that don't contain ATRAC9 audio are reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("out", "o", ".", "Output directory")
	extractCmd.Flags().IntP("jobs", "j", runtime.NumCPU(), "Number of files extracted in parallel")
	extractCmd.Flags().Bool("dry-run", false, "Parse and demux without writing files")
}

func runExtract(cmd *cobra.Command, args []string) {
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		slog.Error("Failed to get out flag", "error", err)
		os.Exit(1)
	}

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		slog.Error("Failed to get jobs flag", "error", err)
		os.Exit(1)
	}
	if jobs < 1 {
		slog.Error("Invalid number of jobs", "jobs", jobs, "valid_range", ">= 1")
		os.Exit(1)
	}

	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		slog.Error("Failed to get dry-run flag", "error", err)
		os.Exit(1)
	}

	for _, fileName := range args {
		if _, err := os.Stat(fileName); os.IsNotExist(err) {
			slog.Error("Input file not found", "path", fileName)
			os.Exit(1)
		}
	}

	targets, err := outputDirs(args, outDir)
	if err != nil {
		slog.Error("Failed to plan output directories", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Signal received, stopping extraction", "signal", sig)
		cancel()
	}()

	slog.Info("Extraction starting",
		"files", len(args),
		"out", outDir,
		"jobs", jobs,
		"dry_run", dryRun)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	summaries := make([]*extractor.Summary, len(args))
	for i, fileName := range args {
		i, fileName := i, fileName
		g.Go(func() error {
			e := extractor.NewExtractor(extractor.Options{
				OutputDir: targets[i],
				DryRun:    dryRun,
			}, slog.Default().With("input", filepath.Base(fileName)))

			summary, err := e.ExtractFile(ctx, fileName)
			if err != nil {
				return err
			}
			summaries[i] = summary
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Failed to extract", "error", err)
		os.Exit(1)
	}

	var samples, files, skipped int
	for _, s := range summaries {
		if s.Skipped {
			skipped++
			continue
		}
		samples += len(s.Samples)
		files += s.Files()
	}

	slog.Info("Extraction complete",
		"banks", len(summaries),
		"skipped", skipped,
		"samples", samples,
		"files_written", files)
}

// outputDirs gives each input its own directory when several are extracted
// at once, named after the input file without its extension.
func outputDirs(inputs []string, outDir string) ([]string, error) {
	dirs := make([]string, len(inputs))
	if len(inputs) == 1 {
		dirs[0] = outDir
		return dirs, nil
	}

	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		base := filepath.Base(in)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if prev, ok := seen[stem]; ok {
			return nil, fmt.Errorf("%s and %s would share the output directory %q", prev, in, stem)
		}
		seen[stem] = in
		dirs[i] = filepath.Join(outDir, stem)
	}
	return dirs, nil
}
