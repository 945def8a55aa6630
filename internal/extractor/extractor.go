package extractor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/drgolem/fsbtools/internal/demux"
	"github.com/drgolem/fsbtools/pkg/fsb"
)

// Options configures an Extractor.
type Options struct {
	// OutputDir is the root under which .at9 files are written.
	OutputDir string

	// DryRun parses and demuxes every sample without writing any file.
	DryRun bool
}

// Summary reports the outcome of extracting one FSB5 file.
type Summary struct {
	Input   string
	Codec   fsb.Codec
	Samples []*demux.SampleResult

	// Skipped is set when the container holds no ATRAC9 samples; nothing
	// is written in that case.
	Skipped bool
}

// Files returns the number of .at9 files produced.
func (s *Summary) Files() int {
	n := 0
	for _, r := range s.Samples {
		n += len(r.Files)
	}
	return n
}

// Extractor converts FSB5 files holding ATRAC9 samples into .at9 files.
//
// Each file is processed sequentially: header, then samples in descriptor
// order. The first error aborts the file.
type Extractor struct {
	opts   Options
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger uses slog.Default().
func NewExtractor(opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		opts:   opts,
		logger: logger,
	}
}

// ExtractFile extracts every sample of the FSB5 file fileName.
// Cancelling ctx stops extraction before the next sample.
func (e *Extractor) ExtractFile(ctx context.Context, fileName string) (*Summary, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open FSB: %w", err)
	}
	defer file.Close()

	container, err := fsb.Parse(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(fileName), err)
	}

	summary := &Summary{
		Input: fileName,
		Codec: container.Codec,
	}

	e.logger.Info("FSB opened",
		"file", filepath.Base(fileName),
		"version", container.Version,
		"codec", container.Codec.String(),
		"samples", len(container.Samples),
		"named", container.Names != nil,
		"guid", container.GUID.String(),
		"data_start", container.DataStart,
		"sample_data_size", container.SampleDataSize)

	if container.Codec != fsb.CodecAT9 {
		e.logger.Info("FSB doesn't contain ATRAC9 samples, skipping",
			"file", filepath.Base(fileName),
			"codec", container.Codec.String())
		summary.Skipped = true
		return summary, nil
	}

	sink, err := e.newSink()
	if err != nil {
		return nil, err
	}

	d := demux.New(sink, e.logger)
	for i := range container.Samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := d.ExtractSample(file, container, i)
		if err != nil {
			return nil, fmt.Errorf("failed to extract sample %d of %s: %w", i, filepath.Base(fileName), err)
		}
		summary.Samples = append(summary.Samples, result)
	}

	e.logger.Info("FSB extracted",
		"file", filepath.Base(fileName),
		"samples", len(summary.Samples),
		"files_written", summary.Files(),
		"dry_run", e.opts.DryRun)

	return summary, nil
}

func (e *Extractor) newSink() (demux.Sink, error) {
	if e.opts.DryRun {
		return discardSink{}, nil
	}

	root := e.opts.OutputDir
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}
	return dirSink{root: root}, nil
}

// dirSink writes output streams below a directory.
type dirSink struct {
	root string
}

func (s dirSink) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

func (s dirSink) CreateDir(name string) error {
	return os.MkdirAll(s.path(name), 0755)
}

func (s dirSink) Create(name string) (io.WriteCloser, error) {
	file, err := os.Create(s.path(name))
	if err != nil {
		return nil, err
	}
	return &bufferedFile{Writer: bufio.NewWriterSize(file, 64*1024), file: file}, nil
}

// bufferedFile batches the superframe-sized writes of the demuxer.
type bufferedFile struct {
	*bufio.Writer
	file *os.File
}

func (f *bufferedFile) Close() error {
	if err := f.Flush(); err != nil {
		f.file.Close()
		return err
	}
	return f.file.Close()
}

type discardSink struct{}

func (discardSink) CreateDir(string) error { return nil }

func (discardSink) Create(string) (io.WriteCloser, error) {
	return nopWriteCloser{io.Discard}, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
