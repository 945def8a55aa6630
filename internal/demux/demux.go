package demux

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/drgolem/fsbtools/pkg/at9"
	"github.com/drgolem/fsbtools/pkg/fsb"
)

// Extension is the file extension of every output stream.
const Extension = ".at9"

// ErrConfigNotFound is returned for samples without an ATRAC9 config flag.
var ErrConfigNotFound = errors.New("ATRAC9 config not found")

// Sink creates output destinations. Names are slash-separated and relative
// to the sink's root.
type Sink interface {
	// CreateDir creates a directory; it must succeed if the directory exists.
	CreateDir(name string) error

	// Create creates or truncates a file for writing.
	Create(name string) (io.WriteCloser, error)
}

// SampleResult describes the output of one demuxed sample.
type SampleResult struct {
	Name    string
	Extent  uint32
	Configs []at9.Config
	Files   []string

	// Written holds the payload bytes written to each file, headers excluded.
	Written []int64
}

// Demuxer splits the samples of an ATRAC9 container into .at9 streams.
type Demuxer struct {
	sink   Sink
	logger *slog.Logger
}

// New creates a Demuxer writing to sink. A nil logger uses slog.Default().
func New(sink Sink, logger *slog.Logger) *Demuxer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Demuxer{
		sink:   sink,
		logger: logger,
	}
}

// Extent returns the byte length of sample i, derived from the distance to
// the next sample's data offset, or to the end of the data region for the
// last sample.
func Extent(c *fsb.Container, i int) (uint32, error) {
	start := uint64(c.Samples[i].Info.DataOffset()) * fsb.DataOffsetUnit
	end := uint64(c.SampleDataSize)
	if i+1 < len(c.Samples) {
		end = uint64(c.Samples[i+1].Info.DataOffset()) * fsb.DataOffsetUnit
	}

	if end < start {
		return 0, fmt.Errorf("%w: sample %d data offset %d is past the next sample's offset %d", fsb.ErrInvalidContainer, i, start, end)
	}
	if end > uint64(c.SampleDataSize) {
		return 0, fmt.Errorf("%w: sample %d ends at %d, past the sample data size %d", fsb.ErrInvalidContainer, i, end, c.SampleDataSize)
	}

	return uint32(end - start), nil
}

// SplitConfigs decodes an ATRAC9 config flag payload into one config per
// output stream.
//
// Some payloads start with a 4-byte marker that is not a config word; it is
// recognised by its first byte not being the sync byte and skipped.
func SplitConfigs(blob []byte) ([]at9.Config, error) {
	if len(blob) > 0 && blob[0] != at9.SyncByte {
		if len(blob) < 4 {
			return nil, fmt.Errorf("%w: config payload too small (%d bytes)", at9.ErrInvalidConfig, len(blob))
		}
		blob = blob[4:]
	}

	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: config payload of %d bytes is not a whole number of config words", at9.ErrInvalidConfig, len(blob))
	}

	configs := make([]at9.Config, 0, len(blob)/4)
	for off := 0; off < len(blob); off += 4 {
		cfg, err := at9.ParseConfig([4]byte(blob[off : off+4]))
		if err != nil {
			return nil, fmt.Errorf("config %d: %w", off/4, err)
		}
		configs = append(configs, cfg)
	}

	return configs, nil
}

// OutputNames returns the file names for a sample split into n streams.
// A single stream is named after the sample; several streams are numbered
// 1..n inside a directory named after the sample, returned as dir.
func OutputNames(sampleName string, n int) (dir string, files []string) {
	base := cleanName(sampleName)
	if n == 1 {
		return "", []string{base + Extension}
	}

	files = make([]string, n)
	for i := range files {
		files[i] = path.Join(base, strconv.Itoa(i+1)+Extension)
	}
	return base, files
}

// cleanName keeps sample names from escaping the output root.
func cleanName(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

// stream is one open output file of the sample being demuxed.
type stream struct {
	w               io.WriteCloser
	superframeBytes uint32
	cfg             at9.Config
	written         int64
}

// ExtractSample writes sample i of c, reading its data from src at
// c.DataStart plus the sample's data offset.
//
// The sample data is read in superframes. With several config words, each
// superframe belongs to the next stream in turn: superframe k goes to
// stream k mod N.
func (d *Demuxer) ExtractSample(src io.ReaderAt, c *fsb.Container, i int) (*SampleResult, error) {
	sample := &c.Samples[i]
	name := c.Name(i)

	extent, err := Extent(c, i)
	if err != nil {
		return nil, err
	}

	blob, ok := sample.ATRAC9Config()
	if !ok {
		return nil, fmt.Errorf("sample %q: %w", name, ErrConfigNotFound)
	}
	configs, err := SplitConfigs(blob)
	if err != nil {
		return nil, fmt.Errorf("sample %q: %w", name, err)
	}

	n := len(configs)
	dir, files := OutputNames(name, n)

	d.logger.Info("Sample",
		"index", i,
		"name", name,
		"size", extent,
		"sample_count", sample.Info.NumSamples(),
		"streams", n)

	if dir != "" {
		if err := d.sink.CreateDir(dir); err != nil {
			return nil, fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	}

	streams := make([]*stream, 0, n)
	defer func() {
		for _, s := range streams {
			s.w.Close()
		}
	}()

	streamSize := extent / uint32(n)
	for k, cfg := range configs {
		s, err := d.openStream(files[k], cfg, sample.Info.NumSamples(), streamSize)
		if err != nil {
			return nil, err
		}
		streams = append(streams, s)
	}

	start := c.DataStart + int64(sample.Info.DataOffset())*fsb.DataOffsetUnit
	if err := distribute(io.NewSectionReader(src, start, int64(extent)), int64(extent), streams); err != nil {
		return nil, fmt.Errorf("sample %q: %w", name, err)
	}

	result := &SampleResult{
		Name:    name,
		Extent:  extent,
		Configs: configs,
		Files:   files,
		Written: make([]int64, n),
	}
	for k, s := range streams {
		result.Written[k] = s.written
	}

	// Close explicitly so write-back errors are reported
	open := streams
	streams = nil
	for k, s := range open {
		if err := s.w.Close(); err != nil {
			for _, rest := range open[k+1:] {
				rest.w.Close()
			}
			return nil, fmt.Errorf("error closing %s: %w", files[k], err)
		}
	}

	return result, nil
}

func (d *Demuxer) openStream(fileName string, cfg at9.Config, numSamples, size uint32) (*stream, error) {
	d.logger.Info("Output stream",
		"file", fileName,
		"size", size,
		"sample_count", numSamples,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"channel_mask", fmt.Sprintf("%b", cfg.ChannelMask),
		"frame_samples", cfg.FrameSamples,
		"frame_bytes", cfg.FrameBytes,
		"frames_per_superframe", cfg.FramesPerSuperframe,
		"superframe_bytes", cfg.SuperframeBytes(),
		"superframe_samples", cfg.SuperframeSamples(),
		"bitrate_kbps", cfg.Bitrate()/125)

	w, err := d.sink.Create(fileName)
	if err != nil {
		return nil, fmt.Errorf("error creating output file %s: %w", fileName, err)
	}

	if err := at9.WriteHeader(w, cfg, numSamples, size); err != nil {
		w.Close()
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}

	return &stream{
		w:               w,
		superframeBytes: cfg.SuperframeBytes(),
		cfg:             cfg,
	}, nil
}

// distribute copies size bytes from r to streams, one superframe at a time,
// rotating through the streams starting with the first.
func distribute(r io.Reader, size int64, streams []*stream) error {
	var maxBlock uint32
	for _, s := range streams {
		maxBlock = max(maxBlock, s.superframeBytes)
	}
	buf := make([]byte, maxBlock)

	var consumed int64
	for k := 0; consumed < size; k = (k + 1) % len(streams) {
		s := streams[k]
		block := buf[:s.superframeBytes]

		if _, err := io.ReadFull(r, block); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("error reading superframe at offset %d (%d bytes): %w", consumed, len(block), err)
		}
		if _, err := s.w.Write(block); err != nil {
			return fmt.Errorf("error writing superframe: %w", err)
		}

		s.written += int64(len(block))
		consumed += int64(len(block))
	}

	return nil
}
