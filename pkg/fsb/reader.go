package fsb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Magic is the 4-byte signature at the start of every FSB5 file.
const Magic = "FSB5"

// DataAlign is the alignment of the sample data region from the start of the file.
const DataAlign = 32

// ErrInvalidContainer is returned for any structural problem in an FSB5 file,
// including truncation.
var ErrInvalidContainer = errors.New("invalid FSB5 container")

// cursor counts the bytes consumed from the underlying reader so the
// parser always knows its absolute position without seeking.
type cursor struct {
	r   io.Reader
	pos int64
}

func (c *cursor) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.pos += int64(n)
	return n, err
}

func (c *cursor) skip(n int64) error {
	_, err := io.CopyN(io.Discard, c, n)
	return err
}

// eof turns a clean EOF into io.ErrUnexpectedEOF: every read in the
// format has a declared length, so running out of input is a short read.
func eof(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ParseFile opens and parses the FSB5 file at fileName.
func ParseFile(fileName string) (*Container, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads an FSB5 header, its sample descriptor table and the optional
// name table from r, which must be positioned at the start of the file.
// The sample data region is not read; its absolute offset is returned in
// Container.DataStart.
func Parse(r io.Reader) (*Container, error) {
	c := &cursor{r: r}

	container, err := parse(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContainer, err)
	}
	return container, nil
}

// fixedHeader is the part of the FSB5 header preceding the version-dependent padding.
type fixedHeader struct {
	Version          uint32
	NumSamples       uint32
	SampleHeaderSize uint32
	NameTableSize    uint32
	SampleDataSize   uint32
	Codec            uint32
}

func parse(c *cursor) (*Container, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(c, magic); err != nil {
		return nil, fmt.Errorf("error reading magic: %w", eof(err))
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("expected %s magic, got %q (hex: %x)", Magic, magic, magic)
	}

	var fh fixedHeader
	if err := binary.Read(c, binary.LittleEndian, &fh); err != nil {
		return nil, fmt.Errorf("error reading header: %w", eof(err))
	}
	if fh.Version != 0 && fh.Version != 1 {
		return nil, fmt.Errorf("unsupported version %d", fh.Version)
	}

	container := &Container{
		Version:          fh.Version,
		SampleHeaderSize: fh.SampleHeaderSize,
		NameTableSize:    fh.NameTableSize,
		SampleDataSize:   fh.SampleDataSize,
		Codec:            Codec(fh.Codec),
	}

	// Version 0 headers carry 4 more reserved bytes than version 1
	padding := int64(4)
	if fh.Version == 0 {
		padding = 8
	}
	if err := c.skip(padding); err != nil {
		return nil, fmt.Errorf("error reading header padding: %w", eof(err))
	}

	if _, err := io.ReadFull(c, container.Flags[:]); err != nil {
		return nil, fmt.Errorf("error reading flags: %w", eof(err))
	}
	if _, err := io.ReadFull(c, container.GUID[:]); err != nil {
		return nil, fmt.Errorf("error reading GUID: %w", eof(err))
	}
	if _, err := io.ReadFull(c, container.Hash[:]); err != nil {
		return nil, fmt.Errorf("error reading hash: %w", eof(err))
	}

	container.Samples = make([]Sample, 0, min(fh.NumSamples, 4096))
	for i := uint32(0); i < fh.NumSamples; i++ {
		sample, err := readSample(c)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		container.Samples = append(container.Samples, sample)
	}

	if fh.NameTableSize > 0 {
		// Name offset table, one u32 per sample; names are read sequentially instead
		if err := c.skip(4 * int64(fh.NumSamples)); err != nil {
			return nil, fmt.Errorf("error reading name offsets: %w", eof(err))
		}

		container.Names = make([]string, 0, len(container.Samples))
		for i := uint32(0); i < fh.NumSamples; i++ {
			name, err := readCString(c)
			if err != nil {
				return nil, fmt.Errorf("error reading name %d: %w", i, err)
			}
			container.Names = append(container.Names, name)
		}
	}

	container.DataStart = alignUp(c.pos, DataAlign)

	return container, nil
}

func readSample(c *cursor) (Sample, error) {
	var raw uint64
	if err := binary.Read(c, binary.LittleEndian, &raw); err != nil {
		return Sample{}, fmt.Errorf("error reading sample info: %w", eof(err))
	}

	sample := Sample{Info: SampleInfo(raw)}
	if sample.Info.HasFlags() {
		flags, err := readFlags(c)
		if err != nil {
			return Sample{}, err
		}
		sample.Flags = flags
	}

	return sample, nil
}

func readCString(r io.Reader) (string, error) {
	var name []byte
	b := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, b); err != nil {
			return "", eof(err)
		}
		if b[0] == 0 {
			return string(name), nil
		}
		name = append(name, b[0])
	}
}

func alignUp(pos, align int64) int64 {
	if rem := pos % align; rem != 0 {
		return pos + align - rem
	}
	return pos
}
