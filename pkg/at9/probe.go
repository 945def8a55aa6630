package at9

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/youpy/go-riff"
	"github.com/youpy/go-wav"
)

// Info describes an .at9 file as read back from its RIFF chunks.
type Info struct {
	Format          wav.WavFormat
	SamplesPerBlock uint16
	ChannelMask     uint32
	SubFormat       uuid.UUID
	Version         uint32
	Config          Config
	SampleCount     uint32
	PayloadBytes    int64
}

// fmtExtensible is the full 52-byte fmt chunk of an .at9 file.
type fmtExtensible struct {
	wav.WavFormat
	ExtensionSize   uint16
	SamplesPerBlock uint16
	ChannelMask     uint32
	SubFormat       uuid.UUID
	Version         uint32
	ConfigData      [4]byte
}

type factChunk struct {
	SampleCount              uint32
	InputOverlapDelaySamples uint32
	EncoderDelaySamples      uint32
}

// ProbeFile opens fileName and reads its .at9 header.
func ProbeFile(fileName string) (*Info, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open AT9 file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat AT9 file: %w", err)
	}

	return Probe(file, stat.Size())
}

// Probe reads the header of an .at9 stream of the given total size and
// counts its payload bytes. The config word embedded in the fmt chunk is
// decoded with ParseConfig.
func Probe(r io.ReaderAt, size int64) (info *Info, err error) {
	// go-riff panics on chunks running past the end of the input
	defer func() {
		if p := recover(); p != nil {
			info = nil
			err = fmt.Errorf("malformed RIFF structure: %v", p)
		}
	}()

	if size < HeaderSize {
		return nil, fmt.Errorf("file too small: got %d bytes, need at least %d bytes", size, HeaderSize)
	}
	var head [8]byte
	if _, err := r.ReadAt(head[:], 0); err != nil {
		return nil, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if declared := int64(binary.LittleEndian.Uint32(head[4:])) + 8; declared > size {
		return nil, fmt.Errorf("truncated file: RIFF size %d exceeds file size %d", declared, size)
	}

	section := io.NewSectionReader(r, 0, size)

	reader := wav.NewReader(section)
	format, err := reader.Format()
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV format: %w", err)
	}
	if format.AudioFormat != formatTagExtensible {
		return nil, fmt.Errorf("unsupported WAV format: 0x%04X (only WAVE_FORMAT_EXTENSIBLE supported)", format.AudioFormat)
	}

	chunks, err := riff.NewReader(section).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read RIFF chunks: %w", err)
	}

	var ext fmtExtensible
	var fact factChunk
	var haveFmt, haveFact bool
	for _, chunk := range chunks.Chunks {
		switch string(chunk.ChunkID) {
		case "fmt ":
			if err := binary.Read(chunk, binary.LittleEndian, &ext); err != nil {
				return nil, fmt.Errorf("failed to read fmt extension: %w", err)
			}
			haveFmt = true
		case "fact":
			if err := binary.Read(chunk, binary.LittleEndian, &fact); err != nil {
				return nil, fmt.Errorf("failed to read fact chunk: %w", err)
			}
			haveFact = true
		}
	}
	if !haveFmt || !haveFact {
		return nil, errors.New("missing fmt or fact chunk")
	}
	if ext.SubFormat != SubFormat {
		return nil, fmt.Errorf("unexpected subformat %s", ext.SubFormat)
	}

	cfg, err := ParseConfig(ext.ConfigData)
	if err != nil {
		return nil, err
	}

	payload, err := io.Copy(io.Discard, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	return &Info{
		Format:          *format,
		SamplesPerBlock: ext.SamplesPerBlock,
		ChannelMask:     ext.ChannelMask,
		SubFormat:       ext.SubFormat,
		Version:         ext.Version,
		Config:          cfg,
		SampleCount:     fact.SampleCount,
		PayloadBytes:    payload,
	}, nil
}
