package at9

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// HeaderSize is the byte length of the header written by WriteHeader.
const HeaderSize = 100

const (
	formatTagExtensible = 0xFFFE
	fmtChunkSize        = 52
	fmtExtensionSize    = 34
	factChunkSize       = 12
	formatVersion       = 1

	// Default priming delays used by the PS4/Vita encoders.
	inputOverlapDelaySamples = 256
	encoderDelaySamples      = 256
)

// SubFormat is the KSDATAFORMAT_SUBTYPE_ATRAC9 GUID as stored on disk
// ({47E142D2-36BA-4D8D-88FC-61654F8C836C}, little-endian fields).
var SubFormat = uuid.UUID{0xD2, 0x42, 0xE1, 0x47, 0xBA, 0x36, 0x8D, 0x4D, 0x88, 0xFC, 0x61, 0x65, 0x4F, 0x8C, 0x83, 0x6C}

// Header is the RIFF/WAVE header of an .at9 file.
// Field order and widths match the on-disk layout exactly.
type Header struct {
	// RIFF header
	RiffID   [4]byte // "RIFF"
	FileSize uint32  // bytes remaining after this field
	WaveID   [4]byte // "WAVE"

	// fmt sub-chunk (WAVE_FORMAT_EXTENSIBLE)
	FmtID           [4]byte // "fmt "
	FmtSize         uint32  // 52
	FormatTag       uint16  // 0xFFFE
	NumChannels     uint16
	SampleRate      uint32
	ByteRate        uint32
	BlockAlign      uint16 // superframe bytes
	BitsPerSample   uint16 // 0, compressed
	ExtensionSize   uint16 // 34
	SamplesPerBlock uint16 // superframe samples
	ChannelMask     uint32
	SubFormat       uuid.UUID
	Version         uint32
	ConfigData      [4]byte
	Reserved        [4]byte

	// fact sub-chunk
	FactID                   [4]byte // "fact"
	FactSize                 uint32  // 12
	SampleCount              uint32
	InputOverlapDelaySamples uint32
	EncoderDelaySamples      uint32

	// data sub-chunk
	DataID   [4]byte // "data"
	DataSize uint32
}

// NewHeader builds the header for a stream of numSamples samples whose
// payload is dataSize bytes long.
func NewHeader(cfg Config, numSamples, dataSize uint32) Header {
	return Header{
		RiffID:   [4]byte{'R', 'I', 'F', 'F'},
		FileSize: dataSize + HeaderSize - 8,
		WaveID:   [4]byte{'W', 'A', 'V', 'E'},

		FmtID:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:         fmtChunkSize,
		FormatTag:       formatTagExtensible,
		NumChannels:     uint16(cfg.Channels),
		SampleRate:      cfg.SampleRate,
		ByteRate:        cfg.Bitrate(),
		BlockAlign:      uint16(cfg.SuperframeBytes()),
		BitsPerSample:   0,
		ExtensionSize:   fmtExtensionSize,
		SamplesPerBlock: uint16(cfg.SuperframeSamples()),
		ChannelMask:     uint32(cfg.ChannelMask),
		SubFormat:       SubFormat,
		Version:         formatVersion,
		ConfigData:      cfg.Raw,

		FactID:                   [4]byte{'f', 'a', 'c', 't'},
		FactSize:                 factChunkSize,
		SampleCount:              numSamples,
		InputOverlapDelaySamples: inputOverlapDelaySamples,
		EncoderDelaySamples:      encoderDelaySamples,

		DataID:   [4]byte{'d', 'a', 't', 'a'},
		DataSize: dataSize,
	}
}

// WriteHeader writes the .at9 header for cfg to w.
func WriteHeader(w io.Writer, cfg Config, numSamples, dataSize uint32) error {
	header := NewHeader(cfg, numSamples, dataSize)
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("error writing ATRAC9 header: %w", err)
	}
	return nil
}
