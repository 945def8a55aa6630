package fsb

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Codec identifies the encoding of every sample in a container.
type Codec uint32

const (
	CodecNone     Codec = 0x0
	CodecPCM8     Codec = 0x1
	CodecPCM16    Codec = 0x2
	CodecPCM24    Codec = 0x3
	CodecPCM32    Codec = 0x4
	CodecPCMFloat Codec = 0x5
	CodecGCADPCM  Codec = 0x6
	CodecIMAADPCM Codec = 0x7
	CodecVAG      Codec = 0x8
	CodecHEVAG    Codec = 0x9
	CodecXMA      Codec = 0xa
	CodecMPEG     Codec = 0xb
	CodecCELT     Codec = 0xc
	CodecAT9      Codec = 0xd
	CodecXWMA     Codec = 0xe
	CodecVorbis   Codec = 0xf
	CodecFADPCM   Codec = 0x10
	CodecOpus     Codec = 0x11
)

var codecNames = map[Codec]string{
	CodecNone:     "None",
	CodecPCM8:     "PCM8",
	CodecPCM16:    "PCM16",
	CodecPCM24:    "PCM24",
	CodecPCM32:    "PCM32",
	CodecPCMFloat: "PCMFloat",
	CodecGCADPCM:  "GCADPCM",
	CodecIMAADPCM: "IMAADPCM",
	CodecVAG:      "VAG",
	CodecHEVAG:    "HEVAG",
	CodecXMA:      "XMA",
	CodecMPEG:     "MPEG",
	CodecCELT:     "CELT",
	CodecAT9:      "AT9",
	CodecXWMA:     "XWMA",
	CodecVorbis:   "Vorbis",
	CodecFADPCM:   "FADPCM",
	CodecOpus:     "Opus",
}

func (c Codec) String() string {
	if name, ok := codecNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Codec(%d)", uint32(c))
}

// Container is a parsed FSB5 file.
type Container struct {
	Version          uint32
	SampleHeaderSize uint32
	NameTableSize    uint32
	SampleDataSize   uint32
	Codec            Codec
	Flags            [4]byte
	GUID             uuid.UUID
	Hash             [8]byte

	Samples []Sample

	// Names is nil when the container has no name table, otherwise it
	// holds one entry per sample.
	Names []string

	// DataStart is the absolute offset of the sample data region.
	DataStart int64
}

// Name returns the name of sample i, or its 1-based index when the
// container carries no name table.
func (c *Container) Name(i int) string {
	if i < len(c.Names) {
		return c.Names[i]
	}
	return strconv.Itoa(i + 1)
}

// Sample is one entry of the sample descriptor table.
type Sample struct {
	Info  SampleInfo
	Flags []Flag
}

// ATRAC9Config returns the payload of the first ATRAC9 config flag.
func (s *Sample) ATRAC9Config() ([]byte, bool) {
	for _, f := range s.Flags {
		if cfg, ok := f.(ATRAC9ConfigFlag); ok {
			return cfg.Data, true
		}
	}
	return nil, false
}

// SampleInfo is the 64-bit packed sample descriptor, stored little-endian.
//
// Fields, least significant bit first:
//
//	0       has extended flags
//	1..4    sample rate index
//	5..6    channel count index
//	7..33   data offset in 32-byte units
//	34..63  sample count
type SampleInfo uint64

// DataOffsetUnit is the granularity of SampleInfo.DataOffset.
const DataOffsetUnit = 32

func (s SampleInfo) field(shift, width uint) uint64 {
	return uint64(s) >> shift & (1<<width - 1)
}

func (s SampleInfo) withField(shift, width uint, v uint64) SampleInfo {
	mask := uint64(1<<width-1) << shift
	return SampleInfo(uint64(s)&^mask | v<<shift&mask)
}

// HasFlags reports bit 0.
func (s SampleInfo) HasFlags() bool { return s.field(0, 1) != 0 }

// WithHasFlags sets bit 0.
func (s SampleInfo) WithHasFlags(v bool) SampleInfo {
	var b uint64
	if v {
		b = 1
	}
	return s.withField(0, 1, b)
}

// SampleRateIndex returns bits 1..4.
func (s SampleInfo) SampleRateIndex() uint8 { return uint8(s.field(1, 4)) }

// WithSampleRateIndex sets bits 1..4.
func (s SampleInfo) WithSampleRateIndex(v uint8) SampleInfo { return s.withField(1, 4, uint64(v)) }

// ChannelsIndex returns bits 5..6.
func (s SampleInfo) ChannelsIndex() uint8 { return uint8(s.field(5, 2)) }

// WithChannelsIndex sets bits 5..6.
func (s SampleInfo) WithChannelsIndex(v uint8) SampleInfo { return s.withField(5, 2, uint64(v)) }

// DataOffset returns bits 7..33, in DataOffsetUnit units.
func (s SampleInfo) DataOffset() uint32 { return uint32(s.field(7, 27)) }

// WithDataOffset sets bits 7..33.
func (s SampleInfo) WithDataOffset(v uint32) SampleInfo { return s.withField(7, 27, uint64(v)) }

// NumSamples returns bits 34..63.
func (s SampleInfo) NumSamples() uint32 { return uint32(s.field(34, 30)) }

// WithNumSamples sets bits 34..63.
func (s SampleInfo) WithNumSamples(v uint32) SampleInfo { return s.withField(34, 30, uint64(v)) }

// The sample rate and channel tables of the descriptor. ATRAC9 streams
// carry their real parameters in the config flag instead.
var (
	descriptorSampleRates = [...]uint32{4000, 8000, 11000, 11025, 16000, 22050, 24000, 32000, 44100, 48000, 96000}
	descriptorChannels    = [...]uint8{1, 2, 6, 8}
)

// SampleRate resolves SampleRateIndex, returning 0 for indices with no table entry.
func (s SampleInfo) SampleRate() uint32 {
	if idx := int(s.SampleRateIndex()); idx < len(descriptorSampleRates) {
		return descriptorSampleRates[idx]
	}
	return 0
}

// Channels resolves ChannelsIndex.
func (s SampleInfo) Channels() uint8 {
	return descriptorChannels[s.ChannelsIndex()]
}
