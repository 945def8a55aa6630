package fsb

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FlagType is the 7-bit tag of a sample flag record.
type FlagType uint8

const (
	FlagChannels     FlagType = 0x1
	FlagSampleRate   FlagType = 0x2
	FlagLoop         FlagType = 0x3
	FlagATRAC9Config FlagType = 0x9
)

func (t FlagType) String() string {
	switch t {
	case FlagChannels:
		return "Channels"
	case FlagSampleRate:
		return "SampleRate"
	case FlagLoop:
		return "Loop"
	case FlagATRAC9Config:
		return "ATRAC9Config"
	}
	return fmt.Sprintf("FlagType(%d)", uint8(t))
}

// FlagHeader is the 32-bit little-endian header preceding each flag payload.
//
// Fields, least significant bit first:
//
//	0       more records follow
//	1..24   payload size in bytes
//	25..31  type tag
type FlagHeader uint32

func (h FlagHeader) field(shift, width uint) uint32 {
	return uint32(h) >> shift & (1<<width - 1)
}

func (h FlagHeader) withField(shift, width uint, v uint32) FlagHeader {
	mask := uint32(1<<width-1) << shift
	return FlagHeader(uint32(h)&^mask | v<<shift&mask)
}

// More reports bit 0.
func (h FlagHeader) More() bool { return h.field(0, 1) != 0 }

// WithMore sets bit 0.
func (h FlagHeader) WithMore(v bool) FlagHeader {
	var b uint32
	if v {
		b = 1
	}
	return h.withField(0, 1, b)
}

// Size returns bits 1..24.
func (h FlagHeader) Size() uint32 { return h.field(1, 24) }

// WithSize sets bits 1..24.
func (h FlagHeader) WithSize(v uint32) FlagHeader { return h.withField(1, 24, v) }

// Type returns bits 25..31.
func (h FlagHeader) Type() FlagType { return FlagType(h.field(25, 7)) }

// WithType sets bits 25..31.
func (h FlagHeader) WithType(v FlagType) FlagHeader { return h.withField(25, 7, uint32(v)) }

// Flag is one decoded record of a sample's flag chain.
// Implemented by ChannelsFlag, SampleRateFlag, LoopFlag, ATRAC9ConfigFlag and UnknownFlag.
type Flag interface {
	Type() FlagType
}

type ChannelsFlag struct {
	Channels uint8
}

type SampleRateFlag struct {
	SampleRate uint32
}

// LoopFlag holds loop points in samples.
type LoopFlag struct {
	Start uint32
	End   uint32
}

// ATRAC9ConfigFlag holds one or more 4-byte ATRAC9 config words, possibly
// preceded by a 4-byte marker.
type ATRAC9ConfigFlag struct {
	Data []byte
}

// UnknownFlag preserves the raw payload of a tag this package does not interpret.
type UnknownFlag struct {
	Tag  FlagType
	Data []byte
}

func (ChannelsFlag) Type() FlagType     { return FlagChannels }
func (SampleRateFlag) Type() FlagType   { return FlagSampleRate }
func (LoopFlag) Type() FlagType         { return FlagLoop }
func (ATRAC9ConfigFlag) Type() FlagType { return FlagATRAC9Config }
func (f UnknownFlag) Type() FlagType    { return f.Tag }

// minPayload is the payload size needed to decode each fixed-size tag.
var minPayload = map[FlagType]uint32{
	FlagChannels:   1,
	FlagSampleRate: 4,
	FlagLoop:       8,
}

// readFlags decodes a flag chain until a record without the continuation bit.
// Every record consumes exactly its declared size, so tags that are not
// understood are skipped intact.
func readFlags(r io.Reader) ([]Flag, error) {
	var flags []Flag

	for {
		var raw uint32
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, fmt.Errorf("error reading flag header: %w", eof(err))
		}
		header := FlagHeader(raw)

		payload := make([]byte, header.Size())
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("error reading %s flag payload (%d bytes): %w", header.Type(), header.Size(), eof(err))
		}

		flag, err := decodeFlag(header.Type(), payload)
		if err != nil {
			return nil, err
		}
		flags = append(flags, flag)

		if !header.More() {
			return flags, nil
		}
	}
}

func decodeFlag(tag FlagType, payload []byte) (Flag, error) {
	if need, ok := minPayload[tag]; ok && uint32(len(payload)) < need {
		return nil, fmt.Errorf("%s flag payload too small: got %d bytes, need %d", tag, len(payload), need)
	}

	switch tag {
	case FlagChannels:
		return ChannelsFlag{Channels: payload[0]}, nil
	case FlagSampleRate:
		return SampleRateFlag{SampleRate: binary.LittleEndian.Uint32(payload)}, nil
	case FlagLoop:
		return LoopFlag{
			Start: binary.LittleEndian.Uint32(payload[0:4]),
			End:   binary.LittleEndian.Uint32(payload[4:8]),
		}, nil
	case FlagATRAC9Config:
		return ATRAC9ConfigFlag{Data: payload}, nil
	default:
		return UnknownFlag{Tag: tag, Data: payload}, nil
	}
}

// AppendFlag encodes f as a chain record, setting the continuation bit when more is true.
func AppendFlag(b []byte, f Flag, more bool) []byte {
	var payload []byte
	switch f := f.(type) {
	case ChannelsFlag:
		payload = []byte{f.Channels}
	case SampleRateFlag:
		payload = binary.LittleEndian.AppendUint32(nil, f.SampleRate)
	case LoopFlag:
		payload = binary.LittleEndian.AppendUint32(nil, f.Start)
		payload = binary.LittleEndian.AppendUint32(payload, f.End)
	case ATRAC9ConfigFlag:
		payload = f.Data
	case UnknownFlag:
		payload = f.Data
	}

	header := FlagHeader(0).WithMore(more).WithSize(uint32(len(payload))).WithType(f.Type())
	b = binary.LittleEndian.AppendUint32(b, uint32(header))
	return append(b, payload...)
}
