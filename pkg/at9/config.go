package at9

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SyncByte is the value of the top byte of every ATRAC9 config word.
const SyncByte = 0xFE

// ErrInvalidConfig is returned for config words that fail structural validation.
var ErrInvalidConfig = errors.New("invalid ATRAC9 config")

// Lookup tables indexed by the config word fields.
// See https://github.com/Thealexbarney/VGAudio/blob/master/docs/audio-formats/atrac9/container.md#config-data
var (
	sampleRates = [16]uint32{
		11025, 12000, 16000, 22050, 24000, 32000, 44100, 48000,
		44100, 48000, 64000, 88200, 96000, 128000, 176400, 192000,
	}

	frameSamplePowers = [16]uint8{6, 6, 7, 7, 7, 8, 8, 8, 6, 6, 7, 7, 7, 8, 8, 8}

	channelCounts = [6]uint8{1, 2, 2, 6, 8, 4}

	// Wave channel mask per channel config (psdevwiki Wave_Channel_Mask)
	channelMasks = [6]uint8{0b00000100, 0b00000100, 0b00000011, 0b11001111, 0b11111111, 0b00110011}
)

// ConfigWord is the big-endian 32-bit ATRAC9 config word.
//
// Layout (bit 31 is the most significant):
//
//	31..24  sync byte (0xFE)
//	23..20  sample rate index
//	19..17  channel config index
//	16      reserved, must be 0
//	15..5   frame bytes - 1
//	4..3    log2(frames per superframe)
//	2..0    unused
type ConfigWord uint32

// ConfigWordFromBytes interprets b as a big-endian config word.
func ConfigWordFromBytes(b [4]byte) ConfigWord {
	return ConfigWord(binary.BigEndian.Uint32(b[:]))
}

// Bytes returns the big-endian encoding of w.
func (w ConfigWord) Bytes() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(w))
	return b
}

func (w ConfigWord) field(shift, width uint) uint32 {
	return uint32(w) >> shift & (1<<width - 1)
}

func (w ConfigWord) withField(shift, width uint, v uint32) ConfigWord {
	mask := uint32(1<<width-1) << shift
	return ConfigWord(uint32(w)&^mask | v<<shift&mask)
}

// Sync returns bits 24..31.
func (w ConfigWord) Sync() uint8 { return uint8(w.field(24, 8)) }

// WithSync sets bits 24..31.
func (w ConfigWord) WithSync(v uint8) ConfigWord { return w.withField(24, 8, uint32(v)) }

// SampleRateIndex returns bits 20..23.
func (w ConfigWord) SampleRateIndex() uint8 { return uint8(w.field(20, 4)) }

// WithSampleRateIndex sets bits 20..23.
func (w ConfigWord) WithSampleRateIndex(v uint8) ConfigWord { return w.withField(20, 4, uint32(v)) }

// ChannelConfigIndex returns bits 17..19.
func (w ConfigWord) ChannelConfigIndex() uint8 { return uint8(w.field(17, 3)) }

// WithChannelConfigIndex sets bits 17..19.
func (w ConfigWord) WithChannelConfigIndex(v uint8) ConfigWord { return w.withField(17, 3, uint32(v)) }

// Reserved returns bit 16.
func (w ConfigWord) Reserved() bool { return w.field(16, 1) != 0 }

// WithReserved sets bit 16.
func (w ConfigWord) WithReserved(v bool) ConfigWord {
	var b uint32
	if v {
		b = 1
	}
	return w.withField(16, 1, b)
}

// FrameBytesMinusOne returns bits 5..15.
func (w ConfigWord) FrameBytesMinusOne() uint16 { return uint16(w.field(5, 11)) }

// WithFrameBytesMinusOne sets bits 5..15.
func (w ConfigWord) WithFrameBytesMinusOne(v uint16) ConfigWord { return w.withField(5, 11, uint32(v)) }

// SuperframeExponent returns bits 3..4.
func (w ConfigWord) SuperframeExponent() uint8 { return uint8(w.field(3, 2)) }

// WithSuperframeExponent sets bits 3..4.
func (w ConfigWord) WithSuperframeExponent(v uint8) ConfigWord { return w.withField(3, 2, uint32(v)) }

// Config holds the playback parameters decoded from a config word.
type Config struct {
	SampleRate          uint32
	FrameSamples        uint16
	Channels            uint8
	ChannelMask         uint8
	FrameBytes          uint16
	FramesPerSuperframe uint16

	// Raw is the undecoded config word, copied into the output header.
	Raw [4]byte
}

// ParseConfig decodes a 4-byte ATRAC9 config word.
//
// Returns an error wrapping ErrInvalidConfig if:
//   - the sync byte is not 0xFE
//   - the reserved bit is set
//   - the channel config index has no table entry (6 or 7)
func ParseConfig(data [4]byte) (Config, error) {
	w := ConfigWordFromBytes(data)

	if w.Sync() != SyncByte {
		return Config{}, fmt.Errorf("%w: sync code 0x%02X", ErrInvalidConfig, w.Sync())
	}
	if w.Reserved() {
		return Config{}, fmt.Errorf("%w: validation bit set", ErrInvalidConfig)
	}

	rateIdx := w.SampleRateIndex()
	chIdx := w.ChannelConfigIndex()
	if int(chIdx) >= len(channelCounts) {
		return Config{}, fmt.Errorf("%w: channel config index %d", ErrInvalidConfig, chIdx)
	}

	return Config{
		SampleRate:          sampleRates[rateIdx],
		FrameSamples:        1 << frameSamplePowers[rateIdx],
		Channels:            channelCounts[chIdx],
		ChannelMask:         channelMasks[chIdx],
		FrameBytes:          w.FrameBytesMinusOne() + 1,
		FramesPerSuperframe: 1 << w.SuperframeExponent(),
		Raw:                 data,
	}, nil
}

// SuperframeBytes is the size of one superframe, the unit of interleaving.
func (c Config) SuperframeBytes() uint32 {
	return uint32(c.FrameBytes) * uint32(c.FramesPerSuperframe)
}

// SuperframeSamples is the number of samples decoded from one superframe.
func (c Config) SuperframeSamples() uint32 {
	return uint32(c.FrameSamples) * uint32(c.FramesPerSuperframe)
}

// Bitrate returns the stream byte rate in bytes per second.
func (c Config) Bitrate() uint32 {
	return c.SuperframeBytes() * c.SampleRate / c.SuperframeSamples()
}
