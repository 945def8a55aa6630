package at9

import (
	"errors"
	"testing"
)

// baseWord is a valid config: 48kHz, stereo, 256-byte frames, 4 frames per superframe.
var baseWord = ConfigWord(0).
	WithSync(SyncByte).
	WithSampleRateIndex(7).
	WithChannelConfigIndex(1).
	WithFrameBytesMinusOne(255).
	WithSuperframeExponent(2)

func TestParseConfigKnownWord(t *testing.T) {
	// 48kHz, channel config 1, 256-byte frames, 4 frames per superframe
	cfg, err := ParseConfig([4]byte{0xFE, 0x72, 0x1F, 0xF0})
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	if cfg.SampleRate != 48000 {
		t.Errorf("SampleRate: got %d, want 48000", cfg.SampleRate)
	}
	if cfg.FrameSamples != 256 {
		t.Errorf("FrameSamples: got %d, want 256", cfg.FrameSamples)
	}
	if cfg.Channels != 2 {
		t.Errorf("Channels: got %d, want 2", cfg.Channels)
	}
	if cfg.ChannelMask != 0b00000100 {
		t.Errorf("ChannelMask: got %08b, want 00000100", cfg.ChannelMask)
	}
	if cfg.FrameBytes != 256 {
		t.Errorf("FrameBytes: got %d, want 256", cfg.FrameBytes)
	}
	if cfg.FramesPerSuperframe != 4 {
		t.Errorf("FramesPerSuperframe: got %d, want 4", cfg.FramesPerSuperframe)
	}
	if cfg.SuperframeBytes() != 1024 {
		t.Errorf("SuperframeBytes: got %d, want 1024", cfg.SuperframeBytes())
	}
	if cfg.SuperframeSamples() != 1024 {
		t.Errorf("SuperframeSamples: got %d, want 1024", cfg.SuperframeSamples())
	}
	if cfg.Bitrate() != 48000 {
		t.Errorf("Bitrate: got %d, want 48000", cfg.Bitrate())
	}
	if cfg.Raw != [4]byte{0xFE, 0x72, 0x1F, 0xF0} {
		t.Errorf("Raw: got % X", cfg.Raw)
	}
}

func TestParseConfigSampleRates(t *testing.T) {
	tests := []struct {
		idx          uint8
		rate         uint32
		frameSamples uint16
	}{
		{0, 11025, 64},
		{1, 12000, 64},
		{2, 16000, 128},
		{3, 22050, 128},
		{4, 24000, 128},
		{5, 32000, 256},
		{6, 44100, 256},
		{7, 48000, 256},
		{8, 44100, 64},
		{9, 48000, 64},
		{10, 64000, 128},
		{11, 88200, 128},
		{12, 96000, 128},
		{13, 128000, 256},
		{14, 176400, 256},
		{15, 192000, 256},
	}

	for _, tt := range tests {
		cfg, err := ParseConfig(baseWord.WithSampleRateIndex(tt.idx).Bytes())
		if err != nil {
			t.Fatalf("index %d: ParseConfig failed: %v", tt.idx, err)
		}
		if cfg.SampleRate != tt.rate {
			t.Errorf("index %d: SampleRate got %d, want %d", tt.idx, cfg.SampleRate, tt.rate)
		}
		if cfg.FrameSamples != tt.frameSamples {
			t.Errorf("index %d: FrameSamples got %d, want %d", tt.idx, cfg.FrameSamples, tt.frameSamples)
		}
	}
}

func TestParseConfigChannels(t *testing.T) {
	tests := []struct {
		idx      uint8
		channels uint8
		mask     uint8
	}{
		{0, 1, 0x04},
		{1, 2, 0x04},
		{2, 2, 0x03},
		{3, 6, 0xCF},
		{4, 8, 0xFF},
		{5, 4, 0x33},
	}

	for _, tt := range tests {
		cfg, err := ParseConfig(baseWord.WithChannelConfigIndex(tt.idx).Bytes())
		if err != nil {
			t.Fatalf("index %d: ParseConfig failed: %v", tt.idx, err)
		}
		if cfg.Channels != tt.channels {
			t.Errorf("index %d: Channels got %d, want %d", tt.idx, cfg.Channels, tt.channels)
		}
		if cfg.ChannelMask != tt.mask {
			t.Errorf("index %d: ChannelMask got %08b, want %08b", tt.idx, cfg.ChannelMask, tt.mask)
		}
	}
}

func TestParseConfigFrameFields(t *testing.T) {
	for exp := uint8(0); exp < 4; exp++ {
		cfg, err := ParseConfig(baseWord.WithSuperframeExponent(exp).Bytes())
		if err != nil {
			t.Fatalf("exponent %d: ParseConfig failed: %v", exp, err)
		}
		if want := uint16(1) << exp; cfg.FramesPerSuperframe != want {
			t.Errorf("exponent %d: FramesPerSuperframe got %d, want %d", exp, cfg.FramesPerSuperframe, want)
		}
	}

	for _, raw := range []uint16{0, 1, 383, 2047} {
		cfg, err := ParseConfig(baseWord.WithFrameBytesMinusOne(raw).Bytes())
		if err != nil {
			t.Fatalf("frame bytes %d: ParseConfig failed: %v", raw, err)
		}
		if cfg.FrameBytes != raw+1 {
			t.Errorf("FrameBytes: got %d, want %d", cfg.FrameBytes, raw+1)
		}
	}
}

func TestParseConfigBadSync(t *testing.T) {
	// Every sync value but 0xFE fails, whatever the remaining fields hold
	others := []ConfigWord{baseWord, baseWord.WithFrameBytesMinusOne(0), ConfigWord(0x00FFFFFF).WithReserved(false)}

	for _, w := range others {
		for sync := 0; sync < 256; sync++ {
			if sync == SyncByte {
				continue
			}
			_, err := ParseConfig(w.WithSync(uint8(sync)).Bytes())
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("sync 0x%02X: expected ErrInvalidConfig, got %v", sync, err)
			}
		}
	}
}

func TestParseConfigReservedBit(t *testing.T) {
	for rate := uint8(0); rate < 16; rate++ {
		for ch := uint8(0); ch < 6; ch++ {
			w := baseWord.WithSampleRateIndex(rate).WithChannelConfigIndex(ch).WithReserved(true)
			_, err := ParseConfig(w.Bytes())
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("rate %d ch %d: expected ErrInvalidConfig, got %v", rate, ch, err)
			}
		}
	}
}

func TestParseConfigUnmappedChannelConfig(t *testing.T) {
	for _, idx := range []uint8{6, 7} {
		_, err := ParseConfig(baseWord.WithChannelConfigIndex(idx).Bytes())
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("index %d: expected ErrInvalidConfig, got %v", idx, err)
		}
	}
}

func TestConfigWordAccessors(t *testing.T) {
	w := ConfigWordFromBytes([4]byte{0xFE, 0x72, 0x1F, 0xE0})

	if w.Sync() != 0xFE {
		t.Errorf("Sync: got 0x%02X", w.Sync())
	}
	if w.SampleRateIndex() != 7 {
		t.Errorf("SampleRateIndex: got %d, want 7", w.SampleRateIndex())
	}
	if w.ChannelConfigIndex() != 1 {
		t.Errorf("ChannelConfigIndex: got %d, want 1", w.ChannelConfigIndex())
	}
	if w.Reserved() {
		t.Error("Reserved: got true")
	}
	if w.FrameBytesMinusOne() != 255 {
		t.Errorf("FrameBytesMinusOne: got %d, want 255", w.FrameBytesMinusOne())
	}
	if w.SuperframeExponent() != 0 {
		t.Errorf("SuperframeExponent: got %d, want 0", w.SuperframeExponent())
	}

	// Setters must not disturb neighbouring fields
	w2 := w.WithChannelConfigIndex(5)
	if w2.SampleRateIndex() != 7 || w2.Reserved() || w2.FrameBytesMinusOne() != 255 {
		t.Errorf("WithChannelConfigIndex clobbered other fields: %08X", uint32(w2))
	}
	if w2.WithChannelConfigIndex(1) != w {
		t.Errorf("round trip: got %08X, want %08X", uint32(w2.WithChannelConfigIndex(1)), uint32(w))
	}
}

func TestParseConfigDeterministic(t *testing.T) {
	data := baseWord.Bytes()
	first, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := ParseConfig(data)
		if err != nil || again != first {
			t.Fatalf("ParseConfig not deterministic: %+v vs %+v (%v)", again, first, err)
		}
	}
}
