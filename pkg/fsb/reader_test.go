package fsb_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/drgolem/fsbtools/pkg/fsb"
	"github.com/drgolem/fsbtools/pkg/fsb/fsbtest"

	"github.com/google/uuid"
)

func twoSampleContainer(version uint32, names bool) *fsbtest.Container {
	return &fsbtest.Container{
		Version: version,
		Codec:   fsb.CodecAT9,
		GUID:    uuid.MustParse("0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0"),
		Hash:    [8]byte{1, 2, 3, 4, 5, 6, 7, 8},
		Names:   names,
		Samples: []fsbtest.Sample{
			{
				Name:       "music_intro",
				NumSamples: 48000,
				Flags: []fsb.Flag{
					fsb.ChannelsFlag{Channels: 2},
					fsb.LoopFlag{Start: 100, End: 47000},
					fsbtest.ConfigFlag(fsbtest.ConfigWord(7, 1, 256, 2)),
				},
				Data: bytes.Repeat([]byte{0x11}, 64),
			},
			{
				Name:       "sfx",
				NumSamples: 1024,
				Data:       bytes.Repeat([]byte{0x22}, 40),
			},
		},
	}
}

func TestParseVersions(t *testing.T) {
	for _, version := range []uint32{0, 1} {
		fixture := twoSampleContainer(version, true)
		data := fixture.Bytes()

		c, err := fsb.Parse(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("version %d: Parse failed: %v", version, err)
		}

		if c.Version != version {
			t.Errorf("Version: got %d, want %d", c.Version, version)
		}
		if c.Codec != fsb.CodecAT9 {
			t.Errorf("Codec: got %s, want AT9", c.Codec)
		}
		if c.GUID != fixture.GUID {
			t.Errorf("GUID: got %s, want %s", c.GUID, fixture.GUID)
		}
		if c.Hash != fixture.Hash {
			t.Errorf("Hash: got %x, want %x", c.Hash, fixture.Hash)
		}
		if c.SampleDataSize != 64+64 {
			t.Errorf("SampleDataSize: got %d, want 128", c.SampleDataSize)
		}
		if c.DataStart != fixture.DataStart() {
			t.Errorf("DataStart: got %d, want %d", c.DataStart, fixture.DataStart())
		}
		if c.DataStart%fsb.DataAlign != 0 {
			t.Errorf("DataStart %d not aligned", c.DataStart)
		}

		if len(c.Samples) != 2 {
			t.Fatalf("Samples: got %d, want 2", len(c.Samples))
		}
		first, second := c.Samples[0], c.Samples[1]
		if !first.Info.HasFlags() || second.Info.HasFlags() {
			t.Errorf("HasFlags: got %v/%v, want true/false", first.Info.HasFlags(), second.Info.HasFlags())
		}
		if first.Info.DataOffset() != 0 || second.Info.DataOffset() != 2 {
			t.Errorf("DataOffset: got %d/%d, want 0/2", first.Info.DataOffset(), second.Info.DataOffset())
		}
		if first.Info.NumSamples() != 48000 || second.Info.NumSamples() != 1024 {
			t.Errorf("NumSamples: got %d/%d", first.Info.NumSamples(), second.Info.NumSamples())
		}

		if len(first.Flags) != 3 {
			t.Fatalf("Flags: got %d, want 3", len(first.Flags))
		}
		if f, ok := first.Flags[0].(fsb.ChannelsFlag); !ok || f.Channels != 2 {
			t.Errorf("Flags[0]: got %#v", first.Flags[0])
		}
		if f, ok := first.Flags[1].(fsb.LoopFlag); !ok || f.Start != 100 || f.End != 47000 {
			t.Errorf("Flags[1]: got %#v", first.Flags[1])
		}
		cfg, ok := first.ATRAC9Config()
		want := fsbtest.ConfigWord(7, 1, 256, 2)
		if !ok || !bytes.Equal(cfg, want[:]) {
			t.Errorf("ATRAC9Config: got % X (%v), want % X", cfg, ok, want)
		}

		if len(c.Names) != 2 || c.Names[0] != "music_intro" || c.Names[1] != "sfx" {
			t.Errorf("Names: got %q", c.Names)
		}
		if c.Name(1) != "sfx" {
			t.Errorf("Name(1): got %q", c.Name(1))
		}
	}
}

func TestParseWithoutNames(t *testing.T) {
	c, err := fsb.Parse(bytes.NewReader(twoSampleContainer(1, false).Bytes()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if c.Names != nil {
		t.Errorf("Names: got %q, want nil", c.Names)
	}
	if c.Name(0) != "1" || c.Name(1) != "2" {
		t.Errorf("Name fallback: got %q/%q, want 1/2", c.Name(0), c.Name(1))
	}
}

func TestParseUnknownFlagThenConfig(t *testing.T) {
	unknown := fsb.UnknownFlag{Tag: 0x55, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03}}
	config := fsb.ATRAC9ConfigFlag{Data: []byte{0xFE, 0x72, 0x1F, 0xE0, 0xFE, 0x72, 0x1F, 0xE0}}

	fixture := &fsbtest.Container{
		Version: 1,
		Codec:   fsb.CodecAT9,
		Samples: []fsbtest.Sample{{NumSamples: 1, Flags: []fsb.Flag{unknown, config}, Data: make([]byte, 32)}},
	}

	c, err := fsb.Parse(bytes.NewReader(fixture.Bytes()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	flags := c.Samples[0].Flags
	if len(flags) != 2 {
		t.Fatalf("Flags: got %d, want 2", len(flags))
	}
	got, ok := flags[0].(fsb.UnknownFlag)
	if !ok || got.Tag != 0x55 || !bytes.Equal(got.Data, unknown.Data) {
		t.Errorf("Flags[0]: got %#v, want %#v", flags[0], unknown)
	}
	blob, ok := c.Samples[0].ATRAC9Config()
	if !ok || !bytes.Equal(blob, config.Data) {
		t.Errorf("ATRAC9Config: got % X, want % X", blob, config.Data)
	}
}

func TestParseErrors(t *testing.T) {
	valid := twoSampleContainer(1, true).Bytes()

	badVersion := append([]byte(nil), valid...)
	badVersion[4] = 2

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("FSB4"), valid[4:]...)},
		{"bad version", badVersion},
		{"truncated header", valid[:20]},
		{"truncated descriptors", valid[:70]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fsb.Parse(bytes.NewReader(tt.data))
			if !errors.Is(err, fsb.ErrInvalidContainer) {
				t.Errorf("expected ErrInvalidContainer, got %v", err)
			}
		})
	}
}

func TestParseTruncatedAnywhere(t *testing.T) {
	fixture := twoSampleContainer(0, true)
	valid := fixture.Bytes()

	// Every cut inside the header, descriptor table or name table is a short read
	headerEnd := int(fixture.DataStart())
	for n := 0; n < headerEnd; n++ {
		_, err := fsb.Parse(bytes.NewReader(valid[:n]))
		if err == nil {
			// only alignment padding may be cut
			continue
		}
		if !errors.Is(err, fsb.ErrInvalidContainer) {
			t.Fatalf("cut at %d: expected ErrInvalidContainer, got %v", n, err)
		}
		if n > 4 && !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("cut at %d: expected io.ErrUnexpectedEOF, got %v", n, err)
		}
	}
}

func TestParseUnsupportedCodecStillParses(t *testing.T) {
	fixture := twoSampleContainer(1, false)
	fixture.Codec = fsb.CodecVorbis

	c, err := fsb.Parse(bytes.NewReader(fixture.Bytes()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if c.Codec != fsb.CodecVorbis || c.Codec.String() != "Vorbis" {
		t.Errorf("Codec: got %s", c.Codec)
	}
	if fsb.Codec(99).String() != "Codec(99)" {
		t.Errorf("unknown codec string: got %s", fsb.Codec(99))
	}
}
