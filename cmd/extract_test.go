package cmd

import (
	"path/filepath"
	"testing"
)

func TestOutputDirs(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
		want   []string
	}{
		{"single input uses out directly", []string{"banks/music.fsb"}, []string{"out"}},
		{"several inputs get a directory each", []string{"banks/music.fsb", "sfx.bank.fsb", "voice"},
			[]string{filepath.Join("out", "music"), filepath.Join("out", "sfx.bank"), filepath.Join("out", "voice")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := outputDirs(tt.inputs, "out")
			if err != nil {
				t.Fatalf("outputDirs failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("dir %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestOutputDirsCollision(t *testing.T) {
	if _, err := outputDirs([]string{"a/music.fsb", "b/music.fsb"}, "out"); err == nil {
		t.Error("expected error for inputs sharing a name")
	}
}
