// Package fsbtest builds synthetic FSB5 containers for tests.
package fsbtest

import (
	"bytes"
	"encoding/binary"

	"github.com/drgolem/fsbtools/pkg/at9"
	"github.com/drgolem/fsbtools/pkg/fsb"

	"github.com/google/uuid"
	"github.com/icza/bitio"
)

// Sample describes one sample of a synthetic container.
type Sample struct {
	Name       string
	NumSamples uint32
	Flags      []fsb.Flag

	// Data is written to the sample data region, zero padded to fsb.DataAlign.
	Data []byte
}

// Container describes a synthetic FSB5 file.
type Container struct {
	Version uint32
	Codec   fsb.Codec
	GUID    uuid.UUID
	Hash    [8]byte
	Samples []Sample

	// Names adds a name table built from Sample.Name.
	Names bool
}

// ConfigWord packs ATRAC9 config fields MSB first, independently of at9.ConfigWord.
func ConfigWord(sampleRateIdx, channelCfgIdx uint8, frameBytes uint16, superframeExp uint8) [4]byte {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	w.TryWriteBits(at9.SyncByte, 8)
	w.TryWriteBits(uint64(sampleRateIdx), 4)
	w.TryWriteBits(uint64(channelCfgIdx), 3)
	w.TryWriteBool(false)
	w.TryWriteBits(uint64(frameBytes-1), 11)
	w.TryWriteBits(uint64(superframeExp), 2)
	w.TryWriteBits(0, 3)
	if w.TryError != nil {
		panic(w.TryError)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}

	var word [4]byte
	copy(word[:], buf.Bytes())
	return word
}

// ConfigFlag concatenates config words into an ATRAC9 config flag.
func ConfigFlag(words ...[4]byte) fsb.ATRAC9ConfigFlag {
	var data []byte
	for _, w := range words {
		data = append(data, w[:]...)
	}
	return fsb.ATRAC9ConfigFlag{Data: data}
}

func padded(n int) int {
	if rem := n % fsb.DataAlign; rem != 0 {
		return n + fsb.DataAlign - rem
	}
	return n
}

// Bytes encodes c as an FSB5 file.
func (c *Container) Bytes() []byte {
	var descriptors []byte
	var data []byte
	for _, s := range c.Samples {
		info := fsb.SampleInfo(0).
			WithHasFlags(len(s.Flags) > 0).
			WithDataOffset(uint32(len(data) / fsb.DataAlign)).
			WithNumSamples(s.NumSamples)
		descriptors = binary.LittleEndian.AppendUint64(descriptors, uint64(info))
		for i, f := range s.Flags {
			descriptors = fsb.AppendFlag(descriptors, f, i < len(s.Flags)-1)
		}

		data = append(data, s.Data...)
		data = append(data, make([]byte, padded(len(s.Data))-len(s.Data))...)
	}

	var names []byte
	if c.Names {
		var strs []byte
		for _, s := range c.Samples {
			names = binary.LittleEndian.AppendUint32(names, uint32(len(strs)))
			strs = append(strs, s.Name...)
			strs = append(strs, 0)
		}
		names = append(names, strs...)
	}

	le := binary.LittleEndian
	var out []byte
	out = append(out, fsb.Magic...)
	out = le.AppendUint32(out, c.Version)
	out = le.AppendUint32(out, uint32(len(c.Samples)))
	out = le.AppendUint32(out, uint32(len(descriptors)))
	out = le.AppendUint32(out, uint32(len(names)))
	out = le.AppendUint32(out, uint32(len(data)))
	out = le.AppendUint32(out, uint32(c.Codec))
	if c.Version == 0 {
		out = append(out, make([]byte, 8)...)
	} else {
		out = append(out, make([]byte, 4)...)
	}
	out = append(out, 0, 0, 0, 0) // flags
	out = append(out, c.GUID[:]...)
	out = append(out, c.Hash[:]...)
	out = append(out, descriptors...)
	out = append(out, names...)
	out = append(out, make([]byte, padded(len(out))-len(out))...)
	out = append(out, data...)

	return out
}

// DataStart returns the offset at which Bytes places the sample data region.
func (c *Container) DataStart() int64 {
	b := c.Bytes()
	dataSize := 0
	for _, s := range c.Samples {
		dataSize += padded(len(s.Data))
	}
	return int64(len(b) - dataSize)
}
