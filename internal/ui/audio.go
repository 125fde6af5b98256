package ui

import (
	"encoding/binary"

	"github.com/gophergb/gophergb/internal/emu"
	"github.com/gophergb/gophergb/internal/wavrec"
)

// apuStream adapts the machine's mono float samples to the 16-bit
// little-endian stereo frames the ebiten audio player reads. When the APU
// has nothing buffered it emits a short run of silence rather than blocking
// the mixer.
type apuStream struct {
	m     *emu.Machine
	muted bool
	rec   *wavrec.Recorder
}

func (s *apuStream) Read(p []byte) (int, error) {
	if len(p) < 4 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	want := len(p) / 4
	if want > 2048 {
		want = 2048 // cap per-read to keep latency bounded
	}

	samples := s.m.PullAudio(want)
	if s.rec != nil {
		_ = s.rec.WriteSamples(samples)
	}
	if len(samples) == 0 {
		n := 256
		if n > want {
			n = want
		}
		for i := 0; i < n*4; i++ {
			p[i] = 0
		}
		return n * 4, nil
	}

	i := 0
	for _, v := range samples {
		if s.muted {
			v = 0
		}
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		frame := uint16(int16(v * 32767))
		binary.LittleEndian.PutUint16(p[i:], frame)
		binary.LittleEndian.PutUint16(p[i+2:], frame)
		i += 4
	}
	return i, nil
}
