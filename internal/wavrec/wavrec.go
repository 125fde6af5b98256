// Package wavrec records the APU's mono sample stream to a 16-bit PCM WAV
// file.
package wavrec

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

type Recorder struct {
	f   *os.File
	enc *wav.Encoder
	buf *audio.IntBuffer
}

// New creates the output file and prepares a mono 16-bit encoder at the
// given sample rate.
func New(path string, sampleRate int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wavrec: %w", err)
	}
	r := &Recorder{
		f:   f,
		enc: wav.NewEncoder(f, sampleRate, 16, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}
	return r, nil
}

// WriteSamples appends a batch of float samples in [-1, 1].
func (r *Recorder) WriteSamples(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	r.buf.Data = r.buf.Data[:0]
	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		r.buf.Data = append(r.buf.Data, int(s*32767))
	}
	if err := r.enc.Write(r.buf); err != nil {
		return fmt.Errorf("wavrec: %w", err)
	}
	return nil
}

// Close finalizes the WAV header and closes the file.
func (r *Recorder) Close() error {
	if err := r.enc.Close(); err != nil {
		r.f.Close()
		return fmt.Errorf("wavrec: %w", err)
	}
	return r.f.Close()
}
