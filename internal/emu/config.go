package emu

// Config contains settings that affect emulation behavior.
type Config struct {
	SampleRate int // audio output rate in Hz; 0 selects 44100
}
