package ui

// Config contains window/input/audio related settings.
type Config struct {
	Title string // window title
	Scale int    // integer upscaling factor
	Mute  bool   // disable audio playback
}

// Defaults fills missing fields with reasonable values.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gophergb"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
}
