// Package ui is the ebiten front end: it blits the machine's framebuffer,
// maps the keyboard onto the joypad, and streams APU samples to the audio
// player.
package ui

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/gophergb/gophergb/internal/emu"
	"github.com/gophergb/gophergb/internal/wavrec"
)

type App struct {
	cfg Config
	m   *emu.Machine
	tex *ebiten.Image

	paused bool
	fast   bool

	audioCtx    *audio.Context
	audioPlayer *audio.Player
}

func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	return &App{cfg: cfg, m: m}
}

// SetWAVRecorder tees played audio into rec.
func (a *App) SetWAVRecorder(rec *wavrec.Recorder) {
	a.startAudio(rec)
}

func (a *App) Run() error {
	if a.audioPlayer == nil && !a.cfg.Mute {
		a.startAudio(nil)
	}
	return ebiten.RunGame(a)
}

func (a *App) startAudio(rec *wavrec.Recorder) {
	if a.cfg.Mute && rec == nil {
		return
	}
	rate := a.m.AudioSampleRate()
	if rate <= 0 {
		return
	}
	a.audioCtx = audio.NewContext(rate)
	p, err := a.audioCtx.NewPlayer(&apuStream{m: a.m, muted: a.cfg.Mute, rec: rec})
	if err != nil {
		return
	}
	p.SetBufferSize(40 * time.Millisecond)
	a.audioPlayer = p
	p.Play()
}

func (a *App) Update() error {
	var btn emu.Buttons
	btn.Right = ebiten.IsKeyPressed(ebiten.KeyRight)
	btn.Left = ebiten.IsKeyPressed(ebiten.KeyLeft)
	btn.Up = ebiten.IsKeyPressed(ebiten.KeyUp)
	btn.Down = ebiten.IsKeyPressed(ebiten.KeyDown)
	btn.A = ebiten.IsKeyPressed(ebiten.KeyZ)
	btn.B = ebiten.IsKeyPressed(ebiten.KeyX)
	btn.Start = ebiten.IsKeyPressed(ebiten.KeyEnter)
	btn.Select = ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	a.m.SetButtons(btn)

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.m.Reset()
	}

	// frame-step while paused
	if a.paused && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		if err := a.m.StepFrame(); err != nil {
			return err
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		_ = a.saveScreenshot()
	}

	if !a.paused {
		frames := 1
		if a.fast {
			frames = 5
		}
		for i := 0; i < frames; i++ {
			if err := a.m.StepFrame(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.Framebuffer())
	screen.DrawImage(a.tex, nil)
}

func (a *App) Layout(outW, outH int) (int, int) { return 160, 144 }

func (a *App) saveScreenshot() error {
	fb := a.m.Framebuffer()
	img := &image.RGBA{
		Pix:    append([]byte(nil), fb...),
		Stride: 4 * 160,
		Rect:   image.Rect(0, 0, 160, 144),
	}
	name := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
