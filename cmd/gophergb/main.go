package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gophergb/gophergb/internal/cart"
	"github.com/gophergb/gophergb/internal/emu"
	"github.com/gophergb/gophergb/internal/ui"
	"github.com/gophergb/gophergb/internal/wavrec"
)

type cliFlags struct {
	Scale   int
	Title   string
	Mute    bool
	WAVOut  string
	SaveRAM bool

	Headless bool
	Frames   int
	PNGOut   string
	Expect   string // expected framebuffer CRC32 (hex)
}

func parseFlags() (cliFlags, string) {
	var f cliFlags
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "gophergb", "window title")
	flag.BoolVar(&f.Mute, "mute", false, "disable audio playback")
	flag.StringVar(&f.WAVOut, "wav", "", "record audio to a WAV file at path")
	flag.BoolVar(&f.SaveRAM, "save", true, "persist battery RAM to ROM.sav")

	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] rom.gb\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	return f, flag.Arg(0)
}

func runHeadless(m *emu.Machine, f cliFlags) error {
	frames := f.Frames
	if frames <= 0 {
		frames = 1
	}

	var rec *wavrec.Recorder
	if f.WAVOut != "" {
		var err error
		rec, err = wavrec.New(f.WAVOut, m.AudioSampleRate())
		if err != nil {
			return err
		}
		defer rec.Close()
	}

	start := time.Now()
	for i := 0; i < frames; i++ {
		if err := m.StepFrame(); err != nil {
			return err
		}
		if rec != nil {
			if err := rec.WriteSamples(m.PullAudio(1 << 20)); err != nil {
				return err
			}
		}
	}
	dur := time.Since(start)

	fb := m.Framebuffer()
	crc := crc32.ChecksumIEEE(fb)
	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		frames, dur.Truncate(time.Millisecond), float64(frames)/dur.Seconds(), crc)

	if f.PNGOut != "" {
		if err := saveFramePNG(fb, 160, 144, f.PNGOut); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", f.PNGOut)
	}

	if f.Expect != "" {
		want := strings.TrimPrefix(strings.ToLower(f.Expect), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    append([]byte(nil), pix...),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func savPath(romPath string) string {
	if strings.HasSuffix(strings.ToLower(romPath), ".gb") {
		return strings.TrimSuffix(romPath, ".gb") + ".sav"
	}
	return romPath + ".sav"
}

func main() {
	f, romPath := parseFlags()
	if romPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	m := emu.New(emu.Config{})
	if err := m.LoadROMFromFile(romPath); err != nil {
		log.Fatalf("load ROM: %v", err)
	}

	if rom, err := os.ReadFile(romPath); err == nil && len(rom) >= 0x150 {
		if h, err := cart.ParseHeader(rom); err == nil {
			log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
		}
	}

	sav := savPath(romPath)
	if f.SaveRAM {
		if data, err := os.ReadFile(sav); err == nil {
			if m.LoadBattery(data) {
				log.Printf("loaded save RAM: %s (%d bytes)", sav, len(data))
			}
		}
	}

	writeBattery := func() {
		if !f.SaveRAM {
			return
		}
		if data, ok := m.SaveBattery(); ok {
			if err := os.WriteFile(sav, data, 0644); err == nil {
				log.Printf("wrote %s", sav)
			}
		}
	}

	if f.Headless {
		if err := runHeadless(m, f); err != nil {
			log.Fatal(err)
		}
		writeBattery()
		return
	}

	app := ui.NewApp(ui.Config{Title: f.Title, Scale: f.Scale, Mute: f.Mute}, m)
	if f.WAVOut != "" {
		rec, err := wavrec.New(f.WAVOut, m.AudioSampleRate())
		if err != nil {
			log.Fatal(err)
		}
		defer rec.Close()
		app.SetWAVRecorder(rec)
	}
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
	writeBattery()
}
