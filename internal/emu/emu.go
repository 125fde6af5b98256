// Package emu assembles the cartridge, bus, and CPU into a steppable machine
// and exposes the host-facing surface: frame stepping, the framebuffer,
// button state, serial output, and audio samples.
package emu

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/gophergb/gophergb/internal/bus"
	"github.com/gophergb/gophergb/internal/cart"
	"github.com/gophergb/gophergb/internal/cpu"
	"github.com/gophergb/gophergb/internal/joypad"
)

// CyclesPerFrame is the T-cycle length of one LCD frame:
// 144 visible lines plus 10 VBlank lines at 456 cycles each.
const CyclesPerFrame = 70224

// Buttons is the full input state for one host frame.
type Buttons struct {
	A, B, Select, Start   bool
	Right, Left, Up, Down bool
}

// SerialStatus is the test-ROM verdict extracted from the serial stream.
type SerialStatus int

const (
	SerialUnknown SerialStatus = iota
	SerialPassed
	SerialFailed
)

type Machine struct {
	cfg Config

	bus *bus.Bus
	cpu *cpu.CPU

	romPath string

	serialLog    bytes.Buffer // everything written to FF01, for status checks
	serialMirror io.Writer
}

func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// LoadCartridge wires a machine around the given ROM image and resets the
// CPU and IO registers to DMG post-boot state.
func (m *Machine) LoadCartridge(rom []byte) error {
	if len(rom) == 0 {
		return fmt.Errorf("emu: empty ROM")
	}
	b := bus.New(cart.New(rom), m.cfg.SampleRate)
	b.SetSerialWriter(serialTee{m})
	c := cpu.New(b)
	c.Reset()
	m.bus = b
	m.cpu = c
	m.serialLog.Reset()
	m.applyPostBootIO()
	return nil
}

// LoadROMFromFile loads a cartridge image from disk.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("emu: read ROM: %w", err)
	}
	if err := m.LoadCartridge(data); err != nil {
		return err
	}
	m.romPath = path
	return nil
}

// ROMPath returns the path of the currently loaded ROM, if any.
func (m *Machine) ROMPath() string { return m.romPath }

// Bus exposes the bus for tests and tools.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// CPU exposes the CPU for tests and tools.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// Reset returns the machine to post-boot state, keeping the cartridge.
func (m *Machine) Reset() {
	if m.cpu == nil {
		return
	}
	m.cpu.Reset()
	m.applyPostBootIO()
}

// applyPostBootIO sets the IO registers to the values the DMG boot ROM
// leaves behind, so cartridges can start at 0x0100 with the LCD running.
func (m *Machine) applyPostBootIO() {
	b := m.bus
	b.Write(0xFF00, 0xCF) // P1: select bits 4-5 low, both groups selected
	b.Write(0xFF05, 0x00) // TIMA
	b.Write(0xFF06, 0x00) // TMA
	b.Write(0xFF07, 0x00) // TAC: timer disabled
	b.Write(0xFF40, 0x91) // LCDC: LCD+BG on, tile data 0x8000, sprites 8x8
	b.Write(0xFF42, 0x00) // SCY
	b.Write(0xFF43, 0x00) // SCX
	b.Write(0xFF45, 0x00) // LYC
	b.Write(0xFF47, 0xFC) // BGP
	b.Write(0xFF48, 0xFF) // OBP0
	b.Write(0xFF49, 0xFF) // OBP1
	b.Write(0xFF4A, 0x00) // WY
	b.Write(0xFF4B, 0x00) // WX
	b.Write(0xFF26, 0x80) // NR52: APU power
	b.Write(0xFF24, 0x77) // NR50
	b.Write(0xFF25, 0xFF) // NR51
	b.Write(0xFFFF, 0x00) // IE
}

// StepFrame runs the stepping loop for one frame: CPU instructions with the
// PPU/timer/APU advanced strictly after each one, until at least
// CyclesPerFrame T-cycles have elapsed. The returned error is fatal (unknown
// opcode).
func (m *Machine) StepFrame() error {
	if m.cpu == nil {
		return fmt.Errorf("emu: no cartridge loaded")
	}
	acc := 0
	for acc < CyclesPerFrame {
		cycles, err := m.cpu.Step()
		if err != nil {
			return err
		}
		m.bus.Tick(cycles)
		acc += cycles
	}
	return nil
}

// Framebuffer returns the 160x144 RGBA pixel buffer, valid until the next
// StepFrame.
func (m *Machine) Framebuffer() []byte {
	return m.bus.PPU().Framebuffer()
}

// SetButtons latches the full input state, pressing and releasing as needed.
func (m *Machine) SetButtons(b Buttons) {
	if m.bus == nil {
		return
	}
	j := m.bus.Joypad()
	j.Set(joypad.A, b.A)
	j.Set(joypad.B, b.B)
	j.Set(joypad.Select, b.Select)
	j.Set(joypad.Start, b.Start)
	j.Set(joypad.Right, b.Right)
	j.Set(joypad.Left, b.Left)
	j.Set(joypad.Up, b.Up)
	j.Set(joypad.Down, b.Down)
}

// SetButtonState sets one input by its host ID:
// A=0 B=1 Select=2 Start=3 Right=4 Left=5 Up=6 Down=7.
func (m *Machine) SetButtonState(id int, pressed bool) {
	if m.bus == nil || id < 0 || id > 7 {
		return
	}
	m.bus.Joypad().Set(joypad.Button(id), pressed)
}

// TakeSerialBytes consumes and returns bytes written to the serial port since
// the last call.
func (m *Machine) TakeSerialBytes() []byte {
	if m.bus == nil {
		return nil
	}
	return m.bus.TakeSerialBytes()
}

// SetSerialWriter mirrors serial bytes into w in addition to the internal
// log.
func (m *Machine) SetSerialWriter(w io.Writer) { m.serialMirror = w }

// SerialStatus scans everything the guest has written to the serial port for
// the test-ROM terminators.
func (m *Machine) SerialStatus() SerialStatus {
	s := m.serialLog.Bytes()
	if bytes.Contains(s, []byte("Passed")) {
		return SerialPassed
	}
	if bytes.Contains(s, []byte("Failed")) {
		return SerialFailed
	}
	return SerialUnknown
}

// SerialOutput returns everything written to the serial port since load.
func (m *Machine) SerialOutput() string { return m.serialLog.String() }

// serialTee feeds the machine's serial log and the optional mirror writer.
type serialTee struct{ m *Machine }

func (t serialTee) Write(p []byte) (int, error) {
	t.m.serialLog.Write(p)
	if t.m.serialMirror != nil {
		t.m.serialMirror.Write(p)
	}
	return len(p), nil
}

// PullAudio drains up to max buffered mono samples from the APU.
func (m *Machine) PullAudio(max int) []float32 {
	if m.bus == nil {
		return nil
	}
	return m.bus.APU().PullSamples(max)
}

// AudioBuffered reports how many samples the APU has queued.
func (m *Machine) AudioBuffered() int {
	if m.bus == nil {
		return 0
	}
	return m.bus.APU().Available()
}

// AudioSampleRate returns the APU output rate in Hz.
func (m *Machine) AudioSampleRate() int {
	if m.bus == nil {
		return 0
	}
	return m.bus.APU().SampleRate()
}

// SaveBattery returns a copy of battery-backed cartridge RAM, if the mapper
// has any.
func (m *Machine) SaveBattery() ([]byte, bool) {
	if m.bus == nil {
		return nil, false
	}
	if bb, ok := m.bus.Cart().(cart.BatteryBacked); ok {
		data := bb.SaveRAM()
		if len(data) == 0 {
			return nil, false
		}
		return data, true
	}
	return nil, false
}

// LoadBattery restores battery-backed cartridge RAM.
func (m *Machine) LoadBattery(data []byte) bool {
	if m.bus == nil || len(data) == 0 {
		return false
	}
	if bb, ok := m.bus.Cart().(cart.BatteryBacked); ok {
		bb.LoadRAM(data)
		return true
	}
	return false
}
