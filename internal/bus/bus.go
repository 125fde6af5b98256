// Package bus owns the 16-bit address space: it decodes every CPU access into
// the cartridge, VRAM/OAM (PPU), work and high RAM, and the IO register file,
// and it fans the CPU's cycle counts out to the PPU, timer, and APU.
package bus

import (
	"io"

	"github.com/gophergb/gophergb/internal/apu"
	"github.com/gophergb/gophergb/internal/cart"
	"github.com/gophergb/gophergb/internal/joypad"
	"github.com/gophergb/gophergb/internal/ppu"
	"github.com/gophergb/gophergb/internal/timer"
)

// Interrupt bits in IF/IE, in priority order.
const (
	IntVBlank = 0
	IntSTAT   = 1
	IntTimer  = 2
	IntSerial = 3
	IntJoypad = 4
)

type Bus struct {
	cart cart.Cartridge
	ppu  *ppu.PPU
	tim  *timer.Timer
	joy  *joypad.Joypad
	apu  *apu.APU

	wram [0x2000]byte // 0xC000–0xDFFF, echoed at 0xE000–0xFDFF
	hram [0x7F]byte   // 0xFF80–0xFFFE
	io   [0x80]byte   // backing store for IO regs without special handling

	ifReg byte // FF0F
	ie    byte // FFFF

	sb  byte // FF01
	sc  byte // FF02
	dma byte // FF46, last written value

	serial       []byte // bytes written to FF01, drained by TakeSerialBytes
	serialWriter io.Writer
}

// New wires a bus around the given cartridge, creating the PPU, timer,
// joypad, and APU with their interrupt lines attached. sampleRate selects
// the APU output rate; 0 picks the default.
func New(c cart.Cartridge, sampleRate int) *Bus {
	b := &Bus{cart: c}
	b.ppu = ppu.New(b.RequestInterrupt)
	b.tim = timer.New(b.RequestInterrupt)
	b.joy = joypad.New(b.RequestInterrupt)
	b.apu = apu.New(sampleRate)
	return b
}

// NewWithROM is a convenience for tests and tools: a bus over a flat ROM.
func NewWithROM(rom []byte) *Bus {
	return New(cart.NewROMOnly(rom), 0)
}

func (b *Bus) PPU() *ppu.PPU          { return b.ppu }
func (b *Bus) Timer() *timer.Timer    { return b.tim }
func (b *Bus) Joypad() *joypad.Joypad { return b.joy }
func (b *Bus) APU() *apu.APU          { return b.apu }
func (b *Bus) Cart() cart.Cartridge   { return b.cart }

// RequestInterrupt sets a bit in IF.
func (b *Bus) RequestInterrupt(bit int) {
	b.ifReg |= 1 << uint(bit)
}

// Tick advances the PPU, timer, and APU by the cycle count the CPU just
// consumed. Called strictly after each instruction.
func (b *Bus) Tick(cycles int) {
	b.ppu.Tick(cycles)
	b.tim.Tick(cycles)
	b.apu.Tick(cycles)
}

// SetSerialWriter mirrors serial bytes into w as they are written. Used by
// test-ROM harnesses that watch for "Passed"/"Failed".
func (b *Bus) SetSerialWriter(w io.Writer) { b.serialWriter = w }

// TakeSerialBytes consumes and returns the bytes written to FF01 since the
// last call.
func (b *Bus) TakeSerialBytes() []byte {
	out := b.serial
	b.serial = nil
	return out
}

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return b.cart.Read(addr)
	case addr <= 0x9FFF:
		return b.ppu.Read(addr)
	case addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr <= 0xFDFF:
		return b.wram[addr-0xE000]
	case addr <= 0xFE9F:
		return b.ppu.Read(addr)
	case addr <= 0xFEFF:
		return 0xFF // unusable region
	case addr == 0xFFFF:
		return b.ie
	case addr >= 0xFF80:
		return b.hram[addr-0xFF80]
	default:
		return b.readIO(addr)
	}
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr <= 0x9FFF:
		b.ppu.Write(addr, value)
	case addr <= 0xBFFF:
		b.cart.Write(addr, value)
	case addr <= 0xDFFF:
		b.wram[addr-0xC000] = value
	case addr <= 0xFDFF:
		b.wram[addr-0xE000] = value
	case addr <= 0xFE9F:
		b.ppu.Write(addr, value)
	case addr <= 0xFEFF:
		// unusable region, dropped
	case addr == 0xFFFF:
		b.ie = value
	case addr >= 0xFF80:
		b.hram[addr-0xFF80] = value
	default:
		b.writeIO(addr, value)
	}
}

func (b *Bus) readIO(addr uint16) byte {
	switch {
	case addr == 0xFF00:
		return b.joy.Read()
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return b.sc
	case addr >= 0xFF04 && addr <= 0xFF07:
		return b.tim.Read(addr)
	case addr == 0xFF0F:
		return 0xE0 | b.ifReg&0x1F
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return b.apu.Read(addr)
	case addr == 0xFF46:
		return b.dma
	case addr >= 0xFF40 && addr <= 0xFF4B:
		return b.ppu.Read(addr)
	default:
		return b.io[addr-0xFF00]
	}
}

func (b *Bus) writeIO(addr uint16, value byte) {
	switch {
	case addr == 0xFF00:
		b.joy.Write(value)
	case addr == 0xFF01:
		b.sb = value
		b.serial = append(b.serial, value)
		if b.serialWriter != nil {
			b.serialWriter.Write([]byte{value})
		}
	case addr == 0xFF02:
		if value&0x80 != 0 {
			// no link cable: the transfer completes instantly
			b.sc = value & 0x7F
		} else {
			b.sc = value
		}
	case addr >= 0xFF04 && addr <= 0xFF07:
		b.tim.Write(addr, value)
	case addr == 0xFF0F:
		b.ifReg = value & 0x1F
	case addr >= 0xFF10 && addr <= 0xFF3F:
		b.apu.Write(addr, value)
	case addr == 0xFF46:
		b.dma = value
		b.dmaTransfer(value)
	case addr >= 0xFF40 && addr <= 0xFF4B:
		b.ppu.Write(addr, value)
	default:
		b.io[addr-0xFF00] = value
	}
}

// dmaTransfer copies 160 bytes from value<<8 into OAM. Real hardware takes
// 640 cycles; the copy here is atomic within the write.
func (b *Bus) dmaTransfer(value byte) {
	src := uint16(value) << 8
	for i := uint16(0); i < 0xA0; i++ {
		b.ppu.Write(0xFE00+i, b.Read(src+i))
	}
}
