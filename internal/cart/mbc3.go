package cart

// MBC3 banks ROM with a 7-bit bank register and RAM with a 2-bit one. The
// RTC register window (selects 0x08–0x0C) is not implemented; selecting it
// reads as open bus.
type MBC3 struct {
	rom []byte
	ram []byte

	romBank    byte // 1..127
	ramBank    byte // 0..3; 0xFF while an RTC register is selected
	ramEnabled bool
}

func NewMBC3(rom []byte, ramSize int) *MBC3 {
	m := &MBC3{rom: rom, romBank: 1, ramBank: 0}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	return m
}

func (m *MBC3) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		bank := int(m.romBank & 0x7F)
		if bank == 0 {
			bank = 1
		}
		off := bank*0x4000 + int(addr-0x4000)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if off, ok := m.ramOffset(addr); ok {
			return m.ram[off]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *MBC3) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		v := value & 0x7F
		if v == 0 {
			v = 1
		}
		m.romBank = v
	case addr < 0x6000:
		if value <= 0x03 {
			m.ramBank = value
		} else {
			m.ramBank = 0xFF // RTC select, unmapped here
		}
	case addr < 0x8000:
		// latch clock; no RTC to latch
	case addr >= 0xA000 && addr <= 0xBFFF:
		if off, ok := m.ramOffset(addr); ok {
			m.ram[off] = value
		}
	}
}

func (m *MBC3) ramOffset(addr uint16) (int, bool) {
	if !m.ramEnabled || len(m.ram) == 0 || m.ramBank > 0x03 {
		return 0, false
	}
	off := int(m.ramBank)*0x2000 + int(addr-0xA000)
	if off >= len(m.ram) {
		return 0, false
	}
	return off, true
}

func (m *MBC3) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	return append([]byte(nil), m.ram...)
}

func (m *MBC3) LoadRAM(data []byte) {
	copy(m.ram, data)
}
