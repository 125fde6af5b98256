package cart

// Cartridge is the strategy the bus routes all cartridge traffic through.
// Read covers ROM (0x0000–0x7FFF) and external RAM (0xA000–0xBFFF); Write
// covers MBC control registers in the ROM range and external RAM stores.
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

// BatteryBacked is implemented by cartridges whose external RAM should be
// persisted between runs. SaveRAM returns a copy of the RAM contents (nil if
// the cartridge has none).
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// New selects a cartridge implementation from the header's cart type byte.
// ROMs without a parseable header (small homebrew and test stubs) get the
// flat ROM-only view.
func New(rom []byte) Cartridge {
	h, err := ParseHeader(rom)
	if err != nil {
		return NewROMOnly(rom)
	}
	switch h.CartType {
	case 0x00:
		return NewROMOnly(rom)
	case 0x01, 0x02, 0x03:
		return NewMBC1(rom, h.RAMSizeBytes)
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return NewMBC3(rom, h.RAMSizeBytes)
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return NewMBC5(rom, h.RAMSizeBytes)
	default:
		// Unknown mapper: the flat view still lets most test ROMs run.
		return NewROMOnly(rom)
	}
}
