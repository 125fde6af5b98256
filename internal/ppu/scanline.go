package ppu

// DMG shades for palette colors 0..3, one value per RGB channel.
var shades = [4]byte{0xFF, 0xAA, 0x55, 0x00}

// renderScanline rasterizes the line LY into the framebuffer: background,
// then window, then sprites. Called once per line at the mode 3 -> 0
// transition.
func (p *PPU) renderScanline() {
	y := int(p.ly)
	if y >= ScreenHeight {
		return
	}
	p.renderBackground(y)
	p.renderWindow(y)
	p.renderSprites(y)
}

func (p *PPU) setPixel(x, y int, shade byte) {
	i := (y*ScreenWidth + x) * 4
	p.fb[i+0] = shade
	p.fb[i+1] = shade
	p.fb[i+2] = shade
	p.fb[i+3] = 0xFF
}

// tileRow reads the two bitplane bytes for one row of a tile. The signed
// addressing mode bases tile data at 0x9000 with the tile number taken as
// int8; unsigned bases it at 0x8000.
func (p *PPU) tileRow(tileNum byte, signed bool, row byte) (lo, hi byte) {
	var addr uint16
	if signed {
		addr = uint16(0x9000+int(int8(tileNum))*16) + uint16(row)*2
	} else {
		addr = 0x8000 + uint16(tileNum)*16 + uint16(row)*2
	}
	off := addr - 0x8000
	return p.vram[off], p.vram[off+1]
}

func (p *PPU) renderBackground(y int) {
	if p.lcdc&0x01 == 0 {
		// BG disabled: the line shows palette color 0
		for x := 0; x < ScreenWidth; x++ {
			p.lineCI[x] = 0
			p.setPixel(x, y, shades[0])
		}
		return
	}

	mapBase := uint16(0x9800)
	if p.lcdc&0x08 != 0 {
		mapBase = 0x9C00
	}
	signed := p.lcdc&0x10 == 0

	bgy := byte(y) + p.scy
	tileRowOff := uint16(bgy/8) * 32
	fineY := bgy % 8
	for x := 0; x < ScreenWidth; x++ {
		bgx := byte(x) + p.scx
		mapAddr := mapBase + tileRowOff + uint16(bgx/8)
		tileNum := p.vram[mapAddr-0x8000]
		lo, hi := p.tileRow(tileNum, signed, fineY)
		bit := 7 - bgx%8
		ci := (hi>>bit&1)<<1 | lo>>bit&1
		p.lineCI[x] = ci
		p.setPixel(x, y, shades[p.bgp>>(ci*2)&0x03])
	}
}

func (p *PPU) renderWindow(y int) {
	// On DMG the window needs both LCDC bit 5 and the BG enable bit.
	if p.lcdc&0x20 == 0 || p.lcdc&0x01 == 0 {
		return
	}
	if byte(y) < p.wy || p.wx > 166 {
		return
	}
	startX := int(p.wx) - 7
	if startX >= ScreenWidth {
		return
	}

	mapBase := uint16(0x9800)
	if p.lcdc&0x40 != 0 {
		mapBase = 0x9C00
	}
	signed := p.lcdc&0x10 == 0

	tileRowOff := uint16(p.winLine/8) * 32
	fineY := p.winLine % 8
	for x := startX; x < ScreenWidth; x++ {
		if x < 0 {
			continue
		}
		wxCol := byte(x - startX)
		mapAddr := mapBase + tileRowOff + uint16(wxCol/8)
		tileNum := p.vram[mapAddr-0x8000]
		lo, hi := p.tileRow(tileNum, signed, fineY)
		bit := 7 - wxCol%8
		ci := (hi>>bit&1)<<1 | lo>>bit&1
		p.lineCI[x] = ci
		p.setPixel(x, y, shades[p.bgp>>(ci*2)&0x03])
	}
	p.winLine++
}

// Sprite attribute flag bits.
const (
	sprBehindBG byte = 1 << 7
	sprFlipY    byte = 1 << 6
	sprFlipX    byte = 1 << 5
	sprPalette  byte = 1 << 4
)

type sprite struct {
	y, x       int // top-left screen position (OAM values offset by 16/8)
	tile, attr byte
}

func (p *PPU) renderSprites(y int) {
	if p.lcdc&0x02 == 0 {
		return
	}
	height := 8
	if p.lcdc&0x04 != 0 {
		height = 16
	}

	// Hardware picks at most ten sprites per line, in OAM order.
	var line []sprite
	for i := 0; i < 40 && len(line) < 10; i++ {
		base := i * 4
		s := sprite{
			y:    int(p.oam[base]) - 16,
			x:    int(p.oam[base+1]) - 8,
			tile: p.oam[base+2],
			attr: p.oam[base+3],
		}
		if y >= s.y && y < s.y+height {
			line = append(line, s)
		}
	}

	// Reverse selection order: earlier OAM entries draw last and win.
	for i := len(line) - 1; i >= 0; i-- {
		s := line[i]
		row := y - s.y
		if s.attr&sprFlipY != 0 {
			row = height - 1 - row
		}
		tile := s.tile
		if height == 16 {
			tile &= 0xFE
			if row >= 8 {
				tile++
			}
		}
		addr := uint16(tile)*16 + uint16(row&7)*2
		lo, hi := p.vram[addr], p.vram[addr+1]

		pal := p.obp0
		if s.attr&sprPalette != 0 {
			pal = p.obp1
		}
		for col := 0; col < 8; col++ {
			x := s.x + col
			if x < 0 || x >= ScreenWidth {
				continue
			}
			bit := byte(7 - col)
			if s.attr&sprFlipX != 0 {
				bit = byte(col)
			}
			ci := (hi>>bit&1)<<1 | lo>>bit&1
			if ci == 0 {
				continue // color 0 is transparent
			}
			if s.attr&sprBehindBG != 0 && p.lineCI[x] != 0 {
				continue
			}
			p.setPixel(x, y, shades[pal>>(ci*2)&0x03])
		}
	}
}
