// Package c128 builds the Commodore 128's Address Space: two 64K banks, an
// MMU configuration register (mirrored at D500-D50B and FF00) selecting
// which of BASIC-LO/BASIC-HI/KERNAL/IO/CHARGEN are visible and which bank
// is active, plus zero-page/stack relocation and the C64-mode switch signal
// on D505 bit 6.
package c128

import (
	"github.com/orinoco8/cbmtext/console"
	"github.com/orinoco8/cbmtext/cpu"
	"github.com/orinoco8/cbmtext/hooks"
	"github.com/orinoco8/cbmtext/machine"
	"github.com/orinoco8/cbmtext/memory"
)

const (
	basicLoBase = 0x4000
	basicLoSize = 0x4000
	basicHiBase = 0x8000
	basicHiSize = 0x4000
	kernalBase  = 0xC000
	kernalSize  = 0x4000
	ioBase      = 0xD000
	ioSize      = 0x1000
	charBase    = 0xD000
	charSize    = 0x1000

	mmuBase   = 0xD500
	mmuSize   = 0x0C
	mmuMirror = 0xFF00
	loadRegs  = 0xFF01 // FF01-FF04, LCRA/B/C/D
	c64Switch = 0xD505

	rcrReg   = 0xD506 // RAM configuration register: common RAM size/placement.
	page0Reg = 0xD508 // Zero-page relocation: the page zero-page addressing targets.
	page1Reg = 0xD509 // Stack-page relocation: the page push/pop operations target.

	bankSize = 1 << 16
)

// CR bits, matching the real MMU configuration register layout closely
// enough to drive this emulator's visibility decisions.
const (
	crCharenIO = 1 << 0 // 0 = I/O visible at D000-DFFF, 1 = CHARGEN visible there.
	crHiram    = 1 << 1 // KERNAL visible at C000-FFFF (except D000-DFFF).
	crLoram    = 1 << 2 // BASIC-LO/BASIC-HI visible.
	crBank1    = 1 << 6 // Active 64K bank: 0 or 1.
)

// RCR bits. Size selects how much of the bottom and/or top of every bank is
// shared RAM, always physically backed by bank 0, visible identically from
// bank 0 and bank 1 regardless of crBank1.
const (
	rcrSize1K   = 0
	rcrSize4K   = 1
	rcrSize8K   = 2
	rcrSize16K  = 3
	rcrSizeMask = 0x03

	rcrBottomEnable = 1 << 6
	rcrTopEnable    = 1 << 7
)

// ROMs bundles the firmware image paths a C128 needs.
type ROMs struct {
	BasicLo, BasicHi, Kernal, CharROM string
}

type addrSpace struct {
	banks [2]memory.Bank // Bank 0 and bank 1, each a full 64K.
	basicLo, basicHi, kernal, chargen memory.Bank

	cr          uint8
	loadRegVals [4]uint8
	rcr         uint8
	page0Val    uint8
	page1Val    uint8

	onC64Switch       func()
	onZeroPageChange  func(page uint8)
	onStackPageChange func(page uint8)

	parent     memory.Bank
	databusVal uint8
}

func newAddrSpace(roms ROMs) (*addrSpace, error) {
	bank0, err := memory.New8BitRAMBank(bankSize, nil)
	if err != nil {
		return nil, err
	}
	bank1, err := memory.New8BitRAMBank(bankSize, nil)
	if err != nil {
		return nil, err
	}
	basicLo, err := memory.NewROMBank(roms.BasicLo, basicLoSize, nil)
	if err != nil {
		return nil, err
	}
	basicHi, err := memory.NewROMBank(roms.BasicHi, basicHiSize, nil)
	if err != nil {
		return nil, err
	}
	kernal, err := memory.NewROMBank(roms.Kernal, kernalSize, nil)
	if err != nil {
		return nil, err
	}
	chargen, err := memory.NewROMBank(roms.CharROM, charSize, nil)
	if err != nil {
		return nil, err
	}
	return &addrSpace{
		banks:   [2]memory.Bank{bank0, bank1},
		basicLo: basicLo, basicHi: basicHi, kernal: kernal, chargen: chargen,
		cr:       crHiram | crLoram,
		page1Val: 0x01,
	}, nil
}

// commonSize returns how many bytes of common RAM rcr currently selects.
func (a *addrSpace) commonSize() int {
	switch a.rcr & rcrSizeMask {
	case rcrSize1K:
		return 0x0400
	case rcrSize4K:
		return 0x1000
	case rcrSize8K:
		return 0x2000
	default:
		return 0x4000
	}
}

// inCommonRAM reports whether addr falls in a bottom or top window rcr has
// enabled. Common RAM is always physically bank 0, visible from both banks.
// The D000-DFFF I/O/MMU window is never part of either window: on real
// hardware the MMU's own registers stay reachable no matter how the rest of
// memory is mapped.
func (a *addrSpace) inCommonRAM(addr uint16) bool {
	if addr >= ioBase && addr < ioBase+ioSize {
		return false
	}
	size := a.commonSize()
	if a.rcr&rcrBottomEnable != 0 && int(addr) < size {
		return true
	}
	if a.rcr&rcrTopEnable != 0 && int(addr) >= 0x10000-size {
		return true
	}
	return false
}

func (a *addrSpace) activeBank() memory.Bank {
	if a.cr&crBank1 != 0 {
		return a.banks[1]
	}
	return a.banks[0]
}

func (a *addrSpace) Read(addr uint16) uint8 {
	var val uint8
	ram := a.activeBank()
	switch {
	case addr == mmuMirror:
		val = a.cr
	case addr >= loadRegs && addr < loadRegs+4:
		val = a.loadRegVals[addr-loadRegs]
	case a.inCommonRAM(addr):
		val = a.banks[0].Read(addr)
	case addr >= basicLoBase && addr < basicLoBase+basicLoSize && a.cr&crLoram != 0:
		val = a.basicLo.Read(addr - basicLoBase)
	case addr >= basicHiBase && addr < basicHiBase+basicHiSize && a.cr&crLoram != 0:
		val = a.basicHi.Read(addr - basicHiBase)
	case addr >= ioBase && addr < ioBase+ioSize:
		if a.cr&crCharenIO == 0 {
			val = a.ioRead(addr, ram)
		} else {
			val = a.chargen.Read(addr - charBase)
		}
	case addr >= kernalBase && a.cr&crHiram != 0:
		val = a.kernal.Read(addr - kernalBase)
	default:
		val = ram.Read(addr)
	}
	a.databusVal = val
	return val
}

// ioRead serves the MMU's own registers and falls back to the active bank's
// RAM for every other D000-DFFF address (no other I/O chips are modeled).
func (a *addrSpace) ioRead(addr uint16, ram memory.Bank) uint8 {
	switch {
	case addr == mmuMirror:
		return a.cr
	case addr >= loadRegs && addr < loadRegs+4:
		return a.loadRegVals[addr-loadRegs]
	case addr == mmuBase:
		return a.cr
	case addr == rcrReg:
		return a.rcr
	case addr == page0Reg:
		return a.page0Val
	case addr == page1Reg:
		return a.page1Val
	case addr == 0xD011:
		// Bit 7 flips on every read, so firmware polling it sees it change.
		v := ram.Read(addr) ^ 0x80
		ram.Write(addr, v)
		return v
	default:
		return ram.Read(addr)
	}
}

func (a *addrSpace) Write(addr uint16, val uint8) {
	a.databusVal = val
	ram := a.activeBank()
	switch {
	case addr == mmuBase || addr == mmuMirror:
		a.cr = val
	case addr >= loadRegs && addr < loadRegs+4:
		a.loadRegVals[addr-loadRegs] = val
		a.cr = val // Loading LCRx applies it as the new configuration register.
	case addr == c64Switch:
		ram.Write(addr, val)
		if val&(1<<6) != 0 && a.onC64Switch != nil {
			a.onC64Switch()
		}
	case addr == rcrReg:
		a.rcr = val
	case addr == page0Reg:
		a.page0Val = val
		if a.onZeroPageChange != nil {
			a.onZeroPageChange(val)
		}
	case addr == page1Reg:
		a.page1Val = val
		if a.onStackPageChange != nil {
			a.onStackPageChange(val)
		}
	case a.inCommonRAM(addr):
		a.banks[0].Write(addr, val)
	default:
		// ROM is never writable; writes always land in the active bank's
		// RAM even when ROM is currently visible for reads.
		ram.Write(addr, val)
	}
}

func (a *addrSpace) PowerOn() {
	a.banks[0].PowerOn()
	a.banks[1].PowerOn()
	a.cr = crHiram | crLoram
	a.loadRegVals = [4]uint8{}
	a.rcr = 0
	a.page0Val = 0x00
	a.page1Val = 0x01
	if a.onZeroPageChange != nil {
		a.onZeroPageChange(a.page0Val)
	}
	if a.onStackPageChange != nil {
		a.onStackPageChange(a.page1Val)
	}
}

func (a *addrSpace) Parent() memory.Bank { return a.parent }
func (a *addrSpace) DatabusVal() uint8   { return a.databusVal }

var _ memory.Bank = (*addrSpace)(nil)

// addrs is the C128's hook table. The C128 KERNAL is reached through a low-
// memory jump table rather than the FFxx vectors the earlier machines use;
// this emulator keeps the FFxx addresses anyway since the jump table
// ultimately lands on the same routines, and traps there directly rather
// than modeling the indirection.
var addrs = hooks.Addrs{
	Chrout: 0xFFD2,
	Chrin:  0xFFCF,
	Getin:  0xFFE4,
	Stop:   0xFFE1,
	SetLFS: 0xFFBA,
	SetNam: 0xFFBD,
	Load:   0xFFD5,
	Save:   0xFFD8,
	Ready:  0x4D37,

	GoTarget:      0x5BE1,
	LinkPrg:       0x5C33,
	Clr:           0x5D60,
	MainSkipReady: 0x4D3A,

	TxtTab: 0x002B,
	VarTab: 0x002D,
	AryEnd: 0x002F,

	KeyBuf:    0x0277,
	KeyBufLen: 0x00D0,
}

// New builds a runnable C128.
func New(roms ROMs, port console.Port, fs hooks.FileSystem, startupProgram string) (*machine.Machine, error) {
	ram, err := newAddrSpace(roms)
	if err != nil {
		return nil, err
	}
	chip, err := cpu.Init(cpu.ChipDef{Ram: ram})
	if err != nil {
		return nil, err
	}
	h := hooks.New(chip, port, fs, addrs, startupProgram)
	ram.onC64Switch = func() { h.RequestSwitch(64) }
	ram.onZeroPageChange = chip.SetZeroPage
	ram.onStackPageChange = chip.SetStackPage
	chip.SetHook(h)
	return &machine.Machine{Chip: chip, Hooks: h}, nil
}
