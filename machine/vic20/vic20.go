// Package vic20 builds the VIC-20's Address Space: a base 5K of RAM plus up
// to four optional expansion banks, fixed CHARGEN/BASIC/KERNAL ROM, and the
// two VIC register writes (900F, 9005) this emulator reflects without
// modeling the VIC chip's actual video generation.
package vic20

import (
	"github.com/orinoco8/cbmtext/console"
	"github.com/orinoco8/cbmtext/cpu"
	"github.com/orinoco8/cbmtext/hooks"
	"github.com/orinoco8/cbmtext/machine"
	"github.com/orinoco8/cbmtext/memory"
)

const (
	charBase   = 0x8000
	charSize   = 0x1000
	ioBase     = 0x9000
	ioSize     = 0x1000
	basicBase  = 0xC000
	basicSize  = 0x2000
	kernalBase = 0xE000
	kernalSize = 0x2000
	ramSize    = 1 << 16

	regBackground = 0x900F
	regScreenCtl  = 0x9005
	colorRAMIdx   = 199 // RAM[199], the screen-color shadow the LIST table names.
)

// ROMs bundles the three firmware image paths a VIC-20 needs.
type ROMs struct {
	Basic, Kernal, CharROM string
}

// Banks selects which of the four optional 8K expansion banks (1/2/3 at
// 2000/4000/6000, plus bank 4 at A000 used for cartridge ROM when absent)
// and the 3K block at 0400-0FFF (bank0) are populated.
type Banks struct {
	Bank0, Bank1, Bank2, Bank3, Bank4 bool
}

type addrSpace struct {
	ram               memory.Bank
	chargen           memory.Bank
	basic, kernal     memory.Bank
	banks             Banks
	port              console.Port

	parent     memory.Bank
	databusVal uint8
}

func newAddrSpace(roms ROMs, banks Banks, port console.Port) (*addrSpace, error) {
	ram, err := memory.New8BitRAMBank(ramSize, nil)
	if err != nil {
		return nil, err
	}
	chargen, err := memory.NewROMBank(roms.CharROM, charSize, nil)
	if err != nil {
		return nil, err
	}
	basic, err := memory.NewROMBank(roms.Basic, basicSize, nil)
	if err != nil {
		return nil, err
	}
	kernal, err := memory.NewROMBank(roms.Kernal, kernalSize, nil)
	if err != nil {
		return nil, err
	}
	return &addrSpace{ram: ram, chargen: chargen, basic: basic, kernal: kernal, banks: banks, port: port}, nil
}

// ramPresent reports whether addr falls within a RAM region that is
// actually populated given the configured expansion banks. Read and Write
// do not call it: unpopulated RAM reads and writes the backing array just
// like populated RAM (real open-bus floating behavior is not modeled).
func (a *addrSpace) ramPresent(addr uint16) bool {
	switch {
	case addr < 0x0400:
		return true
	case addr < 0x1000:
		return a.banks.Bank0
	case addr < 0x2000:
		return true
	case addr < 0x4000:
		return a.banks.Bank1
	case addr < 0x6000:
		return a.banks.Bank2
	case addr < 0x8000:
		return a.banks.Bank3
	}
	return false
}

func (a *addrSpace) Read(addr uint16) uint8 {
	var val uint8
	switch {
	case addr >= charBase && addr < charBase+charSize:
		val = a.chargen.Read(addr - charBase)
	case addr >= ioBase && addr < ioBase+ioSize:
		val = a.ram.Read(addr)
	case addr >= 0xA000 && addr < 0xC000:
		if a.banks.Bank4 {
			val = a.ram.Read(addr)
		} else {
			val = 0xFF // No cartridge image loaded; open bus.
		}
	case addr >= basicBase && addr < basicBase+basicSize:
		val = a.basic.Read(addr - basicBase)
	case addr >= kernalBase:
		val = a.kernal.Read(addr - kernalBase)
	default:
		val = a.ram.Read(addr)
	}
	a.databusVal = val
	return val
}

func (a *addrSpace) Write(addr uint16, val uint8) {
	a.databusVal = val
	a.ram.Write(addr, val)
	if addr < ioBase || addr >= ioBase+ioSize {
		return
	}
	switch addr {
	case regBackground:
		if a.port != nil {
			a.port.SetColor(val & 0x0F)
			a.port.SetForeground(a.ram.Read(colorRAMIdx) & 0x0F)
		}
	case regScreenCtl:
		// Bit 1 selects the lowercase/uppercase character set. The value
		// is only stored in the backing RAM; the console is not told that
		// the mode changed.
	}
}

func (a *addrSpace) PowerOn() { a.ram.PowerOn() }

func (a *addrSpace) Parent() memory.Bank { return a.parent }
func (a *addrSpace) DatabusVal() uint8   { return a.databusVal }

var _ memory.Bank = (*addrSpace)(nil)

// addrs reuses the consolidated C64-shaped hook table, since the standard
// KERNAL ABI table is authoritative for every machine that shares it,
// which includes the VIC-20; only Ready and the handful of zero-page/ROM
// addresses below differ, and like the C64's they are a best-effort
// placement against real ROM disassembly.
var addrs = hooks.Addrs{
	Chrout: 0xFFD2,
	Chrin:  0xFFCF,
	Getin:  0xFFE4,
	Stop:   0xFFE1,
	SetLFS: 0xFFBA,
	SetNam: 0xFFBD,
	Load:   0xFFD5,
	Save:   0xFFD8,
	Ready:  0xC474,

	GoTarget:      0xC7E1,
	LinkPrg:       0xC533,
	Clr:           0xC660,
	MainSkipReady: 0xC48D,

	TxtTab: 0x002B,
	VarTab: 0x002D,
	AryEnd: 0x002F,

	KeyBuf:    0x0277,
	KeyBufLen: 0x00C6,
}

// New builds a runnable VIC-20.
func New(roms ROMs, banks Banks, port console.Port, fs hooks.FileSystem, startupProgram string) (*machine.Machine, error) {
	ram, err := newAddrSpace(roms, banks, port)
	if err != nil {
		return nil, err
	}
	chip, err := cpu.Init(cpu.ChipDef{Ram: ram})
	if err != nil {
		return nil, err
	}
	h := hooks.New(chip, port, fs, addrs, startupProgram)
	chip.SetHook(h)
	return &machine.Machine{Chip: chip, Hooks: h}, nil
}
