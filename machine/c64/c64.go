// Package c64 builds the Commodore 64's Address Space and wires it, along
// with its KERNAL hook table, into a runnable machine.Machine.
//
// The 6510's $00/$01 port registers are the interesting part of this
// machine: every Read/Write has to consult them to decide whether a given
// address sees RAM, the matching ROM, or (at D000-DFFF) I/O versus CHARGEN.
// Nothing underneath a banked-out ROM is ever lost: writes always land in
// the backing RAM array regardless of what's currently visible for reads.
package c64

import (
	"github.com/orinoco8/cbmtext/console"
	"github.com/orinoco8/cbmtext/cpu"
	"github.com/orinoco8/cbmtext/hooks"
	"github.com/orinoco8/cbmtext/machine"
	"github.com/orinoco8/cbmtext/memory"
)

const (
	basicBase   = 0xA000
	basicSize   = 0x2000
	kernalBase  = 0xE000
	kernalSize  = 0x2000
	charBase    = 0xD000
	charSize    = 0x1000
	colorBase   = 0xD800
	colorEnd    = 0xDBFF
	colorReg    = 0xD021
	ramSize     = 1 << 16
	defaultPort = 0x37 // LORAM=1, HIRAM=1, CHAREN=1: BASIC+KERNAL visible, I/O at D000.
	defaultDDR  = 0x2F
)

// ROMs bundles the three firmware image paths a C64 needs. CharROM is
// optional for machines that never look at D000-DFFF with CHAREN clear.
type ROMs struct {
	Basic, Kernal, CharROM string
}

// addrSpace is the C64's memory.Bank: a 64K backing RAM plus three ROM
// banks and the handful of registers ($00, $01, D021, color RAM) that
// decide which one a given address actually reads from.
type addrSpace struct {
	ram               memory.Bank
	basic, kernal, chr memory.Bank
	colorRAM          [colorEnd - colorBase + 1]uint8
	port              console.Port

	ddr, pr uint8

	parent     memory.Bank
	databusVal uint8
}

// newAddrSpace builds the Address Space. port may be nil, in which case
// color-register writes are simply not reflected anywhere (headless use,
// tests).
func newAddrSpace(roms ROMs, port console.Port) (*addrSpace, error) {
	ram, err := memory.New8BitRAMBank(ramSize, nil)
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
	var chr memory.Bank
	if roms.CharROM != "" {
		chr, err = memory.NewROMBank(roms.CharROM, charSize, nil)
		if err != nil {
			return nil, err
		}
	}
	return &addrSpace{
		ram:    ram,
		basic:  basic,
		kernal: kernal,
		chr:    chr,
		port:   port,
		ddr:    defaultDDR,
		pr:     defaultPort,
	}, nil
}

func (a *addrSpace) loram() bool  { return a.pr&0x01 != 0 }
func (a *addrSpace) hiram() bool  { return a.pr&0x02 != 0 }
func (a *addrSpace) charen() bool { return a.pr&0x04 != 0 }

func (a *addrSpace) Read(addr uint16) uint8 {
	var val uint8
	switch {
	case addr == 0x0000:
		val = a.ddr
	case addr == 0x0001:
		val = a.pr
	case addr >= basicBase && addr < basicBase+basicSize:
		if a.loram() && a.hiram() {
			val = a.basic.Read(addr - basicBase)
		} else {
			val = a.ram.Read(addr)
		}
	case addr >= charBase && addr < charBase+charSize:
		switch {
		case a.charen() && (a.loram() || a.hiram()):
			if addr >= colorBase && addr <= colorEnd {
				// Color RAM is 4 bits wide; the high nibble always reads 1s.
				val = a.colorRAM[addr-colorBase] | 0xF0
			} else {
				val = a.ram.Read(addr)
			}
		case !a.charen() && (a.loram() || a.hiram()) && a.chr != nil:
			val = a.chr.Read(addr - charBase)
		default:
			val = a.ram.Read(addr)
		}
	case addr >= kernalBase:
		if a.hiram() {
			val = a.kernal.Read(addr - kernalBase)
		} else {
			val = a.ram.Read(addr)
		}
	default:
		val = a.ram.Read(addr)
	}
	a.databusVal = val
	return val
}

func (a *addrSpace) Write(addr uint16, val uint8) {
	a.databusVal = val
	switch {
	case addr == 0x0000:
		a.ddr = val
		return
	case addr == 0x0001:
		a.pr = val
		return
	case addr >= colorBase && addr <= colorEnd && a.charen() && (a.loram() || a.hiram()):
		a.colorRAM[addr-colorBase] = val & 0x0F
		return
	}
	// ROM is never writable; every write (including ones "under" a banked-in
	// ROM) lands in the backing RAM so it's there when the bank switches back.
	a.ram.Write(addr, val)
	if addr == colorReg && a.port != nil {
		a.port.SetColor(val & 0x0F)
	}
}

func (a *addrSpace) PowerOn() {
	a.ram.PowerOn()
	a.ddr = defaultDDR
	a.pr = defaultPort
	for i := range a.colorRAM {
		a.colorRAM[i] = 0
	}
}

func (a *addrSpace) Parent() memory.Bank   { return a.parent }
func (a *addrSpace) DatabusVal() uint8     { return a.databusVal }

var _ memory.Bank = (*addrSpace)(nil)

// addrs is the C64's KERNAL hook table. FFD2/FFCF/FFE4/FFE1/FFBA/FFBD/FFD5/
// FFD8 are the standard, well-documented KERNAL vector addresses shared by
// every program that calls through them; the zero-page pointers, LINKPRG,
// CLR, the GO-statement sniffer address and the MAIN-skip-READY address are
// this emulator's own best-effort placement against real ROM disassembly
// and are not independently verified against a running system.
var addrs = hooks.Addrs{
	Chrout: 0xFFD2,
	Chrin:  0xFFCF,
	Getin:  0xFFE4,
	Stop:   0xFFE1,
	SetLFS: 0xFFBA,
	SetNam: 0xFFBD,
	Load:   0xFFD5,
	Save:   0xFFD8,
	Ready:  0xA474,

	GoTarget:      0xA7E1,
	LinkPrg:       0xA533,
	Clr:           0xA660,
	MainSkipReady: 0xA48D,

	TxtTab: 0x002B,
	VarTab: 0x002D,
	AryEnd: 0x002F,

	KeyBuf:    0x0277,
	KeyBufLen: 0x00C6,
}

// New builds a runnable C64: its Address Space, CPU core and KERNAL hook
// set, wired together and powered on. startupProgram may be empty.
func New(roms ROMs, port console.Port, fs hooks.FileSystem, startupProgram string) (*machine.Machine, error) {
	ram, err := newAddrSpace(roms, port)
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
