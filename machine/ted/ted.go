// Package ted builds the C16/Plus-4's Address Space. The TED's ROM
// configuration registers (FF3E/FF3F and FDD0-FDDF) pick which of BASIC,
// KERNAL, an optional function ROM, an optional cartridge ROM, or plain RAM
// answers reads in the 8000-FBFF and FF40-FFFF windows; FC00-FCFF is exempt
// from banking and always reads through to KERNAL.
package ted

import (
	"github.com/orinoco8/cbmtext/console"
	"github.com/orinoco8/cbmtext/cpu"
	"github.com/orinoco8/cbmtext/hooks"
	"github.com/orinoco8/cbmtext/machine"
	"github.com/orinoco8/cbmtext/memory"
)

const (
	basicBase  = 0x8000
	basicSize  = 0x4000
	kernalBase = 0xC000
	kernalSize = 0x4000 // Full C000-FFFF KERNAL image; FD00-FF3F is carved out by I/O.
	fixedBase  = 0xFC00
	fixedSize  = 0x0100
	ioBase       = 0xFD00
	ioSize       = 0x0240 // FD00-FF3F
	regROMOn     = 0xFF3E
	regROMOff    = 0xFF3F
	cfgRangeBase = 0xFDD0
	cfgRangeSize = 0x10
)

// romSelect names one of the four sources the ROM-configuration register
// can pick for a given half of the 8000-FBFF window.
type romSelect uint8

const (
	selBASICOrKernal romSelect = iota
	selFunc
	selCart
	selRAM
)

// ROMs bundles the optional firmware images a TED machine can have. Basic
// and Kernal are required; Func and Cart may be left empty, in which case
// selecting them reads back 0xFF (open bus).
type ROMs struct {
	Basic, Kernal, Func, Cart string
}

type addrSpace struct {
	ram                       memory.Bank
	basic, kernal, fn, cart   memory.Bank
	size                      int

	romEnabled   bool
	loSel, hiSel romSelect

	ioShadow memory.Bank

	parent     memory.Bank
	databusVal uint8
}

// newAddrSpace builds the Address Space. size must be 16K, 32K or 64K;
// smaller sizes mirror into the 64K window by masking with size-1.
func newAddrSpace(roms ROMs, size int) (*addrSpace, error) {
	ram, err := memory.New8BitRAMBank(size, nil)
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
	var fn, cart memory.Bank
	if roms.Func != "" {
		if fn, err = memory.NewROMBank(roms.Func, basicSize, nil); err != nil {
			return nil, err
		}
	}
	if roms.Cart != "" {
		if cart, err = memory.NewROMBank(roms.Cart, basicSize, nil); err != nil {
			return nil, err
		}
	}
	ioShadow, err := memory.New8BitRAMBank(ioSize, nil)
	if err != nil {
		return nil, err
	}
	return &addrSpace{
		ram: ram, basic: basic, kernal: kernal, fn: fn, cart: cart, size: size,
		romEnabled: true, ioShadow: ioShadow,
	}, nil
}

func (a *addrSpace) mask(addr uint16) uint16 {
	return addr & uint16(a.size-1)
}

func selectBank(sel romSelect, romIfStandard, fn, cart memory.Bank, offset uint16) (uint8, bool) {
	var b memory.Bank
	switch sel {
	case selBASICOrKernal:
		b = romIfStandard
	case selFunc:
		b = fn
	case selCart:
		b = cart
	default:
		return 0, false
	}
	if b == nil {
		return 0xFF, true
	}
	return b.Read(offset), true
}

func (a *addrSpace) Read(addr uint16) uint8 {
	var val uint8
	switch {
	case addr >= basicBase && addr < basicBase+basicSize && a.romEnabled:
		if v, ok := selectBank(a.loSel, a.basic, a.fn, a.cart, addr-basicBase); ok {
			val = v
		} else {
			val = a.ram.Read(a.mask(addr))
		}
	case (addr >= kernalBase && addr < fixedBase || addr >= ioBase+ioSize) && a.romEnabled:
		if v, ok := selectBank(a.hiSel, a.kernal, a.fn, a.cart, addr-kernalBase); ok {
			val = v
		} else {
			val = a.ram.Read(a.mask(addr))
		}
	case addr >= fixedBase && addr < fixedBase+fixedSize:
		// Non-banked: always reads through to KERNAL regardless of the
		// configuration registers.
		val = a.kernal.Read(addr - kernalBase)
	case addr >= ioBase && addr < ioBase+ioSize:
		val = a.ioShadow.Read(addr - ioBase)
	default:
		val = a.ram.Read(a.mask(addr))
	}
	a.databusVal = val
	return val
}

func (a *addrSpace) Write(addr uint16, val uint8) {
	a.databusVal = val
	switch {
	case addr == regROMOn:
		a.romEnabled = true
	case addr == regROMOff:
		a.romEnabled = false
	case addr >= cfgRangeBase && addr < cfgRangeBase+cfgRangeSize:
		cfg := uint8(addr & 0x0F)
		a.loSel = romSelect(cfg & 0x03)
		a.hiSel = romSelect((cfg >> 2) & 0x03)
	case addr >= ioBase && addr < ioBase+ioSize:
		a.ioShadow.Write(addr-ioBase, val)
	case addr >= basicBase && addr < fixedBase:
		// ROM region: writes always land in the backing RAM underneath,
		// even with ROM currently selected for reads.
		a.ram.Write(a.mask(addr), val)
	default:
		a.ram.Write(a.mask(addr), val)
	}
}

func (a *addrSpace) PowerOn() {
	a.ram.PowerOn()
	a.ioShadow.PowerOn()
	a.romEnabled = true
	a.loSel = selBASICOrKernal
	a.hiSel = selBASICOrKernal
}

func (a *addrSpace) Parent() memory.Bank { return a.parent }
func (a *addrSpace) DatabusVal() uint8   { return a.databusVal }

var _ memory.Bank = (*addrSpace)(nil)

// addrsFor returns the TED's hook table; the Ready address differs between the C16
// and the Plus/4 ROM sets (8703/4D37), so New takes it as a parameter
// rather than hardcoding one here.
func addrsFor(ready uint16) hooks.Addrs {
	return hooks.Addrs{
		Chrout: 0xFFD2,
		Chrin:  0xFFCF,
		Getin:  0xFFE4,
		Stop:   0xFFE1,
		SetLFS: 0xFFBA,
		SetNam: 0xFFBD,
		Load:   0xFFD5,
		Save:   0xFFD8,
		Ready:  ready,

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
}

// New builds a runnable TED-based machine (C16 or Plus/4). ready selects
// which ROM set's READY address to trap (0x8703 for the C16, 0x4D37 for the
// Plus/4, per the consolidated hook table).
func New(roms ROMs, size int, ready uint16, port console.Port, fs hooks.FileSystem, startupProgram string) (*machine.Machine, error) {
	ram, err := newAddrSpace(roms, size)
	if err != nil {
		return nil, err
	}
	chip, err := cpu.Init(cpu.ChipDef{Ram: ram})
	if err != nil {
		return nil, err
	}
	h := hooks.New(chip, port, fs, addrsFor(ready), startupProgram)
	chip.SetHook(h)
	return &machine.Machine{Chip: chip, Hooks: h}, nil
}
