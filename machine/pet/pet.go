// Package pet builds the PET 2001's Address Space: fixed RAM up to 32K,
// fixed video RAM, BASIC, editor and KERNAL ROM banks, and the always-0xFF
// keyboard-row read at E810. The PET has no bank switching at all, which
// makes it the simplest of the five Address Spaces.
package pet

import (
	"github.com/orinoco8/cbmtext/console"
	"github.com/orinoco8/cbmtext/cpu"
	"github.com/orinoco8/cbmtext/hooks"
	"github.com/orinoco8/cbmtext/machine"
	"github.com/orinoco8/cbmtext/memory"
)

const (
	videoBase  = 0x8000
	videoSize  = 0x1000
	basicBase  = 0xC000
	basicSize  = 0x2000
	editorBase = 0xE000
	editorSize = 0x0800
	ioBase     = 0xE800
	ioSize     = 0x0800
	kernalBase = 0xF000
	kernalSize = 0x1000

	keyboardRow = 0xE810
	maxRAMSize  = 0x8000
)

// ROMs bundles the three firmware image paths a PET 2001 needs.
type ROMs struct {
	Basic, Editor, Kernal string
}

type addrSpace struct {
	ram                   memory.Bank
	video                 memory.Bank
	ioShadow              memory.Bank
	basic, editor, kernal memory.Bank

	parent     memory.Bank
	databusVal uint8
}

// newAddrSpace builds the Address Space. ramSize must be at most 32K; the
// PET's RAM never exceeds that regardless of model.
func newAddrSpace(roms ROMs, ramSize int) (*addrSpace, error) {
	if ramSize > maxRAMSize {
		ramSize = maxRAMSize
	}
	ram, err := memory.New8BitRAMBank(ramSize, nil)
	if err != nil {
		return nil, err
	}
	video, err := memory.New8BitRAMBank(videoSize, nil)
	if err != nil {
		return nil, err
	}
	ioShadow, err := memory.New8BitRAMBank(ioSize, nil)
	if err != nil {
		return nil, err
	}
	basic, err := memory.NewROMBank(roms.Basic, basicSize, nil)
	if err != nil {
		return nil, err
	}
	editor, err := memory.NewROMBank(roms.Editor, editorSize, nil)
	if err != nil {
		return nil, err
	}
	kernal, err := memory.NewROMBank(roms.Kernal, kernalSize, nil)
	if err != nil {
		return nil, err
	}
	return &addrSpace{ram: ram, video: video, ioShadow: ioShadow, basic: basic, editor: editor, kernal: kernal}, nil
}

func (a *addrSpace) Read(addr uint16) uint8 {
	var val uint8
	switch {
	case addr == keyboardRow:
		val = 0xFF
	case addr >= videoBase && addr < videoBase+videoSize:
		val = a.video.Read(addr - videoBase)
	case addr >= basicBase && addr < basicBase+basicSize:
		val = a.basic.Read(addr - basicBase)
	case addr >= editorBase && addr < editorBase+editorSize:
		val = a.editor.Read(addr - editorBase)
	case addr >= ioBase && addr < ioBase+ioSize:
		// No I/O chips modeled; the 8-bit shadow reads back whatever was
		// last written here, except the fixed keyboard-row address above.
		val = a.ioShadow.Read(addr - ioBase)
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
	switch {
	case addr >= videoBase && addr < videoBase+videoSize:
		a.video.Write(addr-videoBase, val)
	case addr >= basicBase && addr < basicBase+basicSize:
		// BASIC ROM: writes are a documented no-op.
	case addr >= editorBase && addr < editorBase+editorSize:
		// Editor ROM: writes are a documented no-op.
	case addr >= kernalBase:
		// KERNAL ROM: writes are a documented no-op.
	case addr >= ioBase && addr < ioBase+ioSize:
		a.ioShadow.Write(addr-ioBase, val)
	default:
		a.ram.Write(addr, val)
	}
}

func (a *addrSpace) PowerOn() {
	a.ram.PowerOn()
	a.video.PowerOn()
	a.ioShadow.PowerOn()
}

func (a *addrSpace) Parent() memory.Bank { return a.parent }
func (a *addrSpace) DatabusVal() uint8   { return a.databusVal }

var _ memory.Bank = (*addrSpace)(nil)

// addrs is the PET's hook table. The PET's KERNAL does not expose SETLFS/
// SETNAM at the standard jump-table addresses the way the later machines
// do, so those two are left at 0 and fire only if PC reaches 0x0000; LOAD/SAVE still
// work through the PRG-level LOAD/SAVE traps.
var addrs = hooks.Addrs{
	Chrout: 0xFFD2,
	Chrin:  0xFFCF,
	Getin:  0xFFE4,
	Stop:   0xFFE1,
	Load:   0xFFD5,
	Save:   0xFFD8,
	Ready:  0xC38B,

	GoTarget:      0xC7E1,
	LinkPrg:       0xC533,
	Clr:           0xC660,
	MainSkipReady: 0xC38E,

	TxtTab: 0x0028,
	VarTab: 0x002A,
	AryEnd: 0x002C,

	KeyBuf:    0x0026,
	KeyBufLen: 0x009E,
}

// New builds a runnable PET 2001 with the given RAM size (up to 32K).
func New(roms ROMs, ramSize int, port console.Port, fs hooks.FileSystem, startupProgram string) (*machine.Machine, error) {
	ram, err := newAddrSpace(roms, ramSize)
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
