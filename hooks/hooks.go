// Package hooks implements the KERNAL trap table and the auto-load state
// machine shared by every Machine Model. A Set is a cpu.Hook: the CPU core
// calls Check before every opcode fetch and the Set decides whether to
// short-circuit the ROM routine at that address.
package hooks

import (
	"github.com/orinoco8/cbmtext/console"
	"github.com/orinoco8/cbmtext/cpu"
)

// Commodore KERNAL error codes surfaced through the C/A register
// convention.
const (
	ErrGeneric         = uint8(1)
	ErrFileNotFound    = uint8(4)
	ErrIllegalQuantity = uint8(14)
	ErrVerify          = uint8(28)
)

// FileSystem is the backend LOAD/SAVE and the auto-load state machine read
// and write PRG files through. Machines pass a concrete implementation
// (normally the one NewDiskFileSystem returns) so hooks never touches the
// OS directly.
type FileSystem interface {
	// ReadPRG returns a file's bytes verbatim, header included.
	ReadPRG(name string) ([]byte, error)
	// WritePRG writes a file's bytes verbatim, header included.
	WritePRG(name string, data []byte) error
}

// Addrs is the per-machine address table hooks are installed at and the
// handful of zero-page/ROM addresses the auto-load state machine needs to
// drive BASIC the way a typed RUN would. Every field is machine-specific;
// a Machine Model fills one in from its own memory map.
type Addrs struct {
	Chrout, Chrin, Getin, Stop   uint16
	SetLFS, SetNam, Load, Save   uint16
	Ready                        uint16
	GoTarget                     uint16 // execute-after-GO sniffer address
	LinkPrg, Clr                 uint16 // ROM subroutines simulated by JSR
	MainSkipReady                uint16 // resumes the BASIC main loop mid-RUN
	TxtTab, VarTab, AryEnd       uint16 // zero-page program/variable pointers
	KeyBuf, KeyBufLen            uint16 // keyboard buffer and its count
	// AutoLoadSecondary selects relative (0, BASIC start pointer) vs
	// absolute (anything else, header address) addressing for the
	// configured startup program.
	AutoLoadSecondary uint8
}

type autoLoadState int

const (
	stateIdle autoLoadState = iota
	stateLinked
	stateCleared
	stateDone
)

// Set is the installable cpu.Hook for one running Machine Model.
type Set struct {
	addrs Addrs
	chip  *cpu.Chip
	port  console.Port
	fs    FileSystem

	fileNum, fileDev, fileSec uint8
	fileName                  string
	fileAddr                  uint16
	fileVerify                bool

	startupProgram string
	startupState   autoLoadState

	exit         bool
	switchTarget int
}

// New builds a hook Set for chip, wired to port for console I/O and fs for
// PRG file access. startupProgram may be empty (no auto-load).
func New(chip *cpu.Chip, port console.Port, fs FileSystem, addrs Addrs, startupProgram string) *Set {
	return &Set{
		addrs:          addrs,
		chip:           chip,
		port:           port,
		fs:             fs,
		startupProgram: startupProgram,
	}
}

// Exit reports whether a GO-statement switch (or a self-switch, the BYE
// case) has requested the CPU loop stop. SwitchTarget carries the machine
// tag number (2001, 20, 64, 16, 4 or 128) the GO statement named.
func (s *Set) Exit() bool        { return s.exit }
func (s *Set) SwitchTarget() int { return s.switchTarget }

// RequestSwitch lets a Machine Model's Address Space request a machine
// switch for reasons other than the GO-statement sniffer, such as the
// C128's D505 bit 6 "switch to C64 mode" signal.
func (s *Set) RequestSwitch(target int) {
	s.switchTarget = target
	s.exit = true
}

var _ cpu.Hook = (*Set)(nil)

// Check implements cpu.Hook.
func (s *Set) Check(pc uint16) (bool, error) {
	a := s.addrs
	switch pc {
	case a.Chrout:
		s.port.WriteChar(s.chip.A)
		return false, nil // ROM still runs to update screen memory.
	case a.Chrin:
		return s.hookChrin(), nil
	case a.Getin:
		return s.hookGetin(), nil
	case a.Stop:
		return s.hookStop(), nil
	case a.SetLFS:
		return s.hookSetLFS(), nil
	case a.SetNam:
		return s.hookSetNam(), nil
	case a.Load:
		return s.hookLoad(), nil
	case a.Save:
		return s.hookSave(), nil
	case a.Ready:
		return s.hookReady(), nil
	case a.GoTarget:
		return s.hookGoSniffer(), nil
	}
	return false, nil
}

func (s *Set) setZN(v uint8) {
	if v == 0 {
		s.chip.P |= cpu.PZero
	} else {
		s.chip.P &^= cpu.PZero
	}
	if v&cpu.PNegative != 0 {
		s.chip.P |= cpu.PNegative
	} else {
		s.chip.P &^= cpu.PNegative
	}
}

func (s *Set) hookChrin() bool {
	ch := s.port.ReadChar()
	s.chip.A = ch
	s.setZN(ch)
	s.chip.P &^= cpu.PCarry
	s.chip.SimulateRTS()
	return true
}

func (s *Set) hookGetin() bool {
	ch := s.port.GetIn()
	s.chip.A = ch
	if ch != 0 {
		s.chip.X = ch // observed side effect of the real ROM.
	}
	s.chip.P &^= cpu.PCarry
	s.chip.SimulateRTS()
	return true
}

func (s *Set) hookStop() bool {
	if s.port.CheckStop() {
		s.chip.P |= cpu.PZero
	} else {
		s.chip.P &^= cpu.PZero
	}
	s.chip.SimulateRTS()
	return true
}

func (s *Set) hookSetLFS() bool {
	s.fileNum, s.fileDev, s.fileSec = s.chip.A, s.chip.X, s.chip.Y
	s.chip.SimulateRTS()
	return true
}

func (s *Set) hookSetNam() bool {
	n := s.chip.A
	addr := uint16(s.chip.X) | uint16(s.chip.Y)<<8
	name := make([]byte, n)
	for i := range name {
		name[i] = s.chip.Ram.Read(addr + uint16(i))
	}
	s.fileName = string(name)
	s.chip.SimulateRTS()
	return true
}

func (s *Set) hookLoad() bool {
	s.fileAddr = uint16(s.chip.X) | uint16(s.chip.Y)<<8
	switch s.chip.A {
	case 0:
		s.fileVerify = false
	case 1:
		s.fileVerify = true
	default:
		s.fail(ErrIllegalQuantity)
		s.chip.SimulateRTS()
		return true
	}

	data, err := s.fs.ReadPRG(s.fileName)
	if err != nil {
		s.fail(ErrFileNotFound)
		s.chip.SimulateRTS()
		return true
	}
	dest := s.fileAddr
	if s.fileSec == 0 {
		dest = uint16(data[0]) | uint16(data[1])<<8
	}
	end, mismatch := s.transfer(dest, data[2:])
	if mismatch {
		s.chip.P |= cpu.PCarry
	} else {
		s.chip.P &^= cpu.PCarry
	}
	s.chip.X = uint8(end & 0xFF)
	s.chip.Y = uint8(end >> 8)
	s.chip.SimulateRTS()
	return true
}

// transfer streams payload into RAM starting at dest; in verify mode bytes
// are compared rather than written, and the returned bool reports whether
// any byte mismatched (the VERIFY error is also raised in that case).
// The first return value is the address one past the last byte transferred.
func (s *Set) transfer(dest uint16, payload []byte) (uint16, bool) {
	mismatch := false
	for i, b := range payload {
		addr := dest + uint16(i)
		if s.fileVerify {
			if s.chip.Ram.Read(addr) != b {
				mismatch = true
			}
			continue
		}
		s.chip.Ram.Write(addr, b)
	}
	if s.fileVerify && mismatch {
		s.fail(ErrVerify)
	}
	return dest + uint16(len(payload)), mismatch
}

func (s *Set) hookSave() bool {
	startZP := s.chip.A
	start := uint16(s.chip.Ram.Read(uint16(startZP))) | uint16(s.chip.Ram.Read(uint16(startZP)+1))<<8
	end := uint16(s.chip.X) | uint16(s.chip.Y)<<8

	data := make([]byte, 2, 2+int(end-start))
	data[0] = uint8(start & 0xFF)
	data[1] = uint8(start >> 8)
	for addr := start; addr != end; addr++ {
		data = append(data, s.chip.Ram.Read(addr))
	}
	if err := s.fs.WritePRG(s.fileName, data); err != nil {
		s.chip.P |= cpu.PCarry
		return false
	}
	s.chip.P &^= cpu.PCarry
	return false
}

func (s *Set) fail(code uint8) {
	s.chip.A = code
	s.chip.P |= cpu.PCarry
}

// hookReady drives the three-state auto-load machine. Once
// stateDone is reached this is a no-op forever after, letting ROM print its
// own READY prompts normally.
func (s *Set) hookReady() bool {
	switch s.startupState {
	case stateIdle:
		return s.autoLoadStart()
	case stateLinked:
		s.finishLink()
		s.chip.A = 0
		s.chip.SimulateJSR(s.addrs.Clr)
		s.startupState = stateCleared
		return true
	case stateCleared:
		s.queueRun()
		s.startupState = stateDone
		return true
	}
	return false
}

func (s *Set) autoLoadStart() bool {
	if s.startupProgram == "" {
		return false
	}
	data, err := s.fs.ReadPRG(s.startupProgram)
	if err != nil {
		s.fail(ErrFileNotFound)
		s.startupProgram = ""
		return false
	}
	if len(data) < 2 {
		s.fail(ErrFileNotFound)
		s.startupProgram = ""
		return false
	}
	dest := uint16(data[0]) | uint16(data[1])<<8
	if s.addrs.AutoLoadSecondary == 0 {
		dest = uint16(s.chip.Ram.Read(s.addrs.TxtTab)) | uint16(s.chip.Ram.Read(s.addrs.TxtTab+1))<<8
	}
	end, _ := s.transfer(dest, data[2:])
	s.chip.Ram.Write(s.addrs.VarTab, uint8(end&0xFF))
	s.chip.Ram.Write(s.addrs.VarTab+1, uint8(end>>8))

	s.chip.SimulateJSR(s.addrs.LinkPrg)
	s.startupState = stateLinked
	return true
}

// finishLink copies the (possibly LINKPRG-adjusted) end-of-program pointer
// into the start-of-variables pointer, matching what real BASIC does right
// after relinking a freshly loaded program.
func (s *Set) finishLink() {
	lo := s.chip.Ram.Read(s.addrs.VarTab)
	hi := s.chip.Ram.Read(s.addrs.VarTab + 1)
	s.chip.Ram.Write(s.addrs.AryEnd, lo)
	s.chip.Ram.Write(s.addrs.AryEnd+1, hi)
}

// queueRun writes "RUN\r" into the keyboard buffer, exactly as if the user
// had typed it, and jumps into BASIC's main loop past the prompt print.
func (s *Set) queueRun() {
	const cmd = "RUN\r"
	for i := 0; i < len(cmd); i++ {
		s.chip.Ram.Write(s.addrs.KeyBuf+uint16(i), cmd[i])
	}
	s.chip.Ram.Write(s.addrs.KeyBufLen, uint8(len(cmd)))
	s.chip.PC = s.addrs.MainSkipReady
}

// validGoTargets is every machine tag number the GO-statement sniffer
// recognizes.
var validGoTargets = map[int]bool{2001: true, 20: true, 64: true, 16: true, 4: true, 128: true}

// hookGoSniffer inspects the numeric argument of a GO statement. The value
// is conventionally left in A/X (low/high of the parsed integer) by BASIC's
// expression evaluator by the time execution reaches this address.
func (s *Set) hookGoSniffer() bool {
	n := int(uint16(s.chip.A) | uint16(s.chip.X)<<8)
	if !validGoTargets[n] {
		return false
	}
	s.switchTarget = n
	s.exit = true
	// Move PC off this address before returning: Step's hook-retry loop
	// re-checks the same PC as long as handled is true, and PC never
	// advances here on its own.
	s.chip.SimulateRTS()
	return true
}

