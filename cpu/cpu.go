// Package cpu implements the 6502/6510 instruction set: registers, flags,
// the 13 addressing modes, and a fetch-decode-execute loop that runs one
// complete instruction per Step call. Cycle timing is not modeled; every
// legal opcode completes in a single Step.
package cpu

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/orinoco8/cbmtext/irq"
	"github.com/orinoco8/cbmtext/memory"
)

const (
	ResetVector = uint16(0xFFFC)
	IRQVector   = uint16(0xFFFE)
	NMIVector   = uint16(0xFFFA)

	PNegative  = uint8(0x80)
	POverflow  = uint8(0x40)
	PS1        = uint8(0x20) // Unused bit, always reads as 1.
	PBreak     = uint8(0x10) // Only ever present in a pushed copy of P.
	PDecimal   = uint8(0x08)
	PInterrupt = uint8(0x04)
	PZero      = uint8(0x02)
	PCarry     = uint8(0x01)
)

// InvalidCPUState is returned for internal precondition failures, never for
// emulated-program conditions (those are signaled through registers).
type InvalidCPUState struct {
	Reason string
}

func (e InvalidCPUState) Error() string {
	return fmt.Sprintf("invalid CPU state: %s", e.Reason)
}

// UnknownOpcode is returned when Step decodes a byte with no entry in the
// legal opcode table. The emulator is not expected to run illegal-opcode
// code, so this aborts the run.
type UnknownOpcode struct {
	Opcode uint8
	PC     uint16
}

func (e UnknownOpcode) Error() string {
	return fmt.Sprintf("unknown opcode 0x%.2X at PC 0x%.4X", e.Opcode, e.PC)
}

// Hook lets a Machine Model intercept execution before every opcode fetch.
// Handled means the hook mutated CPU/memory state itself (possibly
// simulating an RTS) and the byte at the pre-hook PC must not be decoded
// this round. NotHandled means proceed with the normal fetch-decode-execute
// step.
type Hook interface {
	Check(pc uint16) (handled bool, err error)
}

// Chip is a single 6502/6510 core. It reads and writes exclusively through
// the memory.Bank given to Init, so the same core runs against any Machine
// Model's Address Space.
type Chip struct {
	A, X, Y uint8
	S       uint8
	P       uint8
	PC      uint16

	Ram  memory.Bank
	Irq  irq.Sender // Optional; nil on every Commodore machine modeled here, which trigger only software BRK.
	Nmi  irq.Sender
	hook Hook

	// StackPage is the high byte push/pop operations address, page 1
	// (0x01) on every real 6502. The C128's MMU can relocate the stack to
	// a different page of the active bank, so this is a field rather than
	// a hardcoded constant; every other Machine Model leaves it at 0x01.
	StackPage uint8
	// ZeroPage is the high byte every zero-page addressing mode ORs into
	// its operand byte, 0x00 on every real 6502. The C128's MMU can
	// relocate page 0 the same way it relocates the stack page.
	ZeroPage uint8

	halted     bool
	haltReason error
}

// ChipDef configures a new Chip.
type ChipDef struct {
	Ram  memory.Bank
	Irq  irq.Sender
	Nmi  irq.Sender
	Hook Hook
}

// Init creates a Chip wired to the given RAM/Address Space and powers it on
// with a Reset.
func Init(def ChipDef) (*Chip, error) {
	if def.Ram == nil {
		return nil, InvalidCPUState{"Ram must be non-nil"}
	}
	c := &Chip{
		Ram:  def.Ram,
		Irq:  def.Irq,
		Nmi:  def.Nmi,
		hook: def.Hook,
	}
	c.PowerOn()
	return c, nil
}

// SetHook installs (or replaces) the Machine Model's pre-fetch hook.
func (c *Chip) SetHook(h Hook) {
	c.hook = h
}

// SetStackPage relocates push/pop operations to a different page of RAM.
// Used by the C128's MMU stack-page relocation register; every other
// Machine Model never calls this and the stack stays at page 1.
func (c *Chip) SetStackPage(page uint8) {
	c.StackPage = page
}

// SetZeroPage relocates every zero-page addressing mode to a different page
// of RAM. Used by the C128's MMU page-0 relocation register; every other
// Machine Model never calls this and zero page stays at page 0.
func (c *Chip) SetZeroPage(page uint8) {
	c.ZeroPage = page
}

// PowerOn randomizes registers (matching real hardware's undefined power-on
// state) and then performs a Reset, which is the only part of power-on that
// has defined behavior.
func (c *Chip) PowerOn() {
	rand.Seed(time.Now().UnixNano())
	c.A = uint8(rand.Intn(256))
	c.X = uint8(rand.Intn(256))
	c.Y = uint8(rand.Intn(256))
	c.P = PS1
	c.S = 0xFF
	c.StackPage = 0x01
	c.ZeroPage = 0x00
	c.halted = false
	c.haltReason = nil
	c.Reset()
}

// Reset loads PC from the RESET vector, sets I, and leaves S at 0xFF (this
// implementation's choice; real hardware merely decrements S by 3 without
// actually writing the stack).
func (c *Chip) Reset() {
	c.S = 0xFF
	c.P |= PInterrupt
	c.halted = false
	c.haltReason = nil
	lo := c.Ram.Read(ResetVector)
	hi := c.Ram.Read(ResetVector + 1)
	c.PC = (uint16(hi) << 8) | uint16(lo)
}

// Halted reports whether the CPU aborted on an unknown opcode or other
// core-invariant violation. Once halted, Step keeps returning the same
// error without changing any state.
func (c *Chip) Halted() (bool, error) {
	return c.halted, c.haltReason
}

// Step runs the pre-fetch hook (possibly looping while it keeps returning
// Handled), then fetches, decodes and executes exactly one instruction.
// Hardware IRQ/NMI lines are checked once per Step boundary; none of the
// Commodore machines in this module ever raise one, so in practice this is
// always a no-op here, but the seam mirrors real 6502 interrupt sampling.
func (c *Chip) Step() error {
	if c.halted {
		return c.haltReason
	}

	for c.hook != nil {
		handled, err := c.hook.Check(c.PC)
		if err != nil {
			c.halt(err)
			return err
		}
		if !handled {
			break
		}
	}

	if c.Nmi != nil && c.Nmi.Raised() {
		c.runInterrupt(NMIVector, false)
		return nil
	}
	if c.Irq != nil && c.Irq.Raised() && c.P&PInterrupt == 0 {
		c.runInterrupt(IRQVector, false)
		return nil
	}

	pc := c.PC
	op := c.Ram.Read(c.PC)
	c.PC++

	inst, ok := opcodes[op]
	if !ok {
		err := UnknownOpcode{Opcode: op, PC: pc}
		c.halt(err)
		return err
	}
	inst.exec(c, inst.mode)
	return nil
}

func (c *Chip) halt(err error) {
	c.halted = true
	c.haltReason = err
}

// pushStack writes val to StackPage at S and decrements S (wrapping).
func (c *Chip) pushStack(val uint8) {
	c.Ram.Write(uint16(c.StackPage)<<8+uint16(c.S), val)
	c.S--
}

// popStack increments S (wrapping) and reads StackPage at the new S.
func (c *Chip) popStack() uint8 {
	c.S++
	return c.Ram.Read(uint16(c.StackPage)<<8 + uint16(c.S))
}

// PopReturnAddr pops a two-byte little-endian address off the stack exactly
// as RTS does (without the +1), for use by hooks that need to inspect the
// return address before deciding whether to simulate an RTS.
func (c *Chip) PopReturnAddr() uint16 {
	lo := c.popStack()
	hi := c.popStack()
	return (uint16(hi) << 8) | uint16(lo)
}

// SimulateRTS pops a return address off the stack and sets PC to addr+1,
// exactly as the real RTS opcode would. KERNAL hooks that fully emulate a
// routine (CHRIN, GETIN, STOP, LOAD) call this once they're done so control
// returns to the caller without ever executing the ROM routine's body.
func (c *Chip) SimulateRTS() {
	c.PC = c.PopReturnAddr() + 1
}

// SimulateJSR pushes PC-1 and sets PC to target, exactly as JSR would if the
// two bytes at PC-1/PC had been the (never-fetched) operand of a JSR to
// target. Used by the auto-load state machine to call ROM subroutines
// (LINKPRG, CLR) without decoding the instruction that would normally do so;
// when the subroutine RTS's, control resumes at the original PC, which lets
// the caller's hook re-trigger and advance to its next state.
func (c *Chip) SimulateJSR(target uint16) {
	ret := c.PC - 1
	c.pushStack(uint8(ret >> 8))
	c.pushStack(uint8(ret & 0xFF))
	c.PC = target
}

// runInterrupt pushes PC and P and loads PC from vec. The pushed copy of P
// has PBreak set only when brk is true: hardware IRQ/NMI pass false, and
// execBRK passes true after advancing PC past BRK's padding byte.
func (c *Chip) runInterrupt(vec uint16, brk bool) {
	c.pushStack(uint8(c.PC >> 8))
	c.pushStack(uint8(c.PC & 0xFF))
	push := c.P | PS1
	if brk {
		push |= PBreak
	} else {
		push &^= PBreak
	}
	c.pushStack(push)
	c.P |= PInterrupt
	lo := c.Ram.Read(vec)
	hi := c.Ram.Read(vec + 1)
	c.PC = (uint16(hi) << 8) | uint16(lo)
}

func (c *Chip) zeroCheck(v uint8) {
	c.P &^= PZero
	if v == 0 {
		c.P |= PZero
	}
}

func (c *Chip) negativeCheck(v uint8) {
	c.P &^= PNegative
	if v&PNegative != 0 {
		c.P |= PNegative
	}
}

func (c *Chip) carryCheck(res uint16) {
	c.P &^= PCarry
	if res >= 0x100 {
		c.P |= PCarry
	}
}

// overflowCheck sets V when the two operands share a sign and the result's
// sign differs from both. http://www.righto.com/2012/12/the-6502-overflow-flag-explained.html
func (c *Chip) overflowCheck(a, arg, res uint8) {
	c.P &^= POverflow
	if (a^res)&(arg^res)&0x80 != 0 {
		c.P |= POverflow
	}
}

func (c *Chip) loadRegister(reg *uint8, val uint8) {
	*reg = val
	c.zeroCheck(val)
	c.negativeCheck(val)
}
