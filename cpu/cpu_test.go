package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orinoco8/cbmtext/memory"
)

// flatMemory is a 64K memory.Bank with no banking, for CPU-only tests that
// don't need a Machine Model's address decoding.
type flatMemory struct {
	addr [65536]uint8
}

func (r *flatMemory) Read(addr uint16) uint8     { return r.addr[addr] }
func (r *flatMemory) Write(addr uint16, v uint8) { r.addr[addr] = v }
func (r *flatMemory) PowerOn()                   {}
func (r *flatMemory) Parent() memory.Bank        { return nil }
func (r *flatMemory) DatabusVal() uint8          { return 0 }

var _ memory.Bank = (*flatMemory)(nil)

// newChip builds a Chip over a fresh flatMemory with RESET pointed at start
// and every byte written there from code.
func newChip(t *testing.T, start uint16, code []uint8) (*Chip, *flatMemory) {
	t.Helper()
	r := &flatMemory{}
	r.addr[ResetVector] = uint8(start & 0xFF)
	r.addr[ResetVector+1] = uint8(start >> 8)
	for i, b := range code {
		r.addr[int(start)+i] = b
	}
	c, err := Init(ChipDef{Ram: r})
	require.NoError(t, err)
	c.PC = start
	return c, r
}

func TestResetLoadsPCFromVector(t *testing.T) {
	c, _ := newChip(t, 0x8000, []uint8{0xEA})
	assert.Equal(t, uint16(0x8000), c.PC)
	assert.True(t, c.P&PInterrupt != 0)
	assert.Equal(t, uint8(0xFF), c.S)
}

func TestLDAImmediateSetsZeroAndNegative(t *testing.T) {
	c, _ := newChip(t, 0x0200, []uint8{0xA9, 0x00})
	require.NoError(t, c.Step())
	assert.Equal(t, uint8(0x00), c.A)
	assert.True(t, c.P&PZero != 0)
	assert.False(t, c.P&PNegative != 0)

	c, _ = newChip(t, 0x0200, []uint8{0xA9, 0x80})
	require.NoError(t, c.Step())
	assert.Equal(t, uint8(0x80), c.A)
	assert.False(t, c.P&PZero != 0)
	assert.True(t, c.P&PNegative != 0)
}

func TestSTAWritesWithoutTouchingFlags(t *testing.T) {
	c, r := newChip(t, 0x0200, []uint8{0xA9, 0x80, 0x85, 0x10})
	require.NoError(t, c.Step())
	require.NoError(t, c.Step())
	assert.Equal(t, uint8(0x80), r.addr[0x0010])
	assert.True(t, c.P&PNegative != 0)
	assert.False(t, c.P&PZero != 0)
}

// TestStackWrap confirms pushing 256 bytes from S=0xFF wraps S through
// 0x00 back to 0xFF with no corruption outside page 1.
func TestStackWrap(t *testing.T) {
	c, r := newChip(t, 0x0200, nil)
	c.S = 0xFF
	for i := 0; i < 256; i++ {
		c.pushStack(uint8(i))
	}
	assert.Equal(t, uint8(0xFF), c.S)
	// Push i lands at 0x01FF-i, since S counts down from 0xFF.
	for i := 0; i < 256; i++ {
		assert.Equal(t, uint8(255-i), r.addr[0x0100+i], "page 1 byte %d", i)
	}
	// Nothing outside page 1 should have been touched.
	assert.Equal(t, uint8(0), r.addr[0x00FF])
	assert.Equal(t, uint8(0), r.addr[0x0200])
}

// TestIndirectJMPPageWrapBug confirms JMP ($10FF) reads the low byte at
// $10FF and the high byte at $1000, not $1100 (the famous 6502 bug).
func TestIndirectJMPPageWrapBug(t *testing.T) {
	c, r := newChip(t, 0x0200, []uint8{0x6C, 0xFF, 0x10})
	r.addr[0x10FF] = 0x34
	r.addr[0x1000] = 0x12 // The buggy wraparound source.
	r.addr[0x1100] = 0x99 // Must NOT be used.
	require.NoError(t, c.Step())
	assert.Equal(t, uint16(0x1234), c.PC)
}

func TestJSRRTSRoundTrip(t *testing.T) {
	c, _ := newChip(t, 0x0200, []uint8{0x20, 0x00, 0x03})
	c.Ram.Write(0x0300, 0x60) // RTS
	require.NoError(t, c.Step())
	assert.Equal(t, uint16(0x0300), c.PC)
	require.NoError(t, c.Step())
	assert.Equal(t, uint16(0x0203), c.PC)
}

func TestSimulateRTSMatchesRealRTS(t *testing.T) {
	c, _ := newChip(t, 0x0200, []uint8{0x20, 0x00, 0x03})
	require.NoError(t, c.Step()) // JSR pushes return addr, jumps to 0x0300.
	c.SimulateRTS()
	assert.Equal(t, uint16(0x0203), c.PC)
}

func TestSimulateJSRResumesAtOriginalPCAfterRTS(t *testing.T) {
	c, _ := newChip(t, 0x0200, []uint8{0xEA}) // NOP, so PC ends at 0x0201 after Step.
	require.NoError(t, c.Step())
	resumePC := c.PC
	c.SimulateJSR(0x0300)
	c.Ram.Write(0x0300, 0x60) // RTS
	require.NoError(t, c.Step())
	assert.Equal(t, resumePC, c.PC)
}

func TestBRKRTIRoundTrip(t *testing.T) {
	c, r := newChip(t, 0x0200, []uint8{0x00, 0xEA}) // BRK, NOP
	r.addr[IRQVector] = 0x00
	r.addr[IRQVector+1] = 0x04
	r.addr[0x0400] = 0x40 // RTI at the BRK/IRQ handler.
	c.P = PS1 | PCarry
	require.NoError(t, c.Step()) // BRK
	assert.Equal(t, uint16(0x0400), c.PC)
	assert.True(t, c.P&PInterrupt != 0)
	require.NoError(t, c.Step()) // RTI
	assert.Equal(t, uint16(0x0202), c.PC)
	assert.True(t, c.P&PCarry != 0)
	assert.False(t, c.P&PInterrupt != 0)
}

func TestUnknownOpcodeHaltsAndStaysHalted(t *testing.T) {
	c, _ := newChip(t, 0x0200, []uint8{0x02}) // Illegal opcode, not in the table.
	if err := c.Step(); err == nil {
		t.Fatalf("expected halt on illegal opcode, state: %s", spew.Sdump(c))
	}
	halted, haltErr := c.Halted()
	assert.True(t, halted)
	require.Error(t, haltErr)
	// Further Step calls must keep returning the same error without
	// mutating state.
	pc := c.PC
	err2 := c.Step()
	if err2 == nil || err2.Error() != haltErr.Error() {
		t.Fatalf("Step after halt changed error, state: %s", spew.Sdump(c))
	}
	assert.Equal(t, pc, c.PC)
}

// decimalAdcSbc exercises TestDecimalRoundTrip's ADC/SBC pair directly
// against the CPU rather than reimplementing BCD arithmetic.
func decimalAdcSbc(t *testing.T, a, b uint8) (result uint8, carrySet bool) {
	t.Helper()
	c, _ := newChip(t, 0x0200, []uint8{
		0x38,       // SEC
		0xF8,       // SED
		0x69, 0x00, // ADC #b (operand patched below)
		0xE9, 0x00, // SBC #b (operand patched below)
	})
	c.Ram.Write(0x0203, b)
	c.Ram.Write(0x0205, b)
	c.A = a
	for i := 0; i < 4; i++ {
		require.NoError(t, c.Step())
	}
	return c.A, c.P&PCarry != 0
}

// TestDecimalRoundTrip confirms that for BCD bytes with digits <= 9, ADC
// then SBC with initial C=1 restores A and leaves C set, as long as the
// intermediate ADC didn't overflow out of two decimal digits.
func TestDecimalRoundTrip(t *testing.T) {
	for hi := uint8(0); hi <= 9; hi++ {
		for lo := uint8(0); lo <= 9; lo++ {
			a := hi<<4 | lo
			for bhi := uint8(0); bhi <= 9; bhi++ {
				for blo := uint8(0); blo <= 9; blo++ {
					b := bhi<<4 | blo
					sum := int(hi)*10 + int(lo) + int(bhi)*10 + int(blo)
					overflowed := sum+1 > 99 // The ADC also adds the initial C=1.
					result, carrySet := decimalAdcSbc(t, a, b)
					if !overflowed {
						assert.Equal(t, a, result, "a=%02X b=%02X", a, b)
						assert.True(t, carrySet, "a=%02X b=%02X", a, b)
					}
				}
			}
		}
	}
}
