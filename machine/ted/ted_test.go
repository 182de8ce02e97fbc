package ted

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orinoco8/cbmtext/memory"
)

type fakeROM struct{ fill uint8 }

func (f fakeROM) Read(addr uint16) uint8     { return f.fill }
func (f fakeROM) Write(addr uint16, v uint8) {}
func (f fakeROM) PowerOn()                   {}
func (f fakeROM) Parent() memory.Bank        { return nil }
func (f fakeROM) DatabusVal() uint8          { return f.fill }

func newTestSpace(t *testing.T) *addrSpace {
	t.Helper()
	ram, err := memory.New8BitRAMBank(1<<16, nil)
	require.NoError(t, err)
	ioShadow, err := memory.New8BitRAMBank(ioSize, nil)
	require.NoError(t, err)
	return &addrSpace{
		ram:        ram,
		basic:      fakeROM{fill: 0xB3},
		kernal:     fakeROM{fill: 0xE3},
		size:       1 << 16,
		romEnabled: true,
		ioShadow:   ioShadow,
	}
}

func TestROMVisibleByDefault(t *testing.T) {
	a := newTestSpace(t)
	assert.Equal(t, uint8(0xB3), a.Read(basicBase))
	assert.Equal(t, uint8(0xE3), a.Read(kernalBase))
}

func TestROMOffExposesRAM(t *testing.T) {
	a := newTestSpace(t)
	a.Write(regROMOff, 0x00)
	a.ram.Write(kernalBase, 0x9A)
	assert.Equal(t, uint8(0x9A), a.Read(kernalBase))
	a.Write(regROMOn, 0x00)
	assert.Equal(t, uint8(0xE3), a.Read(kernalBase))
}

func TestConfigRegisterSelectsFunctionROM(t *testing.T) {
	a := newTestSpace(t)
	// FDD1: low 4 bits = 0001 -> loSel=FUNC (1), hiSel=KERNAL (0).
	a.Write(0xFDD1, 0x00)
	assert.Equal(t, uint8(0xFF), a.Read(basicBase)) // No function ROM loaded: open bus.
	assert.Equal(t, uint8(0xE3), a.Read(kernalBase))
}

func TestFixedBlockAlwaysReadsKernal(t *testing.T) {
	a := newTestSpace(t)
	a.Write(0xFDD1, 0x00) // Bank out BASIC in favor of (absent) FUNC.
	assert.Equal(t, uint8(0xE3), a.Read(fixedBase))
}

func TestWritesUnderROMLandInRAM(t *testing.T) {
	a := newTestSpace(t)
	a.Write(basicBase, 0x44)
	a.Write(regROMOff, 0x00)
	assert.Equal(t, uint8(0x44), a.Read(basicBase))
}
