package pet

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
	ram, err := memory.New8BitRAMBank(0x2000, nil)
	require.NoError(t, err)
	video, err := memory.New8BitRAMBank(videoSize, nil)
	require.NoError(t, err)
	ioShadow, err := memory.New8BitRAMBank(ioSize, nil)
	require.NoError(t, err)
	return &addrSpace{
		ram:      ram,
		video:    video,
		ioShadow: ioShadow,
		basic:    fakeROM{fill: 0xB2},
		editor:   fakeROM{fill: 0xED},
		kernal:   fakeROM{fill: 0xE2},
	}
}

func TestKeyboardRowAlwaysReadsFF(t *testing.T) {
	a := newTestSpace(t)
	a.ioShadow.Write(keyboardRow-ioBase, 0x42)
	assert.Equal(t, uint8(0xFF), a.Read(keyboardRow))
}

func TestIOShadowReadsBackWrites(t *testing.T) {
	a := newTestSpace(t)
	a.Write(ioBase+1, 0x77)
	assert.Equal(t, uint8(0x77), a.Read(ioBase+1))
}

func TestROMWritesAreNoOps(t *testing.T) {
	a := newTestSpace(t)
	a.Write(basicBase, 0x00)
	assert.Equal(t, uint8(0xB2), a.Read(basicBase))
	a.Write(kernalBase, 0x00)
	assert.Equal(t, uint8(0xE2), a.Read(kernalBase))
}

func TestVideoRAMIsIndependentOfMainRAM(t *testing.T) {
	a := newTestSpace(t)
	a.Write(videoBase, 0x01)
	a.ram.Write(0x0000, 0x02)
	assert.Equal(t, uint8(0x01), a.Read(videoBase))
}
