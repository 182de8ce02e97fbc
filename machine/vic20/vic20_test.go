package vic20

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

type fakePort struct{ last, lastFg uint8 }

func (f *fakePort) WriteChar(b byte)        {}
func (f *fakePort) ReadChar() byte          { return 0 }
func (f *fakePort) GetIn() byte             { return 0 }
func (f *fakePort) CheckStop() bool         { return false }
func (f *fakePort) SetColor(idx uint8)      { f.last = idx }
func (f *fakePort) SetForeground(idx uint8) { f.lastFg = idx }

func newTestSpace(t *testing.T, banks Banks, port *fakePort) *addrSpace {
	t.Helper()
	ram, err := memory.New8BitRAMBank(ramSize, nil)
	require.NoError(t, err)
	a := &addrSpace{
		ram:     ram,
		chargen: fakeROM{fill: 0xC1},
		basic:   fakeROM{fill: 0xB1},
		kernal:  fakeROM{fill: 0xE1},
		banks:   banks,
	}
	if port != nil {
		a.port = port
	}
	return a
}

func TestCartridgeBankAbsentReadsOpenBus(t *testing.T) {
	a := newTestSpace(t, Banks{}, nil)
	assert.Equal(t, uint8(0xFF), a.Read(0xA000))
}

func TestCartridgeBankPresentReadsRAM(t *testing.T) {
	a := newTestSpace(t, Banks{Bank4: true}, nil)
	a.ram.Write(0xA010, 0x55)
	assert.Equal(t, uint8(0x55), a.Read(0xA010))
}

func TestFixedROMsAlwaysVisible(t *testing.T) {
	a := newTestSpace(t, Banks{}, nil)
	assert.Equal(t, uint8(0xC1), a.Read(charBase))
	assert.Equal(t, uint8(0xB1), a.Read(basicBase))
	assert.Equal(t, uint8(0xE1), a.Read(kernalBase))
}

func TestBackgroundRegisterNotifiesPort(t *testing.T) {
	port := &fakePort{}
	a := newTestSpace(t, Banks{}, port)
	a.Write(regBackground, 0x03)
	assert.Equal(t, uint8(0x03), port.last)
}

func TestBackgroundRegisterAlsoRecomputesForegroundFromColorRAM(t *testing.T) {
	port := &fakePort{}
	a := newTestSpace(t, Banks{}, port)
	a.Write(colorRAMIdx, 0x0E)
	a.Write(regBackground, 0x03)
	assert.Equal(t, uint8(0x03), port.last)
	assert.Equal(t, uint8(0x0E), port.lastFg)
}
