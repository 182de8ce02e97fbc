package hooks

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orinoco8/cbmtext/cpu"
	"github.com/orinoco8/cbmtext/memory"
)

type flatMemory struct {
	addr [65536]uint8
}

func (r *flatMemory) Read(addr uint16) uint8     { return r.addr[addr] }
func (r *flatMemory) Write(addr uint16, v uint8) { r.addr[addr] = v }
func (r *flatMemory) PowerOn()                   {}
func (r *flatMemory) Parent() memory.Bank        { return nil }
func (r *flatMemory) DatabusVal() uint8          { return 0 }

type fakePort struct {
	out       []byte
	in        []byte
	getIn     byte
	stop      bool
	lastColor uint8
}

func (p *fakePort) WriteChar(b byte) { p.out = append(p.out, b) }
func (p *fakePort) ReadChar() byte {
	if len(p.in) == 0 {
		return 0
	}
	b := p.in[0]
	p.in = p.in[1:]
	return b
}
func (p *fakePort) GetIn() byte             { return p.getIn }
func (p *fakePort) CheckStop() bool         { return p.stop }
func (p *fakePort) SetColor(idx uint8)      { p.lastColor = idx }
func (p *fakePort) SetForeground(idx uint8) {}

type fakeFS struct {
	files map[string][]byte
	saved map[string][]byte
}

func newFakeFS() *fakeFS {
	return &fakeFS{files: map[string][]byte{}, saved: map[string][]byte{}}
}

func (f *fakeFS) ReadPRG(name string) ([]byte, error) {
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("no such file %q", name)
	}
	return data, nil
}

func (f *fakeFS) WritePRG(name string, data []byte) error {
	f.saved[name] = data
	return nil
}

var _ FileSystem = (*fakeFS)(nil)

func testAddrs() Addrs {
	return Addrs{
		Chrout: 0xFFD2, Chrin: 0xFFCF, Getin: 0xFFE4, Stop: 0xFFE1,
		SetLFS: 0xFFBA, SetNam: 0xFFBD, Load: 0xFFD5, Save: 0xFFD8,
		Ready: 0xA474, GoTarget: 0xA7E1,
		LinkPrg: 0xA533, Clr: 0xA660, MainSkipReady: 0xA48D,
		TxtTab: 0x002B, VarTab: 0x002D, AryEnd: 0x002F,
		KeyBuf: 0x0277, KeyBufLen: 0x00C6,
	}
}

func newTestChip(t *testing.T) (*cpu.Chip, *flatMemory) {
	t.Helper()
	r := &flatMemory{}
	c, err := cpu.Init(cpu.ChipDef{Ram: r})
	require.NoError(t, err)
	return c, r
}

// pushReturnAddr writes a return address onto the stack the same way a real
// JSR would, so that a hook's SimulateRTS lands PC at target.
func pushReturnAddr(chip *cpu.Chip, target uint16) {
	ret := target - 1
	chip.Ram.Write(0x0100+uint16(chip.S), uint8(ret>>8))
	chip.S--
	chip.Ram.Write(0x0100+uint16(chip.S), uint8(ret&0xFF))
	chip.S--
}

func TestChroutForwardsToPortAndRunsROM(t *testing.T) {
	chip, _ := newTestChip(t)
	port := &fakePort{}
	s := New(chip, port, newFakeFS(), testAddrs(), "")
	chip.A = 'A'
	handled, err := s.Check(testAddrs().Chrout)
	require.NoError(t, err)
	assert.False(t, handled) // ROM still runs to update screen memory.
	assert.Equal(t, []byte{'A'}, port.out)
}

func TestChrinReadsFromPortAndSimulatesRTS(t *testing.T) {
	chip, _ := newTestChip(t)
	chip.S = 0xFF
	pushReturnAddr(chip, 0x1234)
	port := &fakePort{in: []byte{'X'}}
	s := New(chip, port, newFakeFS(), testAddrs(), "")
	handled, err := s.Check(testAddrs().Chrin)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, uint8('X'), chip.A)
	assert.Equal(t, uint16(0x1234), chip.PC)
}

func TestStopHookReflectsCheckStopInZeroFlag(t *testing.T) {
	chip, _ := newTestChip(t)
	chip.S = 0xFF
	pushReturnAddr(chip, 0x1234)
	port := &fakePort{stop: true}
	s := New(chip, port, newFakeFS(), testAddrs(), "")
	handled, err := s.Check(testAddrs().Stop)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, chip.P&cpu.PZero != 0)
}

func TestLoadHookTransfersFileAndSetsEndPointer(t *testing.T) {
	chip, _ := newTestChip(t)
	chip.S = 0xFF
	pushReturnAddr(chip, 0x1234)
	fs := newFakeFS()
	fs.files["PROG"] = []byte{0x00, 0x08, 0xAA, 0xBB, 0xCC}
	s := New(chip, &fakePort{}, fs, testAddrs(), "")
	s.fileName = "PROG"
	chip.A = 0 // load, not verify
	chip.X, chip.Y = 0, 0
	handled, err := s.Check(testAddrs().Load)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, uint8(0xAA), chip.Ram.Read(0x0800))
	assert.Equal(t, uint8(0xBB), chip.Ram.Read(0x0801))
	assert.Equal(t, uint8(0xCC), chip.Ram.Read(0x0802))
	assert.False(t, chip.P&cpu.PCarry != 0)
	// End pointer: one past the last byte loaded, 0x0803, in X/Y.
	assert.Equal(t, uint8(0x03), chip.X)
	assert.Equal(t, uint8(0x08), chip.Y)
}

func TestLoadHookVerifySuccessClearsCarry(t *testing.T) {
	chip, _ := newTestChip(t)
	chip.S = 0xFF
	pushReturnAddr(chip, 0x1234)
	fs := newFakeFS()
	fs.files["PROG"] = []byte{0x00, 0x08, 0xAA, 0xBB, 0xCC}
	s := New(chip, &fakePort{}, fs, testAddrs(), "")
	s.fileName = "PROG"
	// Pre-load the identical image into RAM so VERIFY has nothing to flag.
	chip.Ram.Write(0x0800, 0xAA)
	chip.Ram.Write(0x0801, 0xBB)
	chip.Ram.Write(0x0802, 0xCC)
	chip.A = 1 // verify
	chip.X, chip.Y = 0, 0
	handled, err := s.Check(testAddrs().Load)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.False(t, chip.P&cpu.PCarry != 0)
}

func TestLoadHookVerifyMismatchSetsCarryAndError(t *testing.T) {
	chip, _ := newTestChip(t)
	chip.S = 0xFF
	pushReturnAddr(chip, 0x1234)
	fs := newFakeFS()
	fs.files["PROG"] = []byte{0x00, 0x08, 0xAA, 0xBB, 0xCC}
	s := New(chip, &fakePort{}, fs, testAddrs(), "")
	s.fileName = "PROG"
	// RAM disagrees with the file at one byte.
	chip.Ram.Write(0x0800, 0xAA)
	chip.Ram.Write(0x0801, 0x00)
	chip.Ram.Write(0x0802, 0xCC)
	chip.A = 1 // verify
	chip.X, chip.Y = 0, 0
	handled, err := s.Check(testAddrs().Load)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, chip.P&cpu.PCarry != 0)
	assert.Equal(t, ErrVerify, chip.A)
}

func TestLoadHookMissingFileFails(t *testing.T) {
	chip, _ := newTestChip(t)
	chip.S = 0xFF
	pushReturnAddr(chip, 0x1234)
	s := New(chip, &fakePort{}, newFakeFS(), testAddrs(), "")
	s.fileName = "NOPE"
	chip.A = 0
	_, err := s.Check(testAddrs().Load)
	require.NoError(t, err)
	assert.True(t, chip.P&cpu.PCarry != 0)
	assert.Equal(t, ErrFileNotFound, chip.A)
}

func TestSaveHookWritesRAMRangeAsPRG(t *testing.T) {
	chip, r := newTestChip(t)
	r.addr[0x00] = 0x00
	r.addr[0x01] = 0x08
	r.addr[0x0800] = 0x11
	r.addr[0x0801] = 0x22
	fs := newFakeFS()
	s := New(chip, &fakePort{}, fs, testAddrs(), "")
	s.fileName = "OUT"
	chip.A = 0x00 // zero page pointer holding start address
	chip.X, chip.Y = 0x02, 0x08 // end address 0x0802
	s.Check(testAddrs().Save)
	assert.Equal(t, []byte{0x00, 0x08, 0x11, 0x22}, fs.saved["OUT"])
}

func TestGoSnifferRecognizesValidTarget(t *testing.T) {
	chip, _ := newTestChip(t)
	s := New(chip, &fakePort{}, newFakeFS(), testAddrs(), "")
	chip.S = 0xFF
	pushReturnAddr(chip, 0x1234)
	addrs := testAddrs()
	chip.A, chip.X = 64, 0
	handled, err := s.Check(addrs.GoTarget)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, s.Exit())
	// PC must move off GoTarget, or Step's hook-retry loop would re-enter
	// this same Check forever and Run would never observe Exit().
	assert.NotEqual(t, addrs.GoTarget, chip.PC)
	assert.Equal(t, uint16(0x1234), chip.PC)
	assert.Equal(t, 64, s.SwitchTarget())
}

func TestGoSnifferIgnoresUnrecognizedTarget(t *testing.T) {
	chip, _ := newTestChip(t)
	s := New(chip, &fakePort{}, newFakeFS(), testAddrs(), "")
	chip.A, chip.X = 0xFF, 0xFF
	handled, err := s.Check(testAddrs().GoTarget)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.False(t, s.Exit())
}

func TestRequestSwitchSetsExitAndTarget(t *testing.T) {
	chip, _ := newTestChip(t)
	s := New(chip, &fakePort{}, newFakeFS(), testAddrs(), "")
	s.RequestSwitch(64)
	assert.True(t, s.Exit())
	assert.Equal(t, 64, s.SwitchTarget())
}

func TestAutoLoadRunsThroughAllThreeStates(t *testing.T) {
	chip, _ := newTestChip(t)
	fs := newFakeFS()
	fs.files["STARTUP"] = []byte{0x01, 0x08, 0xDE, 0xAD}
	addrs := testAddrs()
	addrs.AutoLoadSecondary = 1 // absolute addressing: use the header address.
	s := New(chip, &fakePort{}, fs, addrs, "STARTUP")
	chip.S = 0xFF

	handled, err := s.Check(addrs.Ready)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, stateLinked, s.startupState)
	assert.Equal(t, addrs.LinkPrg, chip.PC)

	_, err = s.Check(addrs.Ready)
	require.NoError(t, err)
	assert.Equal(t, stateCleared, s.startupState)
	assert.Equal(t, addrs.Clr, chip.PC)

	_, err = s.Check(addrs.Ready)
	require.NoError(t, err)
	assert.Equal(t, stateDone, s.startupState)
	assert.Equal(t, addrs.MainSkipReady, chip.PC)
	assert.Equal(t, uint8('R'), chip.Ram.Read(addrs.KeyBuf))
	assert.Equal(t, uint8(4), chip.Ram.Read(addrs.KeyBufLen))
}

func TestAutoLoadNoopWhenNoStartupProgram(t *testing.T) {
	chip, _ := newTestChip(t)
	s := New(chip, &fakePort{}, newFakeFS(), testAddrs(), "")
	handled, err := s.Check(testAddrs().Ready)
	require.NoError(t, err)
	assert.False(t, handled)
}
