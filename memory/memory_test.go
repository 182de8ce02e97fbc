package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRAMBankRejectsOddSize(t *testing.T) {
	_, err := New8BitRAMBank(3, nil)
	assert.Error(t, err)
}

func TestRAMBankRejectsOversize(t *testing.T) {
	_, err := New8BitRAMBank(1<<17, nil)
	assert.Error(t, err)
}

func TestRAMBankReadWriteRoundTrip(t *testing.T) {
	b, err := New8BitRAMBank(256, nil)
	require.NoError(t, err)
	b.Write(0x10, 0x42)
	assert.Equal(t, uint8(0x42), b.Read(0x10))
	assert.Equal(t, uint8(0x42), b.DatabusVal())
}

func TestRAMBankSmallerThan64KAliases(t *testing.T) {
	b, err := New8BitRAMBank(256, nil)
	require.NoError(t, err)
	b.Write(0x10, 0x99)
	assert.Equal(t, uint8(0x99), b.Read(0x0110)) // 0x0110 & 0xFF == 0x10.
}

func TestLatestDatabusValWalksParentChain(t *testing.T) {
	outer, err := New8BitRAMBank(16, nil)
	require.NoError(t, err)
	outer.Write(0, 0x55)
	inner, err := New8BitRAMBank(16, outer)
	require.NoError(t, err)
	inner.Write(0, 0xAA)
	assert.Equal(t, uint8(0x55), LatestDatabusVal(inner))
}

func TestROMBankLoadsExactSizeAndRejectsMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.rom")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0644))

	b, err := NewROMBank(path, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), b.Read(2))

	_, err = NewROMBank(path, 8, nil)
	assert.Error(t, err)
}

func TestROMBankWriteIsNoOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.rom")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0644))
	b, err := NewROMBank(path, 4, nil)
	require.NoError(t, err)
	b.Write(0, 0xFF)
	assert.Equal(t, uint8(1), b.Read(0))
}

func TestROMBankMissingFile(t *testing.T) {
	_, err := NewROMBank(filepath.Join(t.TempDir(), "missing.rom"), 4, nil)
	assert.Error(t, err)
}
