package basic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orinoco8/cbmtext/memory"
)

// writeLine encodes one tokenized BASIC line at addr and returns the address
// of the byte after it. nextLine is the link-pointer value to embed; callers
// building a multi-line program patch it up after laying out all lines.
func writeLine(t *testing.T, r memory.Bank, addr, nextLine, lineNum uint16, body []byte) uint16 {
	t.Helper()
	r.Write(addr, uint8(nextLine&0xFF))
	r.Write(addr+1, uint8(nextLine>>8))
	r.Write(addr+2, uint8(lineNum&0xFF))
	r.Write(addr+3, uint8(lineNum>>8))
	pc := addr + 4
	for _, b := range body {
		r.Write(pc, b)
		pc++
	}
	r.Write(pc, 0x00)
	return pc + 1
}

func TestListSingleLine(t *testing.T) {
	r, err := memory.New8BitRAMBank(1<<16, nil)
	require.NoError(t, err)

	const start = 0x0801
	// 10 PRINT"HI"
	body := []byte{0x99, '"', 'H', 'I', '"'}
	end := writeLine(t, r, start, 0, 10, body)
	// Patch the link pointer now that we know where the program ends
	// (0 here, meaning "end of program").
	r.Write(start, uint8(end&0xFF))
	r.Write(start+1, uint8(end>>8))
	r.Write(end, 0)
	r.Write(end+1, 0)

	got, newPC, err := List(start, r)
	require.NoError(t, err)
	assert.Equal(t, `10 PRINT"HI"`, got)
	assert.Equal(t, end, newPC)

	got, newPC, err = List(newPC, r)
	require.NoError(t, err)
	assert.Equal(t, "", got)
	assert.Equal(t, uint16(0), newPC)
}

func TestListBadToken(t *testing.T) {
	r, err := memory.New8BitRAMBank(1<<16, nil)
	require.NoError(t, err)

	const start = 0x0801
	writeLine(t, r, start, 0, 10, []byte{0xFF})

	_, _, err = List(start, r)
	require.Error(t, err)
}

func TestListMultipleLines(t *testing.T) {
	r, err := memory.New8BitRAMBank(1<<16, nil)
	require.NoError(t, err)

	const start = 0x0801
	second := uint16(start + 0x10) // arbitrary spacing, patched below
	writeLine(t, r, second, 0, 20, []byte{0x8A})
	r.Write(second, 0)
	r.Write(second+1, 0)

	writeLine(t, r, start, second, 10, []byte{0x99, '1'})

	got, newPC, err := List(start, r)
	require.NoError(t, err)
	assert.Equal(t, `10 PRINT1`, got)
	assert.Equal(t, second, newPC)

	got, newPC, err = List(newPC, r)
	require.NoError(t, err)
	assert.Equal(t, "20 RUN", got)
	assert.Equal(t, uint16(0), newPC)
}
