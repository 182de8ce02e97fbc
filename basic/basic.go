// Package basic lists tokenized BASIC V2 programs the way the real LIST
// command would render them. BASIC V2 is the dialect shared by the PET,
// VIC-20 and C64; it does not cover the BASIC 7.0/3.5 token extensions on
// the C128 or C16/Plus-4.
package basic

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/orinoco8/cbmtext/memory"
)

// tokens maps a BASIC V2 token byte (0x80-0xCB) to its keyword. Index 0 of
// the slice corresponds to token byte 0x80.
var tokens = [...]string{
	"END", "FOR", "NEXT", "DATA", "INPUT#", "INPUT", "DIM", "READ",
	"LET", "GOTO", "RUN", "IF", "RESTORE", "GOSUB", "RETURN", "REM",
	"STOP", "ON", "WAIT", "LOAD", "SAVE", "VERIFY", "DEF", "POKE",
	"PRINT#", "PRINT", "CONT", "LIST", "CLR", "CMD", "SYS", "OPEN",
	"CLOSE", "GET", "NEW", "TAB(", "TO", "FN", "SPC(", "THEN",
	"NOT", "STEP", "+", "-", "*", "/", "^", "AND",
	"OR", ">", "=", "<", "SGN", "INT", "ABS", "USR",
	"FRE", "POS", "SQR", "RND", "LOG", "EXP", "COS", "SIN",
	"TAN", "ATN", "PEEK", "LEN", "STR$", "VAL", "ASC", "CHR$",
	"LEFT$", "RIGHT$", "MID$", "GO",
}

func readAddr(r memory.Bank, addr uint16) uint16 {
	return (uint16(r.Read(addr+1)) << 8) + uint16(r.Read(addr))
}

// List disassembles the BASIC line at pc, returning its rendered text and
// the address of the following line. An end-of-program link (newPC ==
// 0x0000) returns an empty string and PC 0. A token outside 0x00-0xCB is a
// tokenizer error; as much of the line as parsed is still returned.
//
// This does no loop detection: a program whose link pointers cycle will
// make a caller that doesn't compare returned PCs against ones already
// visited loop forever.
func List(pc uint16, r memory.Bank) (string, uint16, error) {
	newPC := readAddr(r, pc)
	pc += 2
	if newPC == 0x0000 {
		return "", 0x0000, nil
	}

	lineNum := readAddr(r, pc)
	pc += 2

	var b bytes.Buffer
	fmt.Fprintf(&b, "%d ", lineNum)

	for {
		tok := r.Read(pc)
		pc++
		if tok == 0x00 {
			break
		}
		if tok < 0x80 {
			b.WriteByte(tok)
			continue
		}
		if int(tok)-0x80 >= len(tokens) {
			return b.String(), 0, errors.New("?SYNTAX  ERROR")
		}
		b.WriteString(tokens[tok-0x80])
	}
	return b.String(), newPC, nil
}
