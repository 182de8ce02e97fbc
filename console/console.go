// Package console defines the narrow port the CPU core's KERNAL hooks
// depend on and ships one reference implementation of it for a
// host terminal. The core never imports this package directly; a Machine
// Model's hook set is handed a Port and talks to it only through the
// interface below, so the host-side terminal (cursor motion, PETSCII
// translation, keyboard polling) stays an external collaborator.
package console

// Port is the contract every hook in the hooks package depends on.
type Port interface {
	// WriteChar renders one output byte (CHROUT).
	WriteChar(b byte)
	// ReadChar blocks until a full line has been typed and then returns its
	// characters one at a time, the last of which is always 0x0D (CHRIN).
	ReadChar() byte
	// GetIn is the non-blocking poll: 0 when no key is available (GETIN).
	GetIn() byte
	// CheckStop returns true exactly once per STOP keypress, consuming the
	// event (STOP).
	CheckStop() bool
	// SetColor notifies the host of a background color change driven by a
	// write to a machine's color register ($D021 on C64, $900F on VIC-20).
	// Color mapping is a host concern; a Port may render it, approximate
	// it, or ignore it entirely.
	SetColor(idx uint8)
	// SetForeground notifies the host of a foreground/text color change.
	// The VIC-20's $900F handler derives this from the RAM[199] screen-color
	// shadow rather than from the register write itself; other machines
	// that only expose a background register never call this.
	SetForeground(idx uint8)
}

// PETSCII-ish control codes the reference WriteChar/ReadChar implementation
// translates to and from host terminal behavior.
const (
	CodeReturn      = 0x0D
	CodeReturnShift = 0x8D
	CodeClearHome   = 0x93
	CodeCursorLeft  = 0x9D
	CodeCursorRight = 0x1D
	CodeCursorUp    = 0x91
	CodeCursorDown  = 0x11
	CodeHome        = 0x13
	CodeDelete      = 0x14
)
