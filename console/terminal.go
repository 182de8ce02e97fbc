package console

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/term"

	"github.com/orinoco8/cbmtext/io"
)

// Terminal is the default host-side Port: a raw-mode stdin/stdout console
// that does its own line editing (so CHRIN's "blocks until a whole line is
// typed" contract holds) and PETSCII-style control-code translation for
// CHROUT.
//
// The reader goroutine is the only writer of the line queue and the stop
// flag; ReadChar/GetIn/CheckStop (called from the CPU's hook thread) are the
// only readers. A channel and an atomic flag are enough to keep the two
// sides from racing, matching 's "simple mutex or single-threaded
// interleaving suffices" guidance.
type Terminal struct {
	fd       int
	oldState *term.State

	lineQueue chan byte
	stop      atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewTerminal puts stdin into raw mode and starts the background line
// editor. Callers must call Close to restore the terminal on exit.
func NewTerminal() (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("can't set raw mode: %w", err)
	}
	t := &Terminal{
		fd:        fd,
		oldState:  old,
		lineQueue: make(chan byte, 1024),
		done:      make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

// Close restores the terminal's original mode. Safe to call more than once.
func (t *Terminal) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = term.Restore(t.fd, t.oldState)
	})
	return err
}

// readLoop does byte-at-a-time line editing against the raw terminal:
// printable characters are echoed and buffered, backspace/delete removes
// the last buffered character and erases it on screen (no CodeDelete is
// queued; the line is edited here before it is sent), Enter echoes a newline
// and flushes the whole line (terminated by CodeReturn) onto lineQueue, and
// ESC sets the STOP flag.
func (t *Terminal) readLoop() {
	buf := make([]byte, 1)
	var line []byte
	for {
		select {
		case <-t.done:
			return
		default:
		}
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			if err != nil {
				return
			}
			continue
		}
		b := buf[0]
		switch {
		case b == 0x1B: // ESC, mapped to the STOP key per the reference mapping.
			t.stop.Store(true)
		case b == '\r' || b == '\n':
			os.Stdout.WriteString("\r\n")
			for _, c := range line {
				t.lineQueue <- c
			}
			t.lineQueue <- CodeReturn
			line = line[:0]
		case b == 0x7F || b == 0x08: // DEL or backspace.
			if len(line) > 0 {
				line = line[:len(line)-1]
				os.Stdout.WriteString("\b \b")
			}
		case b >= 0x20 && b < 0x7F:
			line = append(line, b)
			os.Stdout.Write([]byte{b})
		}
	}
}

// ReadChar implements Port. It blocks on the channel the reader goroutine
// feeds, which is exactly "blocks until a whole line is available".
func (t *Terminal) ReadChar() byte {
	return <-t.lineQueue
}

// GetIn implements Port's non-blocking poll via the io.Port8 shape.
func (t *Terminal) GetIn() byte {
	return (&getInPort{t}).Input()
}

// CheckStop implements Port's non-blocking, event-consuming poll via the
// io.PortIn1 shape.
func (t *Terminal) CheckStop() bool {
	return (&stopPort{t}).Input()
}

// getInPort and stopPort exist so the Console Port's two poll operations are
// expressed against the same io.Port8/io.PortIn1 contracts the rest of the
// module's poll-style I/O (joystick/paddle-shaped inputs) uses, rather than
// being bespoke methods with no shared shape.
type getInPort struct{ t *Terminal }

func (g *getInPort) Input() uint8 {
	select {
	case b := <-g.t.lineQueue:
		return b
	default:
		return 0
	}
}

var _ io.Port8 = (*getInPort)(nil)

type stopPort struct{ t *Terminal }

func (s *stopPort) Input() bool {
	return s.t.stop.Swap(false)
}

var _ io.PortIn1 = (*stopPort)(nil)

// WriteChar implements Port, translating the PETSCII-ish control codes from
// into ANSI terminal sequences and passing everything else
// through as a literal byte.
func (t *Terminal) WriteChar(b byte) {
	switch b {
	case CodeReturn, CodeReturnShift:
		os.Stdout.WriteString("\r\n")
	case CodeClearHome:
		os.Stdout.WriteString(ansi.EraseEntireScreen + ansi.CursorHomePosition)
	case CodeCursorLeft:
		os.Stdout.WriteString(ansi.CursorBackward(1))
	case CodeCursorRight:
		os.Stdout.WriteString(ansi.CursorForward(1))
	case CodeCursorUp:
		os.Stdout.WriteString(ansi.CursorUp(1))
	case CodeCursorDown:
		os.Stdout.WriteString(ansi.CursorDown(1))
	case CodeHome:
		os.Stdout.WriteString(ansi.CursorHomePosition)
	default:
		if b >= 0x20 && b < 0x7F {
			os.Stdout.Write([]byte{b})
		}
		// Other codes (color switches, graphics glyphs, shifted alpha) are
		// ignored by this reference terminal; a fuller PETSCII-to-Unicode
		// mapping is the host terminal's job, not the core's.
	}
}

// c64Palette maps the 16 VIC-II/VIC colors (also used by the VIC-20's VIC
// chip) to an xterm 256-color palette index, mostly from its first 16
// entries, for the 48;5/38;5 SGR sequences below. Index order matches the
// Commodore color numbering (0 = black .. 15 = light grey).
var c64Palette = [16]int{
	0, 15, 1, 14, 5, 2, 4, 11,
	3, 94, 9, 8, 7, 10, 12, 7,
}

// SetColor implements Port by setting the terminal's background color to
// the nearest ANSI equivalent of the given Commodore color index. This is
// a raw SGR sequence rather than an ansi package helper: the package's
// exported surface covers cursor motion and screen erasure, not 256-color
// background selection, so there is nothing to call here.
func (t *Terminal) SetColor(idx uint8) {
	c := c64Palette[idx&0x0F]
	fmt.Fprintf(os.Stdout, "\x1b[48;5;%dm", c)
}

// SetForeground implements Port the same way SetColor does, against the SGR
// foreground slot instead of the background one.
func (t *Terminal) SetForeground(idx uint8) {
	c := c64Palette[idx&0x0F]
	fmt.Fprintf(os.Stdout, "\x1b[38;5;%dm", c)
}

var _ Port = (*Terminal)(nil)
