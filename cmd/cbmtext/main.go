// Command cbmtext boots one emulated Commodore machine and presents it as
// an interactive text console on the host terminal, or (via the walk
// subcommand) statically disassembles a binary instead of running it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/orinoco8/cbmtext/basic"
	"github.com/orinoco8/cbmtext/console"
	"github.com/orinoco8/cbmtext/disasm"
	"github.com/orinoco8/cbmtext/hooks"
	"github.com/orinoco8/cbmtext/machine"
	"github.com/orinoco8/cbmtext/machine/c128"
	"github.com/orinoco8/cbmtext/machine/c64"
	"github.com/orinoco8/cbmtext/machine/pet"
	"github.com/orinoco8/cbmtext/machine/ted"
	"github.com/orinoco8/cbmtext/machine/vic20"
	"github.com/orinoco8/cbmtext/memory"
)

func main() {
	log.SetFlags(0)
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "walk" {
		if err := runWalk(args[1:]); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := runMachine(args); err != nil {
		log.Fatal(err)
	}
}

// romDir is where a system's firmware images are expected to live, one
// subdirectory per tag, named the way the KERNAL/BASIC/CHARGEN files are
// conventionally distributed.
const romDir = "roms"

func runMachine(args []string) error {
	fs := flag.NewFlagSet("cbmtext", flag.ExitOnError)
	ramKB := fs.Int("ram", 0, "RAM size in kilobytes (0 = machine default)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: cbmtext [-ram N] <c64|vic20|pet|c16|plus4|ted|c128> [startup-file]")
	}
	tag := rest[0]
	var startup string
	if len(rest) > 1 {
		startup = rest[1]
	}

	port, err := console.NewTerminal()
	if err != nil {
		return fmt.Errorf("can't start console: %w", err)
	}
	defer port.Close()

	fsys := hooks.NewDiskFileSystem()
	dir := romDir + "/" + tag

	for {
		m, err := buildMachine(tag, dir, *ramKB, port, fsys, startup)
		if err != nil {
			return fmt.Errorf("can't start %s: %w", tag, err)
		}
		sw, err := m.Run()
		if err != nil {
			return fmt.Errorf("%s halted: %w", tag, err)
		}
		if sw.Target == machineTag(tag) {
			return nil // BYE: the machine switched to itself.
		}
		next := tagForTarget(sw.Target)
		if next == "" {
			return fmt.Errorf("unknown switch target %d", sw.Target)
		}
		tag = next
		dir = romDir + "/" + tag
		startup = ""
	}
}

func buildMachine(tag, dir string, ramKB int, port console.Port, fsys hooks.FileSystem, startup string) (*machine.Machine, error) {
	switch tag {
	case "c64":
		return c64.New(c64.ROMs{
			Basic:   dir + "/basic.rom",
			Kernal:  dir + "/kernal.rom",
			CharROM: dir + "/chargen.rom",
		}, port, fsys, startup)
	case "vic20":
		return vic20.New(vic20.ROMs{
			Basic:   dir + "/basic.rom",
			Kernal:  dir + "/kernal.rom",
			CharROM: dir + "/chargen.rom",
		}, vic20.Banks{Bank0: true, Bank1: true, Bank2: true, Bank3: true}, port, fsys, startup)
	case "pet":
		size := ramKB * 1024
		if size == 0 {
			size = 32 * 1024
		}
		return pet.New(pet.ROMs{
			Basic:  dir + "/basic.rom",
			Editor: dir + "/editor.rom",
			Kernal: dir + "/kernal.rom",
		}, size, port, fsys, startup)
	case "c16", "plus4", "ted":
		size := ramKB * 1024
		if size == 0 {
			size = 64 * 1024
		}
		ready := uint16(0x8703)
		if tag == "plus4" {
			ready = 0x4D37
		}
		return ted.New(ted.ROMs{
			Basic:  dir + "/basic.rom",
			Kernal: dir + "/kernal.rom",
		}, size, ready, port, fsys, startup)
	case "c128":
		return c128.New(c128.ROMs{
			BasicLo: dir + "/basiclo.rom",
			BasicHi: dir + "/basichi.rom",
			Kernal:  dir + "/kernal.rom",
			CharROM: dir + "/chargen.rom",
		}, port, fsys, startup)
	}
	return nil, fmt.Errorf("unknown system tag %q", tag)
}

// machineTag maps a CLI system tag to the numeric tag the GO-statement
// sniffer and D505 switch signal use.
func machineTag(tag string) int {
	switch tag {
	case "c64":
		return 64
	case "vic20":
		return 20
	case "pet":
		return 2001
	case "c16":
		return 16
	case "plus4":
		return 4
	case "c128":
		return 128
	}
	return -1
}

func tagForTarget(target int) string {
	switch target {
	case 64:
		return "c64"
	case 20:
		return "vic20"
	case 2001:
		return "pet"
	case 16:
		return "c16"
	case 4:
		return "plus4"
	case 128:
		return "c128"
	}
	return ""
}

// runWalk statically disassembles a binary file instead of running it: a
// file whose name ends in .prg is a PRG, its first two bytes read as the
// load address (a PRG loaded at the conventional $0801 BASIC start is
// listed as BASIC instead of disassembled); walking starts at file offset 2
// for a PRG and 0 otherwise, unless explicit hex addresses are given.
func runWalk(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: cbmtext walk <file> [hex-addr]...")
	}
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var starts []uint16
	for _, a := range args[1:] {
		n, err := strconv.ParseUint(strings.TrimPrefix(a, "0x"), 16, 16)
		if err != nil {
			return fmt.Errorf("bad hex address %q: %w", a, err)
		}
		starts = append(starts, uint16(n))
	}

	size := 1
	for size < len(data) {
		size <<= 1
	}
	ram, err := memory.New8BitRAMBank(size, nil)
	if err != nil {
		return err
	}
	for i, b := range data {
		ram.Write(uint16(i), b)
	}

	isPRG := strings.HasSuffix(strings.ToLower(path), ".prg")
	loadAddr := uint16(0)
	if isPRG && len(data) >= 2 {
		loadAddr = uint16(data[0]) | uint16(data[1])<<8
	}

	if len(starts) == 0 {
		if isPRG {
			starts = []uint16{2} // Skip the 2-byte PRG header.
		} else {
			starts = []uint16{0}
		}
	}

	for _, pc := range starts {
		if isPRG && loadAddr == 0x0801 {
			walkBasic(pc, ram)
			continue
		}
		walkCode(pc, len(data), ram)
	}
	return nil
}

func walkBasic(pc uint16, ram memory.Bank) {
	for {
		line, next, err := basic.List(pc, ram)
		if err != nil {
			fmt.Printf("%04X: %v\n", pc, err)
			return
		}
		if next == 0 {
			return
		}
		fmt.Println(line)
		pc = next
	}
}

func walkCode(pc uint16, limit int, ram memory.Bank) {
	for int(pc) < limit {
		text, n := disasm.Step(pc, ram)
		fmt.Printf("%04X: %s\n", pc, text)
		pc += uint16(n)
	}
}
