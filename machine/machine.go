// Package machine ties a per-target Address Space, a cpu.Chip and a
// hooks.Set together into the runnable unit a launcher drives. Per-machine
// packages (c64, vic20, pet, ted, c128) each build one of these; this
// package only knows how to run it and report why it stopped.
package machine

import (
	"github.com/orinoco8/cbmtext/cpu"
	"github.com/orinoco8/cbmtext/hooks"
)

// Machine is one instantiated target: its CPU, wired to its Address Space
// through cpu.ChipDef.Ram, and its KERNAL hook set.
type Machine struct {
	Chip  *cpu.Chip
	Hooks *hooks.Set
}

// Switch describes why Run stopped because of a GO-statement switch or BYE.
// Target is the machine tag number the GO statement named; when it equals
// the machine's own tag, the launcher should treat this as exit.
type Switch struct {
	Target int
}

// Run steps the CPU until the hook set requests a machine switch/exit or
// the CPU halts on an unrecoverable error. A returned *Switch is not an
// error: it is the BYE / "GO n" exit signal the launcher acts on.
func (m *Machine) Run() (*Switch, error) {
	for {
		if err := m.Chip.Step(); err != nil {
			return nil, err
		}
		if m.Hooks.Exit() {
			return &Switch{Target: m.Hooks.SwitchTarget()}, nil
		}
	}
}
