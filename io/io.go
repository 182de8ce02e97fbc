// Package io defines the basic interfaces for working with a 6502 family
// based I/O port. It's intended that implementors poll these on demand
// rather than being driven by a clock, since this module does not model
// cycle timing.
package io

// Port8 defines an 8 bit I/O port. The Console Port's non-blocking GETIN
// poll is shaped like this: 0 means no key available.
type Port8 interface {
	// Input will return the current value being set on the given input port.
	Input() uint8
}

// PortIn1 defines a single bit I/O port. The Console Port's STOP-key poll
// is shaped like this: true exactly once, consuming the event.
type PortIn1 interface {
	// Input returns the current value on the port.
	Input() bool
}
