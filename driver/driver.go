// Package driver declares the capability interfaces a controller needs
// from its environment: a MAC-layer transceiver and a monotonic clock.
// Both are injected so the engine never depends on a particular NIC or
// operating system (spec §6's external interfaces, modeled as
// interfaces rather than bare function pointers per the design note on
// capability-style dependency injection).
package driver

import "github.com/embednet/micronet"

// MAC is the non-blocking transceiver a controller drives. Controllers
// never assume concurrent access to this from more than the main cycle;
// the only exception is a driver is permitted to enqueue inbound frames
// from an interrupt context into its own internal RX ring before
// GetMessage is ever called.
type MAC interface {
	// SetMAC writes a hardware address to the device. May be a no-op
	// during bring-up or on devices with a fixed burned-in address.
	SetMAC(mac micronet.MAC) error
	// HasMessage reports whether a frame is available via GetMessage,
	// without consuming it.
	HasMessage() bool
	// GetMessage copies at most one queued inbound frame into dst,
	// returning the number of bytes written. ok is false if no frame
	// was available.
	GetMessage(dst []byte) (n int, ok bool)
	// SendMessage transmits one frame. ok is false if the driver
	// rejected the frame (e.g. its own TX ring was full).
	SendMessage(frame []byte) (ok bool)
}

// Clock is the monotonic millisecond timer a controller uses for ARP
// cooldowns, decay, and ICMP RTT measurement. Now is free-running and
// permitted to wrap; IsPassed must use wrap-aware comparison (spec §6).
type Clock interface {
	Now() uint32
	IsPassed(deadline uint32) bool
}

// FuncClock adapts a plain now() function into a Clock, computing
// IsPassed from it. Useful for tests and for simple callers that only
// have a monotonic-ms source and no separate "is passed" primitive.
type FuncClock func() uint32

func (f FuncClock) Now() uint32 { return f() }

func (f FuncClock) IsPassed(deadline uint32) bool {
	return micronet.IsPast(f(), deadline)
}
