// Package stack assembles controllers and ports into one addressable
// object per the design note eliminating any hidden global-state
// singleton: a Stack owns its Controller and Port vectors explicitly,
// indexed by small integer IDs, and is passed around by the caller
// rather than reached through package-level state.
package stack

import (
	"github.com/embednet/micronet"
	"github.com/embednet/micronet/arp"
	"github.com/embednet/micronet/controller"
	"github.com/embednet/micronet/driver"
	"github.com/embednet/micronet/port"
)

// PortConfig is one port's static descriptor (spec §6).
type PortConfig struct {
	ControllerID  int
	Protocol      micronet.IPProto
	DefaultPeerIP micronet.IPv4
	LocalPort     uint16
	RemotePort    uint16
	RxBytesCap    uint32
	RxDescCap     uint32 // 0 selects stream mode on RX
	TxBytesCap    uint32
	TxDescCap     uint32 // 0 selects stream mode on TX
}

// ControllerConfig is one controller's static descriptor (spec §6).
type ControllerConfig struct {
	MAC         driver.MAC
	Clock       driver.Clock
	DefaultMAC  micronet.MAC
	DefaultIP   micronet.IPv4
	DefaultSubnet micronet.IPv4
	MACDriverID int
	ArpCapacity int
}

// Config is the stack-level static descriptor assembling every
// controller and port descriptor (spec §6).
type Config struct {
	Controllers []ControllerConfig
	Ports       []PortConfig
	NotifyFunc  func(controllerID int, code micronet.NotifyCode)
}

// Stack owns the controller and port vectors built from a Config. It
// is constructed once from a caller-supplied arena and never
// reallocates afterward (spec §3, §5 memory model).
type Stack struct {
	controllers []*controller.Controller
	ports       []*port.Port
}

const descriptorSize = 8
const scratchSize = 1514 // largest Ethernet frame this engine assembles or parses

// New builds a Stack from cfg, sub-slicing arena for every ring and
// scratch buffer the configuration calls for (ARP tables are the one
// exception, allocated separately since their rows aren't a flat byte
// layout). arena must be large enough for the sum of all requested
// ring/scratch capacities; New never allocates from it beyond this
// single pass.
func New(cfg Config, arena []byte) (*Stack, error) {
	s := &Stack{}
	alloc := &arenaCursor{buf: arena}

	for i, cc := range cfg.Controllers {
		scratch, err := alloc.take(scratchSize)
		if err != nil {
			return nil, err
		}
		arpBacking := make([]arp.Entry, cc.ArpCapacity) // fixed-size table rows, not pooled from the byte arena
		id := i
		var notify func(micronet.NotifyCode)
		if cfg.NotifyFunc != nil {
			notify = func(code micronet.NotifyCode) { cfg.NotifyFunc(id, code) }
		}
		ctrl := controller.New(controller.Config{
			MAC:         cc.DefaultMAC,
			IP:          cc.DefaultIP,
			Subnet:      cc.DefaultSubnet,
			MACDriverID: cc.MACDriverID,
		}, cc.MAC, cc.Clock, notify, arpBacking, scratch)
		s.controllers = append(s.controllers, ctrl)
	}

	for _, pc := range cfg.Ports {
		if pc.ControllerID < 0 || pc.ControllerID >= len(s.controllers) {
			return nil, micronet.ErrInvalidArgument
		}
		rxBytes, err := alloc.take(int(pc.RxBytesCap))
		if err != nil {
			return nil, err
		}
		txBytes, err := alloc.take(int(pc.TxBytesCap))
		if err != nil {
			return nil, err
		}
		var rxDescs, txDescs []byte
		if pc.RxDescCap > 0 {
			if rxDescs, err = alloc.take(int(pc.RxDescCap) * descriptorSize); err != nil {
				return nil, err
			}
		}
		if pc.TxDescCap > 0 {
			if txDescs, err = alloc.take(int(pc.TxDescCap) * descriptorSize); err != nil {
				return nil, err
			}
		}
		p, err := port.New(port.Config{
			ControllerID:  pc.ControllerID,
			Protocol:      pc.Protocol,
			DefaultPeerIP: pc.DefaultPeerIP,
			LocalPort:     pc.LocalPort,
			RemotePort:    pc.RemotePort,
		}, rxBytes, txBytes, pc.RxBytesCap, pc.TxBytesCap, rxDescs, txDescs, pc.RxDescCap, pc.TxDescCap)
		if err != nil {
			return nil, err
		}
		s.ports = append(s.ports, p)
		s.controllers[pc.ControllerID].AttachPort(p)
	}

	return s, nil
}

// Controller returns the controller at id, or nil if out of range.
func (s *Stack) Controller(id int) *controller.Controller {
	if id < 0 || id >= len(s.controllers) {
		return nil
	}
	return s.controllers[id]
}

// Port returns the port at id, or nil if out of range.
func (s *Stack) Port(id int) *port.Port {
	if id < 0 || id >= len(s.ports) {
		return nil
	}
	return s.ports[id]
}

// ControllerCount and PortCount report the vector sizes fixed at New.
func (s *Stack) ControllerCount() int { return len(s.controllers) }
func (s *Stack) PortCount() int       { return len(s.ports) }

// RunCycle runs every controller's main cycle once, in controller-id order.
func (s *Stack) RunCycle() {
	for _, c := range s.controllers {
		c.RunCycle()
	}
}

// arenaCursor sub-slices a backing byte slice once per request, never
// allocating; running out of room is reported rather than growing.
type arenaCursor struct {
	buf []byte
	off int
}

func (a *arenaCursor) take(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if a.off+n > len(a.buf) {
		return nil, micronet.ErrInvalidArgument
	}
	out := a.buf[a.off : a.off+n]
	a.off += n
	return out, nil
}
