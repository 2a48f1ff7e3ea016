// Package port implements the application-visible endpoint multiplexed
// onto a controller by protocol and local port number (spec §4.7). A
// Port owns a receive and transmit ring pair; whether a direction
// preserves message boundaries ("datagram mode") or not ("stream
// mode") is frozen at construction by the presence of a descriptor
// ring, following the design note's "polymorphic port over a frozen
// capability" framing — modeled here as two nilable ring fields rather
// than a type switch, since the only difference in behavior is whether
// the descriptor ring is consulted.
package port

import (
	"github.com/embednet/micronet"
	"github.com/embednet/micronet/ring"
)

// Descriptor is one entry of a datagram-mode descriptor ring: the size
// of the message in the companion byte ring, and the IP it came from
// (RX) or should be sent to, zero meaning "use the port default" (TX).
type Descriptor struct {
	Size uint32
	IP   micronet.IPv4
}

const descriptorSize = 8 // uint32 + 4-byte IPv4, arena-packed

// maxEgressPayload caps one transmitted message's payload so the
// resulting Ethernet frame never exceeds the 1500-byte MTU: 1500 -
// 20(IPv4) - 8(UDP) = 1472 (spec §4.6).
const maxEgressPayload = 1472

// Config is a port's static, init-time descriptor (spec §3, §6).
type Config struct {
	ControllerID  int
	Protocol      micronet.IPProto
	DefaultPeerIP micronet.IPv4
	LocalPort     uint16
	RemotePort    uint16
}

// Port is bound to one controller and multiplexes application traffic
// by protocol and local port number.
type Port struct {
	cfg Config

	rxBytes *ring.Buffer
	rxDescs *ring.Buffer // nil selects stream mode on RX
	txBytes *ring.Buffer
	txDescs *ring.Buffer // nil selects stream mode on TX

	peerIP     micronet.IPv4
	localPort  uint16
	remotePort uint16

	arpRetryCounter int
	arpNextRetryAt  uint32
}

// New constructs a Port. rxDescCap/txDescCap of zero selects stream
// mode for that direction (the matching backing is then unused),
// matching the zero
// descriptor-capacity convention of spec §6's port configuration.
func New(cfg Config, rxBytesBacking, txBytesBacking []byte, rxBytesCap, txBytesCap uint32, rxDescBacking, txDescBacking []byte, rxDescCap, txDescCap uint32) (*Port, error) {
	rxBytes, err := ring.New(rxBytesBacking, 1, rxBytesCap)
	if err != nil {
		return nil, err
	}
	txBytes, err := ring.New(txBytesBacking, 1, txBytesCap)
	if err != nil {
		return nil, err
	}
	p := &Port{
		cfg:        cfg,
		rxBytes:    rxBytes,
		txBytes:    txBytes,
		peerIP:     cfg.DefaultPeerIP,
		localPort:  cfg.LocalPort,
		remotePort: cfg.RemotePort,
	}
	if rxDescCap > 0 {
		p.rxDescs, err = ring.New(rxDescBacking, descriptorSize, rxDescCap)
		if err != nil {
			return nil, err
		}
	}
	if txDescCap > 0 {
		p.txDescs, err = ring.New(txDescBacking, descriptorSize, txDescCap)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Port) ControllerID() int               { return p.cfg.ControllerID }
func (p *Port) Protocol() micronet.IPProto       { return p.cfg.Protocol }
func (p *Port) IsRxStreamMode() bool             { return p.rxDescs == nil }
func (p *Port) IsTxStreamMode() bool             { return p.txDescs == nil }
func (p *Port) PeerIP() micronet.IPv4            { return p.peerIP }
func (p *Port) SetPeerIP(ip micronet.IPv4)       { p.peerIP = ip }
func (p *Port) LocalPort() uint16                { return p.localPort }
func (p *Port) SetLocalPort(port uint16)         { p.localPort = port }
func (p *Port) RemotePort() uint16               { return p.remotePort }
func (p *Port) SetRemotePort(port uint16)        { p.remotePort = port }

func encodeDescriptor(buf []byte, d Descriptor) {
	buf[0] = byte(d.Size >> 24)
	buf[1] = byte(d.Size >> 16)
	buf[2] = byte(d.Size >> 8)
	buf[3] = byte(d.Size)
	copy(buf[4:8], d.IP[:])
}

func decodeDescriptor(buf []byte) Descriptor {
	var d Descriptor
	d.Size = uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	copy(d.IP[:], buf[4:8])
	return d
}

// deposit is the shared admission path for inbound and application
// writes in datagram mode: both rings must have room or neither is
// touched (spec §3 atomic-insert invariant).
func (p *Port) deposit(bytes *ring.Buffer, descs *ring.Buffer, data []byte, destOrSrcIP micronet.IPv4) error {
	if descs == nil {
		return bytes.Write(data, uint32(len(data)))
	}
	if bytes.Free() < uint32(len(data)) || descs.Free() < 1 {
		return micronet.ErrQueueFull
	}
	if err := bytes.Write(data, uint32(len(data))); err != nil {
		return err
	}
	var db [descriptorSize]byte
	encodeDescriptor(db[:], Descriptor{Size: uint32(len(data)), IP: destOrSrcIP})
	return descs.Write(db[:], 1)
}

// DeliverInbound admits a received UDP payload from srcIP. Used by the
// controller's ingress path (spec §4.5); in stream mode srcIP is
// discarded.
func (p *Port) DeliverInbound(payload []byte, srcIP micronet.IPv4) error {
	return p.deposit(p.rxBytes, p.rxDescs, payload, srcIP)
}

// SendBuffer enqueues an explicit-length application message, optionally
// overriding the destination IP for this message only (datagram mode;
// ignored in stream mode). Admission is all-or-nothing. In datagram mode
// a message longer than maxEgressPayload is refused before it ever
// touches the ring, matching NetworkPortSendBuff's
// buffSize > ETHERNET_MAX_DATA_SIZE rejection (spec §8).
func (p *Port) SendBuffer(data []byte, destIP micronet.IPv4) error {
	if p.txDescs != nil && len(data) > maxEgressPayload {
		return micronet.ErrInvalidArgument
	}
	return p.deposit(p.txBytes, p.txDescs, data, destIP)
}

// SendByte enqueues a single application byte.
func (p *Port) SendByte(b byte) error {
	return p.SendBuffer([]byte{b}, micronet.IPv4{})
}

// SendString enqueues s without a trailing terminator; the message
// length is len(s), matching the "null-terminated on the wire, length
// excludes terminator" convention of spec §4.7 without actually storing
// a terminator byte in the ring.
func (p *Port) SendString(s string) error {
	return p.SendBuffer([]byte(s), micronet.IPv4{})
}

// IsEmpty reports whether the receive side has no pending data.
func (p *Port) IsEmpty() bool { return p.rxBytes.Count() == 0 }

// ReadByte consumes and returns one byte. Valid only in RX stream mode.
func (p *Port) ReadByte() (byte, error) {
	if p.rxDescs != nil {
		return 0, micronet.ErrInvalidForMode
	}
	var b [1]byte
	if err := p.rxBytes.Read(b[:], 1, true); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBuffer copies the next message into dst, returning the number of
// bytes written and the source IP (zero in stream mode). In datagram
// mode a dst shorter than the head message fails without consuming
// anything ([micronet.ErrInvalidForMode]); in stream mode up to
// len(dst) bytes are consumed.
func (p *Port) ReadBuffer(dst []byte) (n int, srcIP micronet.IPv4, err error) {
	if p.rxDescs == nil {
		n = int(p.rxBytes.Count())
		if n > len(dst) {
			n = len(dst)
		}
		if n == 0 {
			return 0, micronet.IPv4{}, nil
		}
		if err := p.rxBytes.Read(dst[:n], uint32(n), true); err != nil {
			return 0, micronet.IPv4{}, err
		}
		return n, micronet.IPv4{}, nil
	}
	var db [descriptorSize]byte
	if err := p.rxDescs.Read(db[:], 1, false); err != nil {
		return 0, micronet.IPv4{}, err
	}
	d := decodeDescriptor(db[:])
	if uint32(len(dst)) < d.Size {
		return 0, micronet.IPv4{}, micronet.ErrInvalidForMode
	}
	if err := p.rxBytes.Read(dst[:d.Size], d.Size, true); err != nil {
		return 0, micronet.IPv4{}, err
	}
	p.rxDescs.Consume(1)
	return int(d.Size), d.IP, nil
}

// PeekEgress reads, without consuming, the next message to transmit:
// its size and effective destination (falling back to peerIP when a
// datagram descriptor's IP is zero, or always peerIP in stream mode,
// capped to the maximum UDP payload per spec §4.6). ok is false if
// nothing is pending.
func (p *Port) PeekEgress() (size uint32, destIP micronet.IPv4, ok bool) {
	if p.txDescs == nil {
		n := p.txBytes.Count()
		if n == 0 {
			return 0, micronet.IPv4{}, false
		}
		if n > maxEgressPayload {
			n = maxEgressPayload
		}
		return n, p.peerIP, true
	}
	var db [descriptorSize]byte
	if err := p.txDescs.Read(db[:], 1, false); err != nil {
		return 0, micronet.IPv4{}, false
	}
	d := decodeDescriptor(db[:])
	dest := d.IP
	if dest.IsZero() {
		dest = p.peerIP
	}
	return d.Size, dest, true
}

// ReadEgressPayload copies the pending egress message's payload
// (without consuming it) into dst, which must be at least size bytes
// (the value PeekEgress returned).
func (p *Port) ReadEgressPayload(dst []byte, size uint32) error {
	return p.txBytes.Read(dst[:size], size, false)
}

// ConsumeEgress drops the pending egress message's bytes and (in
// datagram mode) its descriptor, whether the message was sent
// successfully or dropped (ARP exhaustion, subnet mismatch).
func (p *Port) ConsumeEgress(size uint32) error {
	if err := p.txBytes.Consume(size); err != nil {
		return err
	}
	if p.txDescs != nil {
		return p.txDescs.Consume(1)
	}
	return nil
}

// ArpRetryCounter and ArpNextRetryAt back the egress pipeline's ARP
// gating bookkeeping (spec §4.6).
func (p *Port) ArpRetryCounter() int       { return p.arpRetryCounter }
func (p *Port) IncArpRetry()               { p.arpRetryCounter++ }
func (p *Port) ResetArpRetry()             { p.arpRetryCounter = 0 }
func (p *Port) ArpNextRetryAt() uint32     { return p.arpNextRetryAt }
func (p *Port) SetArpNextRetryAt(t uint32) { p.arpNextRetryAt = t }
