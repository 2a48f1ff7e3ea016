// Package controller implements one network identity: ARP-backed
// address resolution, Ethernet ingress dispatch, ICMP echo handling,
// and the UDP egress pipeline, all driven by a single cooperative main
// cycle (spec §4).
package controller

import (
	"github.com/embednet/micronet"
	"github.com/embednet/micronet/arp"
	"github.com/embednet/micronet/driver"
	"github.com/embednet/micronet/ethernet"
	"github.com/embednet/micronet/ipv4"
	"github.com/embednet/micronet/ipv4/icmpv4"
	"github.com/embednet/micronet/port"
	"github.com/embednet/micronet/udp"
)

// Config is a controller's static, init-time identity (spec §3, §6).
type Config struct {
	MAC         micronet.MAC
	IP          micronet.IPv4
	Subnet      micronet.IPv4
	MACDriverID int
}

// icmpState replaces the original "one-shot reply-received latch" with
// a clear "last RTT or none" per the design note: hasRTT is cleared on
// every new echo send and set at most once per send by the first
// matching reply, so duplicate replies are idempotent instead of
// re-triggering anything.
type icmpState struct {
	lastSendTime uint32
	lastRTT      uint32
	hasRTT       bool
}

// Controller owns one ARP table, one MAC driver, and the ports bound
// to it. It is constructed once and never destroyed (spec §3
// lifecycle); the only mutation after construction is through its
// runtime mutators and the main cycle.
type Controller struct {
	cfg     Config
	mac     driver.MAC
	clock   driver.Clock
	notify  func(micronet.NotifyCode)
	arpTbl  *arp.Table
	icmp    icmpState
	ports   []*port.Port
	scratch []byte // one frame's worth of arena-backed assembly space
}

// New constructs a Controller. scratch must be at least 1514 bytes
// (maximum Ethernet frame) and arpBacking sizes the ARP table's
// capacity; both are supplied by the caller.
func New(cfg Config, mac driver.MAC, clock driver.Clock, notify func(micronet.NotifyCode), arpBacking []arp.Entry, scratch []byte) *Controller {
	if notify == nil {
		notify = func(micronet.NotifyCode) {}
	}
	return &Controller{
		cfg:     cfg,
		mac:     mac,
		clock:   clock,
		notify:  notify,
		arpTbl:  arp.NewTable(arpBacking),
		scratch: scratch,
	}
}

// AttachPort binds p to this controller for ingress fan-out and
// egress sweeping. Ports are serviced in attachment order (spec §4.8's
// "port-id order").
func (c *Controller) AttachPort(p *port.Port) { c.ports = append(c.ports, p) }

// --- Runtime mutators (spec §6) ---

func (c *Controller) GetMAC() micronet.MAC    { return c.cfg.MAC }
func (c *Controller) GetIP() micronet.IPv4    { return c.cfg.IP }
func (c *Controller) GetSubnet() micronet.IPv4 { return c.cfg.Subnet }

func (c *Controller) SetMAC(mac micronet.MAC) error {
	if err := c.mac.SetMAC(mac); err != nil {
		return err
	}
	c.cfg.MAC = mac
	return nil
}

func (c *Controller) SetIP(ip micronet.IPv4) { c.cfg.IP = ip }

func (c *Controller) SetSubnet(mask micronet.IPv4) { c.cfg.Subnet = mask }

// InsertArpEntry explicitly pins an (ip, mac) mapping; such entries are
// not subject to decay (spec §4.2).
func (c *Controller) InsertArpEntry(ip micronet.IPv4, mac micronet.MAC) error {
	return c.arpTbl.Store(ip, mac, false, c.clock.Now())
}

// ForceArpRequest emits a request for ip, bypassing the port cooldown
// that normally gates retries. If ip has no entry and the ARP table is
// full, it returns [micronet.ErrArpTableFull] and emits nothing.
func (c *Controller) ForceArpRequest(ip micronet.IPv4) error {
	if err := c.arpTbl.Request(ip, c.clock.Now()); err != nil {
		c.notify(micronet.NotifyArpTableFull)
		return err
	}
	c.sendArpRequest(ip)
	return nil
}

// IsArpValid reports whether ip currently has a resolved MAC.
func (c *Controller) IsArpValid(ip micronet.IPv4) bool { return c.arpTbl.IsValid(ip) }

// SendEcho emits an ICMP echo request to destIP, resolving its MAC
// synchronously. It fails with [micronet.ErrUnreachable] if destIP is
// not yet resolved, having just issued an ARP request for it; the
// caller is expected to retry SendEcho once resolution completes.
func (c *Controller) SendEcho(destIP micronet.IPv4) error {
	dstMAC, err := c.resolveImmediate(destIP)
	if err != nil {
		return err
	}
	now := c.clock.Now()
	c.icmp.lastSendTime = now
	c.icmp.hasRTT = false

	const frameLen = sizeEthernet + sizeIPv4 + sizeICMP + icmpEchoPayloadLen
	buf := c.scratch[:frameLen]
	eth, _ := ethernet.NewFrame(buf)
	eth.ClearHeader()
	*eth.DestinationHardwareAddr() = dstMAC
	*eth.SourceHardwareAddr() = c.cfg.MAC
	eth.SetEtherType(ethernet.TypeIPv4)

	ifrm, _ := ipv4.NewFrame(eth.Payload())
	ifrm.ClearHeader()
	writeIPv4Header(ifrm, c.cfg.IP, destIP, micronet.IPProtoICMP, uint16(sizeICMP+icmpEchoPayloadLen))

	icmpFrm, _ := icmpv4.NewFrame(ifrm.Payload())
	echo := icmpv4.FrameEcho{Frame: icmpFrm}
	echo.SetType(icmpv4.TypeEcho)
	echo.SetCode(0)
	echo.SetIdentifier(1)
	echo.SetSequenceNumber(1)
	for i := range echo.Data() {
		echo.Data()[i] = 0x05
	}
	echo.SetCRC(0)
	var crc micronet.CRC791
	echo.CRCWrite(&crc)
	echo.SetCRC(crc.Sum16())

	if !c.mac.SendMessage(buf) {
		c.notify(micronet.NotifyDriverRejected)
		return micronet.ErrDriverRejected
	}
	return nil
}

// CheckPingReply reports whether an echo reply has arrived since the
// last SendEcho, and its round-trip time if so.
func (c *Controller) CheckPingReply() (rtt uint32, ok bool) {
	return c.icmp.lastRTT, c.icmp.hasRTT
}

// --- Main cycle (spec §4.8) ---

// RunCycle performs, in order, the receive phase (drain at most one
// inbound frame), the transmit phase (one emission per attached port),
// and the decay phase (subject to its own cooldown). It is re-entrant
// safe only between invocations, never concurrently with itself.
func (c *Controller) RunCycle() {
	c.receivePhase()
	c.transmitPhase()
	c.decayPhase()
}

func (c *Controller) receivePhase() {
	if !c.mac.HasMessage() {
		return
	}
	n, ok := c.mac.GetMessage(c.scratch)
	if !ok {
		return
	}
	c.handleFrame(c.scratch[:n])
}

func (c *Controller) transmitPhase() {
	for _, p := range c.ports {
		c.transmitPort(p)
	}
}

func (c *Controller) decayPhase() {
	c.arpTbl.DecaySweep(c.clock.Now(), arp.DecaySweepPeriodMs, arp.DecayAgeMs)
}

// --- Ingress (spec §4.4, §4.5) ---

func (c *Controller) handleFrame(buf []byte) {
	var v micronet.Validator
	eth, err := ethernet.NewFrame(buf)
	if err != nil {
		return
	}
	eth.ValidateSize(&v)
	if v.HasError() {
		c.notify(micronet.NotifyIngressDrop)
		return
	}
	switch eth.EtherType() {
	case ethernet.TypeARP:
		c.handleARP(eth)
	case ethernet.TypeIPv4:
		c.handleIPv4(eth)
	}
}

func (c *Controller) handleARP(eth ethernet.Frame) {
	afrm, err := arp.NewFrame(eth.Payload())
	if err != nil {
		return
	}
	var v micronet.Validator
	afrm.ValidateSize(&v)
	if v.HasError() {
		return
	}
	senderMAC, senderIP := afrm.Sender4()
	now := c.clock.Now()

	switch afrm.Operation() {
	case arp.OpRequest:
		// Passive learning from the request's sender, mirroring the
		// decaying treatment of any other overheard IPv4-layer traffic.
		c.arpTbl.Store(*senderIP, *senderMAC, true, now)
		_, targetIP := afrm.Target4()
		if *targetIP == c.cfg.IP {
			c.sendArpReply(afrm, eth)
		}
	case arp.OpReply:
		// A reply is evidence of our own request having been answered:
		// not subject to decay (spec §4.2).
		c.arpTbl.Store(*senderIP, *senderMAC, false, now)
	}
}

func (c *Controller) handleIPv4(eth ethernet.Frame) {
	ifrm, err := ipv4.NewFrame(eth.Payload())
	if err != nil {
		return
	}
	var v micronet.Validator
	ifrm.ValidateSize(&v)
	if v.HasError() {
		c.notify(micronet.NotifyIngressDrop)
		return
	}
	srcIP := micronet.IPv4(*ifrm.SourceAddr())
	dstIP := micronet.IPv4(*ifrm.DestinationAddr())
	if !srcIP.SameSubnet(c.cfg.IP, c.cfg.Subnet) {
		return
	}
	broadcast := c.cfg.IP.Broadcast(c.cfg.Subnet)
	if dstIP != c.cfg.IP && dstIP != broadcast {
		return
	}
	c.arpTbl.Store(srcIP, micronet.MAC(*eth.SourceHardwareAddr()), true, c.clock.Now())

	switch ifrm.Protocol() {
	case micronet.IPProtoICMP:
		c.handleICMP(eth, ifrm, srcIP)
	case micronet.IPProtoUDP:
		c.handleUDP(ifrm, srcIP)
	}
}

func (c *Controller) handleICMP(eth ethernet.Frame, ifrm ipv4.Frame, srcIP micronet.IPv4) {
	icmpFrm, err := icmpv4.NewFrame(ifrm.Payload())
	if err != nil {
		return
	}
	switch icmpFrm.Type() {
	case icmpv4.TypeEcho:
		c.replyToEcho(eth, ifrm, icmpFrm, srcIP)
	case icmpv4.TypeEchoReply:
		if !c.icmp.hasRTT {
			c.icmp.lastRTT = micronet.DiffUint32(c.icmp.lastSendTime, c.clock.Now())
			c.icmp.hasRTT = true
		}
	}
}

func (c *Controller) replyToEcho(eth ethernet.Frame, ifrm ipv4.Frame, icmpFrm icmpv4.Frame, srcIP micronet.IPv4) {
	dstHW, srcHW := eth.DestinationHardwareAddr(), eth.SourceHardwareAddr()
	*dstHW, *srcHW = *srcHW, *dstHW
	dstIPf, srcIPf := ifrm.DestinationAddr(), ifrm.SourceAddr()
	*dstIPf, *srcIPf = *srcIPf, *dstIPf

	icmpFrm.SetType(icmpv4.TypeEchoReply)
	icmpFrm.SetCRC(0)
	var crc micronet.CRC791
	icmpFrm.CRCWrite(&crc)
	icmpFrm.SetCRC(crc.Sum16())

	totalLen := int(ifrm.TotalLength())
	if !c.mac.SendMessage(eth.RawData()[:sizeEthernet+totalLen]) {
		c.notify(micronet.NotifyDriverRejected)
	}
}

func (c *Controller) handleUDP(ifrm ipv4.Frame, srcIP micronet.IPv4) {
	ufrm, err := udp.NewFrame(ifrm.Payload())
	if err != nil {
		return
	}
	var v micronet.Validator
	ufrm.ValidateSize(&v)
	if v.HasError() {
		c.notify(micronet.NotifyIngressDrop)
		return
	}
	dstPort := ufrm.DestinationPort()
	payload := ufrm.Payload()
	for _, p := range c.ports {
		if p.Protocol() == micronet.IPProtoUDP && p.LocalPort() == dstPort {
			if err := p.DeliverInbound(payload, srcIP); err != nil {
				c.notify(micronet.NotifyIngressDrop)
			}
		}
	}
}

// --- Egress (spec §4.6) ---

func (c *Controller) transmitPort(p *port.Port) {
	size, destIP, ok := p.PeekEgress()
	if !ok {
		return
	}
	if !destIP.SameSubnet(c.cfg.IP, c.cfg.Subnet) {
		p.ConsumeEgress(size)
		c.notify(micronet.NotifyEgressUnreachable)
		return
	}

	broadcast := c.cfg.IP.Broadcast(c.cfg.Subnet)
	var dstMAC micronet.MAC
	if destIP == broadcast {
		dstMAC = micronet.BroadcastMAC
	} else {
		e, valid := c.arpTbl.Lookup(destIP)
		if valid && e.Valid {
			dstMAC = e.MAC
		} else {
			c.gateOnArp(p, destIP, size)
			return
		}
	}

	frameLen := sizeEthernet + sizeIPv4 + sizeUDP + int(size)
	buf := c.scratch[:frameLen]
	eth, _ := ethernet.NewFrame(buf)
	eth.ClearHeader()
	*eth.DestinationHardwareAddr() = dstMAC
	*eth.SourceHardwareAddr() = c.cfg.MAC
	eth.SetEtherType(ethernet.TypeIPv4)

	ifrm, _ := ipv4.NewFrame(eth.Payload())
	ifrm.ClearHeader()
	writeIPv4Header(ifrm, c.cfg.IP, destIP, micronet.IPProtoUDP, uint16(sizeUDP+int(size)))

	ufrm, _ := udp.NewFrame(ifrm.Payload())
	ufrm.ClearHeader()
	ufrm.SetSourcePort(p.LocalPort())
	ufrm.SetDestinationPort(p.RemotePort())
	ufrm.SetLength(uint16(sizeUDP + int(size)))
	ufrm.SetCRC(0) // checksum zeroed, tolerated by driver/peer (spec §6 wire formats)

	if err := p.ReadEgressPayload(ufrm.Payload(), size); err != nil {
		return
	}

	if !c.mac.SendMessage(buf) {
		c.notify(micronet.NotifyDriverRejected)
		return
	}
	p.ConsumeEgress(size)
	p.ResetArpRetry()
}

// gateOnArp implements the egress pipeline's ARP-gating step: request,
// retry-count, cooldown, and eventual drop after the retry budget is
// exhausted (spec §4.6 step 3).
func (c *Controller) gateOnArp(p *port.Port, destIP micronet.IPv4, size uint32) {
	now := c.clock.Now()
	if !c.clock.IsPassed(p.ArpNextRetryAt()) {
		return
	}
	c.arpTbl.Request(destIP, now)
	c.sendArpRequest(destIP)
	p.IncArpRetry()
	p.SetArpNextRetryAt(now + arp.RequestCooldownMs)
	if p.ArpRetryCounter() >= arp.RequestRetryLimit {
		p.ResetArpRetry()
		p.ConsumeEgress(size)
		c.notify(micronet.NotifyEgressUnreachable)
	}
}

// resolveImmediate looks up destIP's MAC for a synchronous send (used
// by SendEcho, which has no queue to hold a pending request against).
// If unresolved it issues a request and reports Unreachable so the
// caller can retry once resolution completes.
func (c *Controller) resolveImmediate(destIP micronet.IPv4) (micronet.MAC, error) {
	broadcast := c.cfg.IP.Broadcast(c.cfg.Subnet)
	if destIP == broadcast {
		return micronet.BroadcastMAC, nil
	}
	if e, ok := c.arpTbl.Lookup(destIP); ok && e.Valid {
		return e.MAC, nil
	}
	c.arpTbl.Request(destIP, c.clock.Now())
	c.sendArpRequest(destIP)
	return micronet.MAC{}, micronet.ErrUnreachable
}

func (c *Controller) sendArpRequest(destIP micronet.IPv4) {
	const frameLen = sizeEthernet + arpSizeV4
	buf := c.scratch[:frameLen]
	eth, _ := ethernet.NewFrame(buf)
	eth.ClearHeader()
	*eth.DestinationHardwareAddr() = micronet.BroadcastMAC
	*eth.SourceHardwareAddr() = c.cfg.MAC
	eth.SetEtherType(ethernet.TypeARP)

	afrm, _ := arp.NewFrame(eth.Payload())
	afrm.ClearHeader()
	afrm.SetHardware(1, 6)
	afrm.SetProtocol(ethernet.TypeIPv4, 4)
	afrm.SetOperation(arp.OpRequest)
	senderMAC, senderIP := afrm.Sender4()
	*senderMAC = c.cfg.MAC
	*senderIP = c.cfg.IP
	targetMAC, targetIP := afrm.Target4()
	*targetMAC = micronet.MAC{}
	*targetIP = destIP

	if !c.mac.SendMessage(buf) {
		c.notify(micronet.NotifyDriverRejected)
	}
}

func (c *Controller) sendArpReply(req arp.Frame, eth ethernet.Frame) {
	req.SwapSenderTarget()
	senderMAC, senderIP := req.Sender4()
	*senderMAC = c.cfg.MAC
	*senderIP = c.cfg.IP
	req.SetOperation(arp.OpReply)

	targetMAC, _ := req.Target4()
	dstHW, srcHW := eth.DestinationHardwareAddr(), eth.SourceHardwareAddr()
	*dstHW = *targetMAC
	*srcHW = c.cfg.MAC

	if !c.mac.SendMessage(eth.RawData()[:sizeEthernet+arpSizeV4]) {
		c.notify(micronet.NotifyDriverRejected)
	}
}

// writeIPv4Header fills in the fixed 20-byte IPv4 header this engine
// always emits: IHL=5, no options, DF set (spec §9's redesign note),
// TTL=128, checksum left at zero (tolerated by driver/peer). upperLen
// is the upper-layer header+payload length (ICMP or UDP inclusive).
func writeIPv4Header(ifrm ipv4.Frame, src, dst micronet.IPv4, proto micronet.IPProto, upperLen uint16) {
	ifrm.SetVersionAndIHL(4, 5)
	ifrm.SetToS(0)
	ifrm.SetTotalLength(sizeIPv4 + upperLen)
	ifrm.SetID(0)
	ifrm.SetFlags(0x4000) // Don't Fragment, offset 0
	ifrm.SetTTL(128)
	ifrm.SetProtocol(proto)
	ifrm.SetCRC(0)
	*ifrm.SourceAddr() = src
	*ifrm.DestinationAddr() = dst
}

const (
	sizeEthernet       = 14
	sizeIPv4           = 20
	sizeICMP           = 8
	sizeUDP            = 8
	arpSizeV4          = 28
	icmpEchoPayloadLen = 14
)
