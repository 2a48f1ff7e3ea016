// Package arp implements Ethernet/IPv4 ARP (RFC 826): wire frame
// access plus the resolution cache (decay, throttled retry, learning)
// a controller uses to back egress address resolution.
package arp

import (
	"encoding/binary"
	"fmt"

	"github.com/embednet/micronet"
	"github.com/embednet/micronet/ethernet"
)

// NewFrame returns a Frame with data set to buf. An error is returned
// if buf is smaller than the fixed 28-byte Ethernet/IPv4 ARP packet.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeaderv4 {
		return Frame{}, errShortARP
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of an Ethernet/IPv4 ARP packet. IPv6
// and non-Ethernet hardware types are out of scope.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice the frame was constructed with.
func (afrm Frame) RawData() []byte { return afrm.buf }

// Hardware returns the hardware type and address length fields. This
// engine only emits/expects Ethernet (type 1, length 6).
func (afrm Frame) Hardware() (typ uint16, length uint8) {
	return binary.BigEndian.Uint16(afrm.buf[0:2]), afrm.buf[4]
}

// SetHardware sets the hardware type and address length fields.
func (afrm Frame) SetHardware(typ uint16, length uint8) {
	binary.BigEndian.PutUint16(afrm.buf[0:2], typ)
	afrm.buf[4] = length
}

// Protocol returns the protocol type and address length fields. This
// engine only emits/expects IPv4 (length 4).
func (afrm Frame) Protocol() (typ ethernet.Type, length uint8) {
	return ethernet.Type(binary.BigEndian.Uint16(afrm.buf[2:4])), afrm.buf[5]
}

// SetProtocol sets the protocol type and address length fields.
func (afrm Frame) SetProtocol(typ ethernet.Type, length uint8) {
	binary.BigEndian.PutUint16(afrm.buf[2:4], uint16(typ))
	afrm.buf[5] = length
}

// Operation returns the ARP operation field.
func (afrm Frame) Operation() Operation { return Operation(binary.BigEndian.Uint16(afrm.buf[6:8])) }

// SetOperation sets the ARP operation field.
func (afrm Frame) SetOperation(op Operation) { binary.BigEndian.PutUint16(afrm.buf[6:8], uint16(op)) }

// Sender4 returns pointers to the sender hardware and protocol
// addresses, assuming a 28-byte Ethernet/IPv4 ARP packet.
func (afrm Frame) Sender4() (mac *[6]byte, ip *[4]byte) {
	return (*[6]byte)(afrm.buf[8:14]), (*[4]byte)(afrm.buf[14:18])
}

// Target4 returns pointers to the target hardware and protocol
// addresses, assuming a 28-byte Ethernet/IPv4 ARP packet.
func (afrm Frame) Target4() (mac *[6]byte, ip *[4]byte) {
	return (*[6]byte)(afrm.buf[18:24]), (*[4]byte)(afrm.buf[24:28])
}

// ClearHeader zeros out the fixed 8-byte header (hardware/protocol
// type and length, operation); sender/target fields are untouched.
func (afrm Frame) ClearHeader() {
	for i := range afrm.buf[:8] {
		afrm.buf[i] = 0
	}
}

// SwapSenderTarget exchanges the sender and target address fields,
// used when turning a received request into a reply.
func (afrm Frame) SwapSenderTarget() {
	sMAC, sIP := afrm.Sender4()
	tMAC, tIP := afrm.Target4()
	*sMAC, *tMAC = *tMAC, *sMAC
	*sIP, *tIP = *tIP, *sIP
}

// ValidateSize checks the frame's declared lengths against the actual
// buffer, recording a non-nil error on inconsistency.
func (afrm Frame) ValidateSize(v *micronet.Validator) {
	_, hlen := afrm.Hardware()
	_, plen := afrm.Protocol()
	minLen := 8 + 2*(int(hlen)+int(plen))
	if len(afrm.buf) < minLen {
		v.AddError(errShortARP)
	}
}

func (afrm Frame) String() string {
	sMAC, sIP := afrm.Sender4()
	tMAC, tIP := afrm.Target4()
	return fmt.Sprintf("ARP %s SENDER=%s/%s TARGET=%s/%s",
		afrm.Operation(), micronet.MAC(*sMAC), micronet.IPv4(*sIP), micronet.MAC(*tMAC), micronet.IPv4(*tIP))
}
