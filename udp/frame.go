// Package udp implements the UDP datagram header this engine's ports
// use to demultiplex and encapsulate traffic (RFC 768).
package udp

import (
	"encoding/binary"
	"errors"

	"github.com/embednet/micronet"
)

const sizeHeader = 8

// NewFrame returns a Frame with data set to buf. An error is returned if
// the buffer is smaller than the fixed 8-byte header. Callers should
// still invoke [Frame.ValidateSize] before touching the payload to
// avoid a panic on malformed input.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{buf: buf}, errors.New("udp: packet too short")
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of a UDP datagram and provides
// methods for manipulating, validating and retrieving fields and
// payload data. See RFC 768.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice the frame was constructed with.
func (ufrm Frame) RawData() []byte { return ufrm.buf }

// SourcePort identifies the sending port. Must be non-zero.
func (ufrm Frame) SourcePort() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[0:2])
}

// SetSourcePort sets the source port. See [Frame.SourcePort].
func (ufrm Frame) SetSourcePort(src uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[0:2], src)
}

// DestinationPort identifies the receiving port. Must be non-zero.
func (ufrm Frame) DestinationPort() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[2:4])
}

// SetDestinationPort sets the destination port. See [Frame.DestinationPort].
func (ufrm Frame) SetDestinationPort(dst uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[2:4], dst)
}

// Length is the length in bytes of the UDP header and payload
// together. Minimum is 8 (header only, empty payload).
func (ufrm Frame) Length() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[4:6])
}

// SetLength sets the header's length field. See [Frame.Length].
func (ufrm Frame) SetLength(length uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[4:6], length)
}

// CRC returns the checksum field.
func (ufrm Frame) CRC() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[6:8])
}

// SetCRC sets the checksum field. See [Frame.CRC].
func (ufrm Frame) SetCRC(checksum uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[6:8], checksum)
}

// Payload returns the payload section of the datagram, bounded by
// Length. Call [Frame.ValidateSize] first to avoid a panic.
func (ufrm Frame) Payload() []byte {
	l := ufrm.Length()
	return ufrm.buf[sizeHeader:l]
}

// ClearHeader zeros out the 8-byte header.
func (ufrm Frame) ClearHeader() {
	for i := range ufrm.buf[:sizeHeader] {
		ufrm.buf[i] = 0
	}
}

var (
	errBadLen = errors.New("udp: bad length field")
	errShort  = errors.New("udp: short buffer")
)

// ValidateSize checks the frame's length field against the actual
// buffer size, recording a non-nil error on inconsistency.
func (ufrm Frame) ValidateSize(v *micronet.Validator) {
	ul := ufrm.Length()
	if ul < sizeHeader {
		v.AddError(errBadLen)
	}
	if int(ul) > len(ufrm.RawData()) {
		v.AddError(errShort)
	}
}
