package ethernet

import (
	"encoding/binary"
	"errors"

	"github.com/embednet/micronet"
)

var errShort = errors.New("ethernet: buffer shorter than header")

// NewFrame returns a Frame with data set to buf. An error is returned if
// the buffer is smaller than the fixed 14-byte header.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{}, errShort
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of an Ethernet II frame (no VLAN tag
// support: out of scope for this engine) and provides accessors for its
// fixed 14-byte header and payload.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice the frame was constructed with.
func (efrm Frame) RawData() []byte { return efrm.buf }

// HeaderLength is always 14: this engine does not parse or emit VLAN tags.
func (efrm Frame) HeaderLength() int { return sizeHeader }

// Payload returns the frame's data past the 14-byte header.
func (efrm Frame) Payload() []byte { return efrm.buf[sizeHeader:] }

// DestinationHardwareAddr returns the destination MAC address field.
func (efrm Frame) DestinationHardwareAddr() *[6]byte {
	return (*[6]byte)(efrm.buf[0:6])
}

// IsBroadcast reports whether the destination is ff:ff:ff:ff:ff:ff.
func (efrm Frame) IsBroadcast() bool {
	d := efrm.buf[0:6]
	return d[0] == 0xff && d[1] == 0xff && d[2] == 0xff && d[3] == 0xff && d[4] == 0xff && d[5] == 0xff
}

// SourceHardwareAddr returns the source MAC address field.
func (efrm Frame) SourceHardwareAddr() *[6]byte {
	return (*[6]byte)(efrm.buf[6:12])
}

// EtherType returns the EtherType field.
func (efrm Frame) EtherType() Type {
	return Type(binary.BigEndian.Uint16(efrm.buf[12:14]))
}

// SetEtherType sets the EtherType field.
func (efrm Frame) SetEtherType(t Type) {
	binary.BigEndian.PutUint16(efrm.buf[12:14], uint16(t))
}

// ClearHeader zeros the 14-byte header.
func (efrm Frame) ClearHeader() {
	for i := range efrm.buf[:sizeHeader] {
		efrm.buf[i] = 0
	}
}

// ValidateSize checks the frame's declared EtherType-or-size field
// against the buffer length, recording a non-nil error on inconsistency.
func (efrm Frame) ValidateSize(v *micronet.Validator) {
	et := efrm.EtherType()
	if uint16(et) <= 1500 && len(efrm.buf) < int(et) {
		v.AddError(errShort)
	}
}
