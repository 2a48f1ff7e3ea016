// Package icmpv4 implements the echo request/reply subset of ICMP (RFC
// 792) this engine needs: destination-unreachable and echo frames only.
// Every other ICMP message type is out of scope.
package icmpv4

import (
	"encoding/binary"
	"errors"

	"github.com/embednet/micronet"
)

// Type is the ICMP message type field.
type Type uint8

const (
	TypeEchoReply Type = 0 // echo reply
	TypeEcho      Type = 8 // echo request

	TypeDestinationUnreachable Type = 3 // destination unreachable
)

func (t Type) String() string {
	switch t {
	case TypeEchoReply:
		return "EchoReply"
	case TypeEcho:
		return "Echo"
	case TypeDestinationUnreachable:
		return "DestinationUnreachable"
	default:
		return "unknown"
	}
}

// CodeDestinationUnreachable enumerates the Code field values sent
// alongside TypeDestinationUnreachable.
type CodeDestinationUnreachable uint8

const (
	CodeNetUnreachable  CodeDestinationUnreachable = iota // net unreachable
	CodeHostUnreachable                                   // host unreachable
	CodePortUnreachable                                   // port unreachable
)

var errShortFrame = errors.New("icmpv4: short frame")

const sizeHeader = 8

// NewFrame returns a Frame with data set to buf. An error is returned if
// buf is smaller than the fixed 8-byte ICMP header.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{}, errShortFrame
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of an ICMP message: 4-byte common
// header (type, code, checksum) followed by a type-specific payload.
type Frame struct {
	buf []byte
}

func (frm Frame) RawData() []byte { return frm.buf }

func (frm Frame) Type() Type { return Type(frm.buf[0]) }

func (frm Frame) SetType(t Type) { frm.buf[0] = uint8(t) }

func (frm Frame) Code() uint8 { return frm.buf[1] }

func (frm Frame) SetCode(code uint8) { frm.buf[1] = code }

// CRC returns the checksum field of the frame.
func (frm Frame) CRC() uint16 {
	return binary.BigEndian.Uint16(frm.buf[2:4])
}

// SetCRC sets the checksum field of the frame.
func (frm Frame) SetCRC(crc uint16) {
	binary.BigEndian.PutUint16(frm.buf[2:4], crc)
}

// CRCWrite folds the frame into crc, treating the checksum field as
// zero per RFC 792.
func (frm Frame) CRCWrite(crc *micronet.CRC791) {
	crc.AddUint16(binary.BigEndian.Uint16(frm.buf[0:2]))
	crc.Write(frm.buf[4:])
}

func (frm Frame) ValidateSize(v *micronet.Validator) {
	if len(frm.buf) < sizeHeader {
		v.AddError(errShortFrame)
	}
}

// FrameDestinationUnreachable views an ICMP frame whose Type is
// TypeDestinationUnreachable.
type FrameDestinationUnreachable struct {
	Frame
}

func (frm FrameDestinationUnreachable) Code() CodeDestinationUnreachable {
	return CodeDestinationUnreachable(frm.Frame.Code())
}

func (frm FrameDestinationUnreachable) SetCode(code CodeDestinationUnreachable) {
	frm.Frame.SetCode(uint8(code))
}

// FrameEcho views an ICMP frame whose Type is TypeEcho or
// TypeEchoReply: identifier, sequence number, then opaque data the
// replier must echo back unchanged.
type FrameEcho struct {
	Frame
}

func (frm FrameEcho) Identifier() uint16 {
	return binary.BigEndian.Uint16(frm.buf[4:6])
}

func (frm FrameEcho) SetIdentifier(id uint16) {
	binary.BigEndian.PutUint16(frm.buf[4:6], id)
}

func (frm FrameEcho) SequenceNumber() uint16 {
	return binary.BigEndian.Uint16(frm.buf[6:8])
}

func (frm FrameEcho) SetSequenceNumber(seq uint16) {
	binary.BigEndian.PutUint16(frm.buf[6:8], seq)
}

// Data returns the echo payload following identifier and sequence number.
func (frm FrameEcho) Data() []byte {
	return frm.buf[8:]
}
