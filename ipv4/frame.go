package ipv4

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/embednet/micronet"
)

var (
	errShort  = errors.New("ipv4: buffer shorter than declared total length")
	errBadTL  = errors.New("ipv4: total length field smaller than header")
	errBadIHL = errors.New("ipv4: IHL field smaller than 5")
)

// NewFrame returns a Frame with data set to buf. An error is returned if
// buf is smaller than the 20-byte fixed header (this engine emits and
// expects no IP options, so IHL is always 5).
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{}, errors.New("ipv4: short buffer")
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of an IPv4 packet and provides
// accessors for manipulating, validating and retrieving its header
// fields and payload. See RFC 791.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice the frame was constructed with.
func (ifrm Frame) RawData() []byte { return ifrm.buf }

func (ifrm Frame) ihl() uint8     { return ifrm.buf[0] & 0xf }
func (ifrm Frame) version() uint8 { return ifrm.buf[0] >> 4 }

// HeaderLength returns the header length in bytes, computed from IHL.
func (ifrm Frame) HeaderLength() int { return int(ifrm.ihl()) * 4 }

// SetVersionAndIHL sets the version and IHL header fields.
func (ifrm Frame) SetVersionAndIHL(version, ihl uint8) {
	ifrm.buf[0] = version<<4 | ihl&0xf
}

// ToS returns the Type-of-Service field.
func (ifrm Frame) ToS() ToS { return ToS(ifrm.buf[1]) }

// SetToS sets the Type-of-Service field.
func (ifrm Frame) SetToS(tos ToS) { ifrm.buf[1] = byte(tos) }

// TotalLength returns the IPv4 total-length field (header + payload).
func (ifrm Frame) TotalLength() uint16 { return binary.BigEndian.Uint16(ifrm.buf[2:4]) }

// SetTotalLength sets the IPv4 total-length field.
func (ifrm Frame) SetTotalLength(tl uint16) { binary.BigEndian.PutUint16(ifrm.buf[2:4], tl) }

// ID returns the fragment-identification field.
func (ifrm Frame) ID() uint16 { return binary.BigEndian.Uint16(ifrm.buf[4:6]) }

// SetID sets the fragment-identification field.
func (ifrm Frame) SetID(id uint16) { binary.BigEndian.PutUint16(ifrm.buf[4:6], id) }

// Flags returns the flags+fragment-offset field.
func (ifrm Frame) Flags() Flags { return Flags(binary.BigEndian.Uint16(ifrm.buf[6:8])) }

// SetFlags sets the flags+fragment-offset field. This engine always
// writes 0x4000 (Don't Fragment, offset 0) on egress: see spec §9's
// redesign note on the original's latent DF-bit encoding bug.
func (ifrm Frame) SetFlags(f Flags) { binary.BigEndian.PutUint16(ifrm.buf[6:8], uint16(f)) }

// TTL returns the time-to-live field.
func (ifrm Frame) TTL() uint8 { return ifrm.buf[8] }

// SetTTL sets the time-to-live field.
func (ifrm Frame) SetTTL(ttl uint8) { ifrm.buf[8] = ttl }

// Protocol returns the upper-layer protocol field.
func (ifrm Frame) Protocol() micronet.IPProto { return micronet.IPProto(ifrm.buf[9]) }

// SetProtocol sets the upper-layer protocol field.
func (ifrm Frame) SetProtocol(p micronet.IPProto) { ifrm.buf[9] = uint8(p) }

// CRC returns the header checksum field.
func (ifrm Frame) CRC() uint16 { return binary.BigEndian.Uint16(ifrm.buf[10:12]) }

// SetCRC sets the header checksum field.
func (ifrm Frame) SetCRC(crc uint16) { binary.BigEndian.PutUint16(ifrm.buf[10:12], crc) }

// CalculateHeaderCRC computes the IPv4 header checksum treating the
// checksum field itself as zero, per RFC 791.
func (ifrm Frame) CalculateHeaderCRC() uint16 {
	var crc micronet.CRC791
	crc.Write(ifrm.buf[0:10])
	crc.Write(ifrm.buf[12:20])
	return crc.Sum16()
}

// SourceAddr returns a pointer to the 4-byte source address field.
func (ifrm Frame) SourceAddr() *[4]byte { return (*[4]byte)(ifrm.buf[12:16]) }

// DestinationAddr returns a pointer to the 4-byte destination address field.
func (ifrm Frame) DestinationAddr() *[4]byte { return (*[4]byte)(ifrm.buf[16:20]) }

// Payload returns the packet's payload, bounded by TotalLength. Call
// ValidateSize first to avoid a panic on a malformed total length.
func (ifrm Frame) Payload() []byte {
	off := ifrm.HeaderLength()
	return ifrm.buf[off:ifrm.TotalLength()]
}

// ClearHeader zeros the fixed 20-byte header.
func (ifrm Frame) ClearHeader() {
	for i := range ifrm.buf[:sizeHeader] {
		ifrm.buf[i] = 0
	}
}

// ValidateSize checks the frame's size-related fields against the
// actual buffer length, recording a non-nil error on inconsistency.
func (ifrm Frame) ValidateSize(v *micronet.Validator) {
	tl := ifrm.TotalLength()
	if tl < sizeHeader {
		v.AddError(errBadTL)
	}
	if int(tl) > len(ifrm.buf) {
		v.AddError(errShort)
	}
	if ifrm.ihl() < 5 {
		v.AddError(errBadIHL)
	}
}

func (ifrm Frame) String() string {
	src, dst := ifrm.SourceAddr(), ifrm.DestinationAddr()
	return fmt.Sprintf("IPv4 %s SRC=%d.%d.%d.%d DST=%d.%d.%d.%d LEN=%d TTL=%d ID=%d",
		ifrm.Protocol(), src[0], src[1], src[2], src[3], dst[0], dst[1], dst[2], dst[3], ifrm.TotalLength(), ifrm.TTL(), ifrm.ID())
}
