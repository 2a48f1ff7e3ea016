package ethernet

import "strconv"

// sizeHeader is the fixed length of an Ethernet II header: destination
// (6) + source (6) + EtherType (2). This engine never emits or expects
// 802.1Q VLAN tags (out of scope).
const sizeHeader = 14

// AppendAddr appends the text representation of the hardware address to dst.
func AppendAddr(dst []byte, hwAddr [6]byte) []byte {
	for i, b := range hwAddr {
		if i != 0 {
			dst = append(dst, ':')
		}
		if b < 16 {
			dst = append(dst, '0')
		}
		dst = strconv.AppendUint(dst, uint64(b), 16)
	}
	return dst
}

// BroadcastAddr returns the all-0xff broadcast hardware address.
func BroadcastAddr() [6]byte {
	return [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
}

// Type is the EtherType field of an Ethernet II header.
type Type uint16

const (
	TypeIPv4 Type = 0x0800 // IPv4
	TypeARP  Type = 0x0806 // ARP
)

func (et Type) String() string {
	switch et {
	case TypeIPv4:
		return "IPv4"
	case TypeARP:
		return "ARP"
	default:
		return "unknown"
	}
}
