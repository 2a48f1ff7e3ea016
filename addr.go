package micronet

import "fmt"

// IPv4 is a 4-octet IPv4 address in dotted-decimal order (addr[0] is
// the most significant octet). This is also the big-endian order frames
// carry on the wire, so frame accessors copy the octets unchanged.
type IPv4 [4]byte

// Mask applies subnetMask to addr, zeroing the host bits.
func (addr IPv4) Mask(subnetMask IPv4) IPv4 {
	var out IPv4
	for i := range addr {
		out[i] = addr[i] & subnetMask[i]
	}
	return out
}

// SameSubnet reports whether addr and other share the same network
// prefix under subnetMask.
func (addr IPv4) SameSubnet(other, subnetMask IPv4) bool {
	return addr.Mask(subnetMask) == other.Mask(subnetMask)
}

// Broadcast returns the subnet broadcast address localIp | ^subnetMask.
func (addr IPv4) Broadcast(subnetMask IPv4) IPv4 {
	var out IPv4
	for i := range addr {
		out[i] = addr[i] | ^subnetMask[i]
	}
	return out
}

// IsZero reports whether addr is 0.0.0.0.
func (addr IPv4) IsZero() bool { return addr == IPv4{} }

func (addr IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", addr[0], addr[1], addr[2], addr[3])
}

// MAC is a 6-octet Ethernet hardware address.
type MAC [6]byte

// BroadcastMAC is the link-layer broadcast address ff:ff:ff:ff:ff:ff.
var BroadcastMAC = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// IsZero reports whether mac is the all-zeros address.
func (mac MAC) IsZero() bool { return mac == MAC{} }

// IsBroadcast reports whether mac is the link-layer broadcast address.
func (mac MAC) IsBroadcast() bool { return mac == BroadcastMAC }

func (mac MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}
