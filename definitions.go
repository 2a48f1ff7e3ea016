package micronet

// IPProto identifies the protocol carried by an IPv4 packet's payload.
// Only the values this engine terminates are listed; unknown values are
// decoded into the numeric IPProto and silently dropped by the ingress
// classifier (spec §4.4).
type IPProto uint8

const (
	IPProtoICMP IPProto = 1  // Internet Control Message [RFC792]
	IPProtoUDP  IPProto = 17 // User Datagram [RFC768]
)

func (p IPProto) String() string {
	switch p {
	case IPProtoICMP:
		return "ICMP"
	case IPProtoUDP:
		return "UDP"
	default:
		return "unknown"
	}
}
