package arp

import (
	"testing"

	"github.com/embednet/micronet"
	"github.com/embednet/micronet/ethernet"
)

func TestRequestFieldRoundTrip(t *testing.T) {
	buf := make([]byte, sizeHeaderv4)
	afrm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	afrm.ClearHeader()
	afrm.SetHardware(1, 6)
	afrm.SetProtocol(ethernet.TypeIPv4, 4)
	afrm.SetOperation(OpRequest)

	senderMAC, senderIP := afrm.Sender4()
	*senderMAC = micronet.MAC{0xaa, 0, 0, 0, 0, 1}
	*senderIP = micronet.IPv4{192, 168, 2, 1}
	targetMAC, targetIP := afrm.Target4()
	*targetMAC = micronet.MAC{}
	*targetIP = micronet.IPv4{192, 168, 2, 2}

	if hwType, hwLen := afrm.Hardware(); hwType != 1 || hwLen != 6 {
		t.Fatalf("hardware round trip failed: %d/%d", hwType, hwLen)
	}
	if protoType, protoLen := afrm.Protocol(); protoType != ethernet.TypeIPv4 || protoLen != 4 {
		t.Fatalf("protocol round trip failed: %v/%d", protoType, protoLen)
	}
	if afrm.Operation() != OpRequest {
		t.Fatal("operation round trip failed")
	}
	gotMAC, gotIP := afrm.Sender4()
	if *gotMAC != *senderMAC || *gotIP != *senderIP {
		t.Fatal("sender field aliasing broken")
	}
}

func TestSwapSenderTarget(t *testing.T) {
	buf := make([]byte, sizeHeaderv4)
	afrm, _ := NewFrame(buf)
	afrm.ClearHeader()
	senderMAC, senderIP := afrm.Sender4()
	*senderMAC = micronet.MAC{1, 1, 1, 1, 1, 1}
	*senderIP = micronet.IPv4{10, 0, 0, 1}
	targetMAC, targetIP := afrm.Target4()
	*targetMAC = micronet.MAC{2, 2, 2, 2, 2, 2}
	*targetIP = micronet.IPv4{10, 0, 0, 2}

	afrm.SwapSenderTarget()

	newSenderMAC, newSenderIP := afrm.Sender4()
	newTargetMAC, newTargetIP := afrm.Target4()
	if *newSenderMAC != (micronet.MAC{2, 2, 2, 2, 2, 2}) || *newSenderIP != (micronet.IPv4{10, 0, 0, 2}) {
		t.Fatal("sender did not take on the prior target's address")
	}
	if *newTargetMAC != (micronet.MAC{1, 1, 1, 1, 1, 1}) || *newTargetIP != (micronet.IPv4{10, 0, 0, 1}) {
		t.Fatal("target did not take on the prior sender's address")
	}
}

func TestValidateSizeCatchesTruncatedBuffer(t *testing.T) {
	afrm := Frame{buf: make([]byte, 10)} // claims Ethernet/IPv4 lengths but buffer too short
	afrm.SetHardware(1, 6)
	afrm.SetProtocol(ethernet.TypeIPv4, 4)
	var v micronet.Validator
	afrm.ValidateSize(&v)
	if !v.HasError() {
		t.Fatal("want validation error for truncated ARP buffer")
	}
}

func TestNewFrameRejectsUndersizedBuffer(t *testing.T) {
	if _, err := NewFrame(make([]byte, 4)); err == nil {
		t.Fatal("want error constructing a frame from a buffer shorter than the fixed IPv4 ARP size")
	}
}
