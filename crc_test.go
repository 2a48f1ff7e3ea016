package micronet

import "testing"

func TestCRC791SelfVerifies(t *testing.T) {
	t.Run("even length payload", func(t *testing.T) {
		buf := []byte{0x45, 0x00, 0x00, 0x3c, 0x1c, 0x46, 0x40, 0x00}
		var c CRC791
		c.Write(buf)
		sum := c.Sum16()

		var verify CRC791
		verify.Write(buf)
		verify.AddUint16(sum)
		if got := verify.Sum16(); got != 0 {
			t.Fatalf("folding payload plus its own checksum must complement to zero, got %#04x", got)
		}
	})

	t.Run("odd length payload", func(t *testing.T) {
		buf := []byte{0x01, 0x02, 0x03}
		var c CRC791
		c.Write(buf)
		sum := c.Sum16()

		var verify CRC791
		verify.Write(buf)
		verify.AddUint16(sum)
		if got := verify.Sum16(); got != 0 {
			t.Fatalf("folding odd-length payload plus its own checksum must complement to zero, got %#04x", got)
		}
	})
}

func TestNeverZeroChecksum(t *testing.T) {
	if got := NeverZeroChecksum(0); got != 0xffff {
		t.Fatalf("want 0xffff substituted for a zero checksum, got %#04x", got)
	}
	if got := NeverZeroChecksum(0x1234); got != 0x1234 {
		t.Fatalf("non-zero checksum must pass through unchanged, got %#04x", got)
	}
}

func TestDiffUint32WrapsCorrectly(t *testing.T) {
	const old, cur = 0xfffffff0, 0x10
	const want = 0x20
	if got := DiffUint32(old, cur); got != want {
		t.Fatalf("want wrap-tolerant diff %#x, got %#x", want, got)
	}
}

func TestIsPastWrapsCorrectly(t *testing.T) {
	if !IsPast(10, 5) {
		t.Fatal("10 must be considered past a deadline of 5")
	}
	if IsPast(5, 10) {
		t.Fatal("5 must not be considered past a deadline of 10")
	}
	// A deadline set just before a counter wraps is still "past" once the
	// counter has wrapped a small distance beyond it.
	if !IsPast(5, 0xfffffff0) {
		t.Fatal("want wrap-tolerant deadline considered past")
	}
}
