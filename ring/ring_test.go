package ring

import (
	"errors"
	"testing"

	"github.com/embednet/micronet"
)

func TestWriteReadRoundTrip(t *testing.T) {
	backing := make([]byte, 4*4)
	r, err := New(backing, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	w := []byte("ABCD")
	if err := r.Write(w, 1); err != nil {
		t.Fatal(err)
	}
	var peek [4]byte
	if err := r.Read(peek[:], 1, false); err != nil {
		t.Fatal(err)
	}
	if string(peek[:]) != "ABCD" {
		t.Fatalf("peek got %q want ABCD", peek[:])
	}
	if r.Count() != 1 {
		t.Fatalf("peek must not consume: count=%d", r.Count())
	}
	var consumed [4]byte
	if err := r.Read(consumed[:], 1, true); err != nil {
		t.Fatal(err)
	}
	if string(consumed[:]) != "ABCD" {
		t.Fatalf("consuming read got %q want ABCD", consumed[:])
	}
	if r.Count() != 0 {
		t.Fatalf("ring should be empty after consuming read, count=%d", r.Count())
	}
}

func TestCapacityInvariant(t *testing.T) {
	const cap = 5
	backing := make([]byte, cap*2)
	r, _ := New(backing, 2, cap)
	for i := 0; i < cap; i++ {
		if err := r.Write([]byte{byte(i), byte(i)}, 1); err != nil {
			t.Fatal(err)
		}
		if r.Capacity()-r.Free() != r.Count() {
			t.Fatalf("capacity-free != count at step %d", i)
		}
	}
	if err := r.Write([]byte{0, 0}, 1); !errors.Is(err, micronet.ErrQueueFull) {
		t.Fatalf("want ErrQueueFull on full write, got %v", err)
	}
}

func TestWrapAround(t *testing.T) {
	const cap = 4
	backing := make([]byte, cap*2)
	r, _ := New(backing, 2, cap)
	// Fill, drain half, refill to force the write cursor across the wrap boundary.
	for i := 0; i < cap; i++ {
		r.Write([]byte{byte(i), 0}, 1)
	}
	var tmp [2]byte
	r.Read(tmp[:], 1, true)
	r.Read(tmp[:], 1, true)
	r.Write([]byte{10, 0}, 1)
	r.Write([]byte{11, 0}, 1)
	if r.Count() != cap {
		t.Fatalf("count after wrap write = %d, want %d", r.Count(), cap)
	}
	var out [2]byte
	want := []byte{2, 3, 10, 11}
	for i := 0; i < cap; i++ {
		if err := r.Read(out[:], 1, true); err != nil {
			t.Fatal(err)
		}
		if out[0] != want[i] {
			t.Fatalf("item %d = %d, want %d", i, out[0], want[i])
		}
	}
}

func TestReadEmptyFails(t *testing.T) {
	backing := make([]byte, 8)
	r, _ := New(backing, 4, 2)
	var dst [4]byte
	if err := r.Read(dst[:], 1, true); !errors.Is(err, micronet.ErrQueueEmpty) {
		t.Fatalf("want ErrQueueEmpty, got %v", err)
	}
	if err := r.Consume(1); !errors.Is(err, micronet.ErrQueueEmpty) {
		t.Fatalf("want ErrQueueEmpty from Consume, got %v", err)
	}
}

func TestFlush(t *testing.T) {
	backing := make([]byte, 8)
	r, _ := New(backing, 4, 2)
	r.Write([]byte("ABCD"), 1)
	r.Flush()
	if r.Count() != 0 || r.Free() != r.Capacity() {
		t.Fatalf("flush did not reset ring: count=%d free=%d", r.Count(), r.Free())
	}
}
