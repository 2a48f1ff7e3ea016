// Package ring implements the fixed-capacity, fixed-item-size FIFO that
// backs every port and MAC-driver queue in the engine (spec §4.1).
//
// A Buffer is a power-of-one-or-more capacity array of itemSize-byte
// items. Write/Read/Consume operate in whole items; free space and
// item count are computed from wrap-around-aware 32-bit write/read
// totals, mirroring original_source/Lib/Fifo.c's ReadCount/WriteCount
// bookkeeping rather than the byte-cursor approach of a plain byte ring.
package ring

import "github.com/embednet/micronet"

// Buffer is a fixed-capacity ring of fixed-size items. The zero value
// is not usable; construct with [New].
type Buffer struct {
	buf      []byte
	itemSize uint32
	capacity uint32 // in items

	writeIdx   uint32 // next item slot to write, in [0,capacity)
	readIdx    uint32 // next item slot to read, in [0,capacity)
	writeTotal uint32 // total items ever written, wraps
	readTotal  uint32 // total items ever read/consumed, wraps
}

// New constructs a Buffer of capacity items of itemSize bytes each,
// using backing as storage. backing must be at least capacity*itemSize
// bytes; New never allocates, so backing should come from the caller's
// arena (spec §3, "Lifecycle").
func New(backing []byte, itemSize, capacity uint32) (*Buffer, error) {
	if itemSize == 0 || capacity == 0 {
		return nil, micronet.ErrInvalidArgument
	}
	need := uint64(itemSize) * uint64(capacity)
	if uint64(len(backing)) < need {
		return nil, micronet.ErrInvalidArgument
	}
	return &Buffer{
		buf:      backing[:need],
		itemSize: itemSize,
		capacity: capacity,
	}, nil
}

// ItemSize returns the fixed size in bytes of one item.
func (r *Buffer) ItemSize() uint32 { return r.itemSize }

// Capacity returns the maximum number of items the buffer can hold.
func (r *Buffer) Capacity() uint32 { return r.capacity }

// Count returns the number of items currently buffered, wrap-around aware.
func (r *Buffer) Count() uint32 {
	return micronet.DiffUint32(r.readTotal, r.writeTotal)
}

// Free returns the number of additional items that can be written
// before the buffer is full.
func (r *Buffer) Free() uint32 {
	return r.capacity - r.Count()
}

// Flush zeroes all cursors and totals, discarding any buffered items.
func (r *Buffer) Flush() {
	r.writeIdx, r.readIdx, r.writeTotal, r.readTotal = 0, 0, 0, 0
}

// Write appends n items (n*ItemSize() bytes, taken from src) to the
// buffer. If fewer than n items of free space remain, Write fails with
// [micronet.ErrQueueFull] and the buffer is left unchanged.
func (r *Buffer) Write(src []byte, n uint32) error {
	if uint64(len(src)) < uint64(n)*uint64(r.itemSize) {
		return micronet.ErrInvalidArgument
	}
	if r.Free() < n {
		return micronet.ErrQueueFull
	}
	r.copyIn(src, n)
	r.writeIdx = (r.writeIdx + n) % r.capacity
	r.writeTotal += n
	return nil
}

// Read copies n items (n*ItemSize() bytes) starting at the read cursor
// into dst. If consume is true the read cursor and total advance by n;
// otherwise this is a non-destructive peek. Fails with
// [micronet.ErrQueueEmpty] if fewer than n items are buffered.
func (r *Buffer) Read(dst []byte, n uint32, consume bool) error {
	if uint64(len(dst)) < uint64(n)*uint64(r.itemSize) {
		return micronet.ErrInvalidArgument
	}
	if r.Count() < n {
		return micronet.ErrQueueEmpty
	}
	r.copyOut(dst, n)
	if consume {
		r.readIdx = (r.readIdx + n) % r.capacity
		r.readTotal += n
	}
	return nil
}

// Consume advances the read cursor by n items without copying any data.
// Fails with [micronet.ErrQueueEmpty] if fewer than n items are buffered.
func (r *Buffer) Consume(n uint32) error {
	if r.Count() < n {
		return micronet.ErrQueueEmpty
	}
	r.readIdx = (r.readIdx + n) % r.capacity
	r.readTotal += n
	return nil
}

// copyIn writes n items from src into the ring starting at writeIdx,
// splitting the copy across the wrap boundary as needed.
func (r *Buffer) copyIn(src []byte, n uint32) {
	is := r.itemSize
	firstRun := r.capacity - r.writeIdx
	if firstRun > n {
		firstRun = n
	}
	off := r.writeIdx * is
	copy(r.buf[off:off+firstRun*is], src[:firstRun*is])
	if rem := n - firstRun; rem > 0 {
		copy(r.buf[:rem*is], src[firstRun*is:n*is])
	}
}

// copyOut reads n items into dst starting at readIdx, splitting the
// copy across the wrap boundary as needed.
func (r *Buffer) copyOut(dst []byte, n uint32) {
	is := r.itemSize
	firstRun := r.capacity - r.readIdx
	if firstRun > n {
		firstRun = n
	}
	off := r.readIdx * is
	copy(dst[:firstRun*is], r.buf[off:off+firstRun*is])
	if rem := n - firstRun; rem > 0 {
		copy(dst[firstRun*is:n*is], r.buf[:rem*is])
	}
}
