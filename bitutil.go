package micronet

// DiffUint32 returns cur-old as an unsigned 32-bit difference, correctly
// handling wrap-around of a free-running counter: if cur has wrapped
// past zero relative to old, the distance is still computed as if the
// counter kept counting up. This is the monotonic-counter arithmetic the
// injected timer and every ring buffer's read/write totals rely on
// (spec §9: "must use modular unsigned subtraction, not signed").
func DiffUint32(old, cur uint32) uint32 {
	return cur - old // unsigned subtraction wraps correctly on its own.
}

// DiffUint16 is DiffUint32 for 16-bit counters.
func DiffUint16(old, cur uint16) uint16 {
	return cur - old
}

// IsPast reports whether deadline lies at or before now on a free-running
// 32-bit millisecond clock, using the standard wrap-tolerant comparison:
// a distance of less than 2^31 is considered "in the past". This is the
// [driver.Clock.IsPassed] semantics described in spec §6.
func IsPast(now, deadline uint32) bool {
	return int32(now-deadline) >= 0
}
