package main

import (
	"time"

	"github.com/embednet/micronet"
)

// startTime anchors MonotonicClock's millisecond counter; reading
// time.Since keeps the value monotonic regardless of wall-clock
// adjustments, the same guarantee the engine's injected clock requires.
var startTime = time.Now()

// MonotonicClock implements driver.Clock over the process's monotonic
// time source, in milliseconds since startup. The engine's internal
// ARP/decay cooldowns run entirely off this value; nothing here ever
// feeds into golang.org/x/time/rate, which only paces the harness's own
// polling loop.
type MonotonicClock struct{}

func (MonotonicClock) Now() uint32 {
	return uint32(time.Since(startTime).Milliseconds())
}

func (c MonotonicClock) IsPassed(deadline uint32) bool {
	return micronet.IsPast(c.Now(), deadline)
}
