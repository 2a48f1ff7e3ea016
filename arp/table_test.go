package arp

import (
	"errors"
	"testing"

	"github.com/embednet/micronet"
)

func TestRequestThenReplyBecomesValid(t *testing.T) {
	tbl := NewTable(make([]Entry, 4))
	ip := micronet.IPv4{192, 168, 2, 0}
	mac := micronet.MAC{0x11, 0x22, 0x44, 0x55, 0x88, 0xAA}

	if err := tbl.Request(ip, 1000); err != nil {
		t.Fatal(err)
	}
	if tbl.IsValid(ip) {
		t.Fatal("entry should not be valid before a reply arrives")
	}
	// A reply to our own request is stored directly, matching the
	// controller's ingress handling of arp.OpReply.
	if err := tbl.Store(ip, mac, false, 1010); err != nil {
		t.Fatal(err)
	}
	if !tbl.IsValid(ip) {
		t.Fatal("entry should be valid after the reply is stored")
	}
	e, _ := tbl.Lookup(ip)
	if e.MAC != mac {
		t.Fatalf("mac = %v want %v", e.MAC, mac)
	}
}

func TestStoreLearnedIsSubjectToDecay(t *testing.T) {
	tbl := NewTable(make([]Entry, 4))
	ip := micronet.IPv4{10, 0, 0, 5}
	mac := micronet.MAC{1, 2, 3, 4, 5, 6}
	if err := tbl.Store(ip, mac, true, 0); err != nil {
		t.Fatal(err)
	}
	e, ok := tbl.Lookup(ip)
	if !ok || !e.SubjectToDecay {
		t.Fatal("learned entry must be subject to decay")
	}
}

func TestExplicitInsertNotSubjectToDecay(t *testing.T) {
	tbl := NewTable(make([]Entry, 4))
	ip := micronet.IPv4{10, 0, 0, 9}
	if err := tbl.Store(ip, micronet.MAC{}, false, 0); err != nil {
		t.Fatal(err)
	}
	e, _ := tbl.Lookup(ip)
	if e.SubjectToDecay {
		t.Fatal("explicit insert must not be subject to decay")
	}
}

func TestTableFullReportsError(t *testing.T) {
	tbl := NewTable(make([]Entry, 1))
	if err := tbl.Store(micronet.IPv4{1, 1, 1, 1}, micronet.MAC{}, false, 0); err != nil {
		t.Fatal(err)
	}
	err := tbl.Store(micronet.IPv4{2, 2, 2, 2}, micronet.MAC{}, false, 0)
	if !errors.Is(err, micronet.ErrArpTableFull) {
		t.Fatalf("want ErrArpTableFull, got %v", err)
	}
}

func TestDecaySweepBoundary(t *testing.T) {
	tbl := NewTable(make([]Entry, 2))
	ip := micronet.IPv4{172, 16, 0, 1}
	tbl.Store(ip, micronet.MAC{9, 9, 9, 9, 9, 9}, true, 0)

	// Just under the decay age: survives.
	if ran := tbl.DecaySweep(DecayAgeMs-1, DecaySweepPeriodMs, DecayAgeMs); !ran {
		t.Fatal("first sweep should run")
	}
	if !tbl.IsValid(ip) {
		t.Fatal("entry must survive at age DecayAgeMs-1")
	}

	// Sweep cooldown gate: immediately re-invoking must not re-run.
	if ran := tbl.DecaySweep(DecayAgeMs-1, DecaySweepPeriodMs, DecayAgeMs); ran {
		t.Fatal("sweep should be gated by cooldown")
	}

	// At or past the decay age and past cooldown: evicted.
	if ran := tbl.DecaySweep(DecayAgeMs-1+DecaySweepPeriodMs, DecaySweepPeriodMs, DecayAgeMs); !ran {
		t.Fatal("second sweep should run")
	}
	if tbl.IsValid(ip) {
		t.Fatal("entry should have decayed")
	}
}

func TestRequestIdempotentOnAlreadyTracked(t *testing.T) {
	tbl := NewTable(make([]Entry, 2))
	ip := micronet.IPv4{8, 8, 8, 8}
	tbl.Store(ip, micronet.MAC{1, 1, 1, 1, 1, 1}, false, 5)
	if err := tbl.Request(ip, 10); err != nil {
		t.Fatal(err)
	}
	e, _ := tbl.Lookup(ip)
	if !e.Valid {
		t.Fatal("Request on an already-valid entry must not clear validity")
	}
}
