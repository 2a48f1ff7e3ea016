package arp

import "github.com/embednet/micronet"

// Entry is one row of a Table: an IPv4 key, its resolved MAC, and the
// bookkeeping needed for decay and request throttling.
type Entry struct {
	IP             micronet.IPv4
	MAC            micronet.MAC
	LastSeen       uint32
	Initialised    bool
	Valid          bool
	Requested      bool
	SubjectToDecay bool
}

// Table is a fixed-capacity, linearly-scanned ARP cache keyed by IPv4
// address. Entries are never evicted to make room for a new one: when
// the table is full, Request and Store fail with
// [micronet.ErrArpTableFull] and leave the table unchanged (spec §4.2).
type Table struct {
	entries        []Entry
	nextDecaySweep uint32
}

// NewTable constructs a Table backed by a capacity-length slice of
// Entry supplied by the caller.
func NewTable(backing []Entry) *Table {
	return &Table{entries: backing}
}

// Capacity returns the maximum number of distinct IPs the table can track.
func (t *Table) Capacity() int { return len(t.entries) }

// Lookup scans for an initialised entry keyed by ip. ok is false if no
// such entry exists.
func (t *Table) Lookup(ip micronet.IPv4) (e Entry, ok bool) {
	for i := range t.entries {
		if t.entries[i].Initialised && t.entries[i].IP == ip {
			return t.entries[i], true
		}
	}
	return Entry{}, false
}

// IsValid reports whether ip has a currently-valid (resolved) entry.
func (t *Table) IsValid(ip micronet.IPv4) bool {
	e, ok := t.Lookup(ip)
	return ok && e.Valid
}

func (t *Table) findSlot(ip micronet.IPv4) (idx int, found bool) {
	free := -1
	for i := range t.entries {
		if !t.entries[i].Initialised {
			if free < 0 {
				free = i
			}
			continue
		}
		if t.entries[i].IP == ip {
			return i, true
		}
	}
	if free < 0 {
		return -1, false
	}
	return free, false
}

// Request marks ip as pending resolution: empty → requested (spec
// §4.2). Returns [micronet.ErrArpTableFull] if ip is not already
// tracked and no free slot remains.
func (t *Table) Request(ip micronet.IPv4, now uint32) error {
	idx, found := t.findSlot(ip)
	if idx < 0 {
		return micronet.ErrArpTableFull
	}
	if found {
		return nil // already tracked, whatever its state
	}
	t.entries[idx] = Entry{
		IP:          ip,
		Initialised: true,
		Requested:   true,
		LastSeen:    now,
	}
	return nil
}

// Store records a resolved (ip, mac) pair directly: empty → learned,
// or requested/valid → valid (refresh). subjectToDecay should be true
// for entries learned from inbound traffic and false for explicit
// application inserts and replies to our own requests (spec §4.2).
func (t *Table) Store(ip micronet.IPv4, mac micronet.MAC, subjectToDecay bool, now uint32) error {
	idx, _ := t.findSlot(ip)
	if idx < 0 {
		return micronet.ErrArpTableFull
	}
	e := &t.entries[idx]
	e.IP = ip
	e.MAC = mac
	e.Initialised = true
	e.Valid = true
	e.Requested = false
	e.SubjectToDecay = subjectToDecay
	e.LastSeen = now
	return nil
}

// DecaySweep evicts every SubjectToDecay entry whose age has reached
// decayMs, gated to run at most once per cooldownMs (spec §4.2). It
// reports whether a sweep actually ran.
func (t *Table) DecaySweep(now uint32, cooldownMs, decayMs uint32) bool {
	if !micronet.IsPast(now, t.nextDecaySweep) {
		return false
	}
	t.nextDecaySweep = now + cooldownMs
	for i := range t.entries {
		e := &t.entries[i]
		if e.Initialised && e.Valid && e.SubjectToDecay && micronet.DiffUint32(e.LastSeen, now) >= decayMs {
			*e = Entry{}
		}
	}
	return true
}
