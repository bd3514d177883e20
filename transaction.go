package df1comm

import (
	"sync"
	"time"
)

// txSlot is one of the 256 entries described in spec.md §3's "Transaction
// slot": a completion flag, an ack flag, and the last raw frame body
// received for that low-byte TNS.
type txSlot struct {
	mu            sync.Mutex
	responded     bool
	acked         bool
	checksumError bool
	frame         []byte
	notify        chan struct{}
}

// transactionTable is the 256-entry ring indexed by the low byte of the TNS
// sequence (§3, §4.E). Each slot has its own mutex for responded/acked/frame
// updates; swapping a slot's pointer on reset is guarded by a second, table-
// wide mutex instead, since that swap races against the reader goroutine's
// concurrent get() on the same index (spec.md §5's "single coarse lock per
// link instance" covers this kind of shared, low-traffic bookkeeping).
type transactionTable struct {
	mu    sync.Mutex
	slots [256]*txSlot
}

func newTransactionTable() *transactionTable {
	t := &transactionTable{}
	for i := range t.slots {
		t.slots[i] = &txSlot{notify: make(chan struct{})}
	}
	return t
}

// reset clears the slot just before a new request goes out on it, replacing
// its notify channel so any earlier waiter (which must have already timed
// out, by the one-outstanding-request-per-slot invariant) doesn't observe a
// spurious close.
func (t *transactionTable) reset(idx byte) {
	t.mu.Lock()
	t.slots[idx] = &txSlot{notify: make(chan struct{})}
	t.mu.Unlock()
}

func (t *transactionTable) get(idx byte) *txSlot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots[idx]
}

// markResponded records an inbound frame against its TNS slot and wakes any
// waiter. checksumError marks the "-21: NAK was due to our checksum failure
// on received data" case from §4.E.
func (t *transactionTable) markResponded(idx byte, frame []byte, checksumError bool) {
	slot := t.get(idx)
	slot.mu.Lock()
	if slot.responded {
		slot.mu.Unlock()
		return
	}
	slot.responded = true
	slot.frame = frame
	slot.checksumError = checksumError
	slot.mu.Unlock()
	close(slot.notify)
}

func (t *transactionTable) markAcked(idx byte) {
	slot := t.get(idx)
	slot.mu.Lock()
	slot.acked = true
	slot.mu.Unlock()
}

// wait blocks for up to maxTicks*20ms for a reply on idx, returning the
// stored frame and CodeSuccess, or CodeTimeout/CodeChecksumOnRecvd per the
// source's documented waiter semantics (§4.E).
func (t *transactionTable) wait(idx byte, maxTicks int) ([]byte, Code) {
	slot := t.get(idx)
	timeout := time.Duration(maxTicks) * tickDuration
	select {
	case <-slot.notify:
		slot.mu.Lock()
		defer slot.mu.Unlock()
		if slot.checksumError {
			return nil, CodeChecksumOnRecvd
		}
		return slot.frame, CodeSuccess
	case <-time.After(timeout):
		return nil, CodeTimeout
	}
}

// tickDuration is the source's 20ms wait-loop granularity (§4.E, §5).
const tickDuration = 20 * time.Millisecond
