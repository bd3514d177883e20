package df1comm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEvents struct {
	NopEvents
	mu           sync.Mutex
	unsolicited  [][]byte
	dataReceived []uint16
}

func (f *fakeEvents) UnsolicitedMessageReceived(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsolicited = append(f.unsolicited, frame)
}

func (f *fakeEvents) DataReceived(tns uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataReceived = append(f.dataReceived, tns)
}

func newTestClient(events EventHandler) *Client {
	cfg := DefaultConfig()
	return NewClient(cfg, events, nil)
}

func TestHandleFrameGoodChecksumMarksRespondedAndSendsAck(t *testing.T) {
	c := newTestClient(nil)
	payload := BuildPacket(c.Config(), 0x0042, 0x0F, 0xA2, []byte{1, 2})
	checksum := Sum(c.Config().Checksum, payload)

	c.handleFrame(payload, checksum)

	slot := c.table.get(byte(0x42))
	slot.mu.Lock()
	defer slot.mu.Unlock()
	require.True(t, slot.responded)
	require.False(t, slot.checksumError)
	require.Equal(t, byte(ack), c.lastSentResponse)
}

func TestHandleFrameBadChecksumMarksChecksumError(t *testing.T) {
	c := newTestClient(nil)
	payload := BuildPacket(c.Config(), 0x0043, 0x0F, 0xA2, []byte{1, 2})

	c.handleFrame(payload, []byte{0xFF, 0xFF})

	slot := c.table.get(byte(0x43))
	slot.mu.Lock()
	defer slot.mu.Unlock()
	require.True(t, slot.responded)
	require.True(t, slot.checksumError)
	require.Equal(t, byte(nak), c.lastSentResponse)
}

func TestHandleFrameUnsolicitedCommandRaisesEvent(t *testing.T) {
	events := &fakeEvents{}
	c := newTestClient(events)
	// Command byte <= 31 is unsolicited per §4.D.
	payload := BuildPacket(c.Config(), 0x0001, 0x01, 0x00, nil)
	checksum := Sum(c.Config().Checksum, payload)

	c.handleFrame(payload, checksum)

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.unsolicited, 1)
	require.Len(t, events.dataReceived, 0)
}

func TestHandleFrameApplicationCommandRaisesDataReceived(t *testing.T) {
	events := &fakeEvents{}
	c := newTestClient(events)
	payload := BuildPacket(c.Config(), 0x0007, 0x4F, 0x00, nil) // command > 31
	checksum := Sum(c.Config().Checksum, payload)

	c.handleFrame(payload, checksum)

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.dataReceived, 1)
	require.EqualValues(t, 0x07, events.dataReceived[0])
}

func TestOnBareAckNotifiesPendingWaiter(t *testing.T) {
	c := newTestClient(nil)
	notify := make(chan byte, 1)
	c.pendingMu.Lock()
	c.pendingNotify = notify
	c.currentTNS = 5
	c.pendingMu.Unlock()

	c.onBareAck()

	select {
	case b := <-notify:
		require.Equal(t, byte(ack), b)
	default:
		t.Fatal("expected notification on bare ACK")
	}
}

func TestOnBareEnqDoesNotPanicWithoutAnOpenPort(t *testing.T) {
	c := newTestClient(nil)
	c.lastSentResponse = ack
	require.NotPanics(t, func() { c.onBareEnq() })
}

func TestBumpSleepDelayCapsAt400ms(t *testing.T) {
	c := newTestClient(nil)
	for i := 0; i < 20; i++ {
		c.bumpSleepDelay()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Equal(t, maxSleepDelay, c.sleepDelay)
}
