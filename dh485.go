package df1comm

import "sync"

// DH485 control-byte semantics carried in byte 1 of the 6-byte header
// BuildPacket writes (§4.D "DH485 token-passing multi-drop variant"). A
// pure token pass (no payload) carries a zero low nibble; a data-bearing
// frame carries low nibble 0x8, which is what BuildPacket always emits
// since this client only ever originates data frames, never bare token
// passes.
const (
	dh485ControlTokenPass byte = 0x00
	dh485ControlPeerAck   byte = 0x18
	dh485ControlDataMask  byte = 0x08
)

// dh485State is the token-passing overlay §4.D describes: a single-slot
// outbound queue (only one frame may be waiting for the token at a time)
// plus the bookkeeping needed to recognize a bare token-pass header before
// the generic checksum/TNS dispatch in Client.handleFrame runs.
type dh485State struct {
	mu      sync.Mutex
	queued  []byte // the one frame currently waiting for our turn to send, if any
	haveTok bool
}

func newDH485State() *dh485State {
	return &dh485State{}
}

// enqueue stores frame as the single outstanding send, replacing whatever
// was queued before (§4.D: "single-slot outbound queue").
func (d *dh485State) enqueue(frame []byte) {
	d.mu.Lock()
	d.queued = frame
	d.mu.Unlock()
}

// dequeue returns and clears the queued frame, if any.
func (d *dh485State) dequeue() ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.queued
	d.queued = nil
	return f, f != nil
}

// handleFrame inspects a decoded DH485 payload's control byte (header
// offset 1) before the generic dispatch runs. It reports true when it
// fully handled the frame itself (a bare token pass or a peer ACK, neither
// carrying a PCCC command), so Client.handleFrame should not also treat it
// as a reply or an unsolicited command.
func (d *dh485State) handleFrame(c *Client, payload []byte) bool {
	if len(payload) < 2 {
		return false
	}
	control := payload[1]
	switch {
	case control == dh485ControlTokenPass:
		d.mu.Lock()
		d.haveTok = true
		d.mu.Unlock()
		if frame, ok := d.dequeue(); ok {
			c.mu.Lock()
			port, checksum := c.port, c.cfg.Checksum
			c.mu.Unlock()
			if port != nil {
				_, _ = port.Write(EncodeFrame(checksum, frame))
			}
		}
		return true
	case control == dh485ControlPeerAck:
		return true // peer's own ACK echo, nothing for us to do
	case control&dh485ControlDataMask != 0:
		return false // data-bearing frame: let the generic path validate and dispatch it
	}
	return false
}
