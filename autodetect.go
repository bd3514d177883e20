package df1comm

import "time"

var autoDetectBauds = []int{38400, 19200, 9600}
var autoDetectParities = []Parity{ParityNone, ParityEven}
var autoDetectChecksums = []ChecksumKind{ChecksumCRC, ChecksumBCC}

// DetectCommSettings sweeps baud x parity x checksum, closing and
// reopening the port for each combination, emitting a bare ENQ and waiting
// up to MaxTicksProbe ticks for any reply (§4.J: "success is any reply
// (indicates both sides agree on framing and checksum)"). On success the
// winning combination is left as the client's active configuration and
// CodeSuccess (0) is returned. If every combination is exhausted without a
// reply, CodeNoResponse (-3) is returned and the client reverts to the
// combination it started with. A port-open failure aborts the sweep
// immediately with CodeOpenFailed (-6).
func (c *Client) DetectCommSettings() Code {
	original := c.Config()
	c.setProbeMode(true)
	defer c.setProbeMode(false)

	for _, baud := range autoDetectBauds {
		for _, parity := range autoDetectParities {
			for _, checksum := range autoDetectChecksums {
				c.events.AutoDetectTry(baud, parity, checksum)

				trial := original
				trial.Baud = baud
				trial.Parity = parity
				trial.Checksum = checksum
				_ = c.Close()
				if err := c.Reconfigure(trial); err != nil {
					return CodeOpenFailed
				}
				if err := c.Open(); err != nil {
					return CodeOpenFailed
				}

				if c.probeENQ() {
					return CodeSuccess
				}
			}
		}
	}

	_ = c.Reconfigure(original)
	return CodeNoResponse
}

// probeENQ sends a bare ENQ and waits up to MaxTicksProbe ticks for any
// control-octet reply.
func (c *Client) probeENQ() bool {
	notify := make(chan byte, 1)
	c.pendingMu.Lock()
	c.pendingNotify = notify
	c.pendingMu.Unlock()
	defer c.clearPending()

	c.sendControl(enq)
	select {
	case <-notify:
		return true
	case <-time.After(time.Duration(MaxTicksProbe) * tickDuration):
		return false
	}
}
