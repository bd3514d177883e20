package df1comm

// Wire-level control octets (§6). These are never escaped and never appear
// inside a framed payload.
const (
	dle byte = 0x10
	stx byte = 0x02
	etx byte = 0x03
	ack byte = 0x06
	nak byte = 0x15
	enq byte = 0x05
)

// EncodeFrame builds the wire form of a DF1/DH485 frame: DLE STX, the
// payload with every literal DLE doubled, DLE ETX, and the trailing
// checksum in its raw (unescaped) form (§4.B).
func EncodeFrame(kind ChecksumKind, payload []byte) []byte {
	out := make([]byte, 0, len(payload)*2+6)
	out = append(out, dle, stx)
	for _, b := range payload {
		out = append(out, b)
		if b == dle {
			out = append(out, dle)
		}
	}
	out = append(out, dle, etx)
	out = append(out, Sum(kind, payload)...)
	return out
}

// frameEventKind distinguishes what a decoder Feed call surfaced.
type frameEventKind int

const (
	eventNone frameEventKind = iota
	eventControl
	eventFrame
)

// FrameEvent is what FrameDecoder.Feed returns when a byte completes a bare
// control octet or a whole frame.
type FrameEvent struct {
	Kind     frameEventKind
	Control  byte   // valid when Kind == eventControl: ack, nak, or enq
	Payload  []byte // valid when Kind == eventFrame: the body between STX and ETX, DLE-collapsed
	Checksum []byte // valid when Kind == eventFrame: the raw trailing checksum bytes
}

// FrameDecoder is the byte-fed state machine of §4.B / §3's "Link-layer
// receiver state": it tracks whether a frame has started, whether ETX has
// been seen, and whether the first payload byte has passed the per-node
// address check, across successive calls to Feed.
type FrameDecoder struct {
	protocol Protocol
	checksum ChecksumKind
	myNode   byte

	sawDLE      bool
	started     bool
	ended       bool
	nodeChecked bool
	etxPosition int

	buf      []byte
	checkBuf []byte
}

// NewFrameDecoder creates a decoder bound to one link's protocol, checksum
// kind, and node id (node id only matters for DH485's addressing check).
func NewFrameDecoder(protocol Protocol, checksum ChecksumKind, myNode byte) *FrameDecoder {
	return &FrameDecoder{protocol: protocol, checksum: checksum, myNode: myNode}
}

func (d *FrameDecoder) checksumLen() int {
	if d.checksum == ChecksumCRC {
		return 2
	}
	return 1
}

func (d *FrameDecoder) beginFrame() {
	d.started = true
	d.ended = false
	d.nodeChecked = false
	d.etxPosition = 0
	d.buf = d.buf[:0]
	d.checkBuf = d.checkBuf[:0]
}

func (d *FrameDecoder) abort() {
	d.started = false
	d.ended = false
	d.nodeChecked = false
	d.buf = d.buf[:0]
	d.checkBuf = d.checkBuf[:0]
}

// nodeAddressed implements the DH485 "byte == my_node + 0x80" check; DF1
// accepts every frame regardless of its first payload byte.
func (d *FrameDecoder) nodeAddressed(first byte) bool {
	if d.protocol != ProtocolDH485 {
		return true
	}
	return first == d.myNode+0x80
}

// Feed advances the state machine by one byte. It returns nil unless this
// byte completed a bare control octet or an entire checked-in frame.
func (d *FrameDecoder) Feed(b byte) *FrameEvent {
	if d.started && d.ended {
		return d.feedChecksum(b)
	}
	if d.sawDLE {
		d.sawDLE = false
		return d.feedEscaped(b)
	}
	if b == dle {
		d.sawDLE = true
		return nil
	}
	return d.feedPlain(b)
}

func (d *FrameDecoder) feedChecksum(b byte) *FrameEvent {
	d.checkBuf = append(d.checkBuf, b)
	if len(d.checkBuf) < d.checksumLen() {
		return nil
	}
	payload := append([]byte(nil), d.buf...)
	checksum := append([]byte(nil), d.checkBuf...)
	d.abort()
	return &FrameEvent{Kind: eventFrame, Payload: payload, Checksum: checksum}
}

func (d *FrameDecoder) feedEscaped(b byte) *FrameEvent {
	if !d.started {
		switch b {
		case stx:
			d.beginFrame()
		case ack, nak, enq:
			return &FrameEvent{Kind: eventControl, Control: b}
		}
		return nil
	}
	switch b {
	case stx:
		// A DLE/STX inside an in-progress frame restarts the frame (§3).
		d.beginFrame()
		return nil
	case etx:
		d.ended = true
		d.etxPosition = len(d.buf)
		return nil
	case ack, nak, enq:
		return &FrameEvent{Kind: eventControl, Control: b}
	case dle:
		// A doubled DLE collapses to one literal 0x10 in the buffer.
		return d.feedPlain(dle)
	default:
		return d.feedPlain(b)
	}
}

func (d *FrameDecoder) feedPlain(b byte) *FrameEvent {
	if !d.started {
		return nil
	}
	d.buf = append(d.buf, b)
	if !d.nodeChecked {
		d.nodeChecked = true
		if !d.nodeAddressed(b) {
			d.abort()
		}
	}
	return nil
}
