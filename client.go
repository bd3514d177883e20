package df1comm

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robertlarue/DF1Comm/serial"
)

// Link-layer constants (§3, §4.D, §5).
const (
	MaxSendRetries  = 2
	MaxTicksDefault = 100 // 100 * 20ms = 2s
	MaxTicksProbe   = 3   // lowered during auto-detect (§4.J)
	maxSleepDelay   = 400 * time.Millisecond
)

// EventHandler receives the notifications spec.md's Design Notes describe as
// "Event callbacks on I/O": DataReceived, UnsolicitedMessageReceived,
// AutoDetectTry, UploadProgress, DownloadProgress. A nil handler is replaced
// with NopEvents.
type EventHandler interface {
	DataReceived(tns uint16)
	UnsolicitedMessageReceived(frame []byte)
	AutoDetectTry(baud int, parity Parity, checksum ChecksumKind)
	UploadProgress(fileIndex, fileCount int)
	DownloadProgress(fileIndex, fileCount int)
}

// NopEvents is the zero-value EventHandler: every callback is a no-op.
type NopEvents struct{}

func (NopEvents) DataReceived(uint16)                     {}
func (NopEvents) UnsolicitedMessageReceived([]byte)       {}
func (NopEvents) AutoDetectTry(int, Parity, ChecksumKind) {}
func (NopEvents) UploadProgress(int, int)                {}
func (NopEvents) DownloadProgress(int, int)               {}

// Client is one DF1/DH485 link instance: the transport, the framing
// decoder, the transaction table, and the handshake state the Design Notes
// say should be scoped per-link rather than process-wide.
type Client struct {
	mu  sync.Mutex
	cfg Config
	log *log.Logger

	port    *serial.Port
	decoder *FrameDecoder
	table   *transactionTable
	tns     *tnsAllocator
	events  EventHandler

	pendingMu     sync.Mutex
	pendingNotify chan byte
	currentTNS    uint16

	lastSentResponse byte
	sleepDelay       time.Duration
	probeMode        bool

	processorType     byte
	haveProcessorType bool

	dh485 *dh485State

	readerDone chan struct{}
}

// NewClient builds a Client for cfg. events and logger may be nil.
func NewClient(cfg Config, events EventHandler, logger *log.Logger) *Client {
	if events == nil {
		events = NopEvents{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Client{
		cfg:              cfg,
		log:              logger,
		table:            newTransactionTable(),
		tns:              newTNSAllocator(rand.New(rand.NewSource(int64(time.Now().UnixNano())))), //nolint:gosec
		events:           events,
		lastSentResponse: ack,
	}
	c.decoder = NewFrameDecoder(cfg.Protocol, cfg.Checksum, cfg.MyNode)
	if cfg.Protocol == ProtocolDH485 {
		c.dh485 = newDH485State()
	}
	return c
}

// Config returns the client's current configuration.
func (c *Client) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Reconfigure applies a new configuration, closing the port first if any of
// port/baud/parity changed (§3, §5: "closing is explicit and also triggered
// by changes to baud/parity/port").
func (c *Client) Reconfigure(cfg Config) error {
	c.mu.Lock()
	changed := cfg.Port != c.cfg.Port || cfg.Baud != c.cfg.Baud || cfg.Parity != c.cfg.Parity
	c.mu.Unlock()
	if changed {
		if err := c.Close(); err != nil && err != serial.ErrClosed {
			return err
		}
	}
	c.mu.Lock()
	c.cfg = cfg
	c.decoder = NewFrameDecoder(cfg.Protocol, cfg.Checksum, cfg.MyNode)
	if cfg.Protocol == ProtocolDH485 {
		c.dh485 = newDH485State()
	} else {
		c.dh485 = nil
	}
	c.mu.Unlock()
	return nil
}

// Open opens the serial port if it isn't already and starts the background
// reader. Open is also called lazily by the first send (§5 "Opening is
// lazy").
func (c *Client) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openLocked()
}

func (c *Client) openLocked() error {
	if c.port != nil {
		return nil
	}
	port, err := serial.OpenDF1(c.cfg.Port, c.cfg.Baud, c.cfg.Parity)
	if err != nil {
		return &LinkError{Code: CodeOpenFailed}
	}
	c.port = port
	c.readerDone = make(chan struct{})
	go c.readLoop(c.readerDone, port)
	return nil
}

func (c *Client) readLoop(done chan struct{}, port *serial.Port) {
	defer close(done)
	serial.ReadLoop(port, func(data []byte) bool {
		c.mu.Lock()
		stillCurrent := c.port == port
		c.mu.Unlock()
		if !stillCurrent {
			return false
		}
		for _, b := range data {
			if ev := c.decoder.Feed(b); ev != nil {
				c.dispatch(ev)
			}
		}
		return true
	})
}

// Close closes the port, if open, and lets any in-flight waiters time out
// normally (§5: "On close, any pending waiters time out normally").
func (c *Client) Close() error {
	c.mu.Lock()
	port := c.port
	c.port = nil
	c.mu.Unlock()
	if port == nil {
		return nil
	}
	return port.Close()
}

// currentMaxTicks returns the wait budget in 20ms ticks: MaxTicksDefault
// normally, MaxTicksProbe during auto-detect (§4.D, §4.J).
func (c *Client) currentMaxTicks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.probeMode {
		return MaxTicksProbe
	}
	return MaxTicksDefault
}

func (c *Client) setProbeMode(v bool) {
	c.mu.Lock()
	c.probeMode = v
	c.mu.Unlock()
}

// sendControl writes a bare DLE + control byte (ACK, NAK, or ENQ).
func (c *Client) sendControl(b byte) {
	c.mu.Lock()
	port := c.port
	c.mu.Unlock()
	if port == nil {
		return
	}
	_, _ = port.Write([]byte{dle, b})
}

// sendFrame is SendData from §4.D: frame the payload, write it, and wait up
// to MaxSendRetries+1 times for an ACK, retrying on NAK or timeout.
func (c *Client) sendFrame(payload []byte, tns uint16) Code {
	c.mu.Lock()
	if err := c.openLocked(); err != nil {
		c.mu.Unlock()
		return CodeOpenFailed
	}
	port := c.port
	checksum := c.cfg.Checksum
	c.mu.Unlock()

	frame := EncodeFrame(checksum, payload)
	maxTicks := c.currentMaxTicks()
	outcome := CodeNoResponse

	for attempt := 0; attempt <= MaxSendRetries; attempt++ {
		notify := make(chan byte, 1)
		c.pendingMu.Lock()
		c.pendingNotify = notify
		c.currentTNS = tns
		c.pendingMu.Unlock()

		if _, err := port.Write(frame); err != nil {
			c.clearPending()
			return CodeOpenFailed
		}

		select {
		case b := <-notify:
			c.clearPending()
			if b == ack {
				return CodeSuccess
			}
			outcome = CodeNAK
		case <-time.After(time.Duration(maxTicks) * tickDuration):
			c.clearPending()
			outcome = CodeNoResponse
		}
		c.log.Debug("df1comm: send attempt failed, retrying", "attempt", attempt, "outcome", outcome)
	}
	return outcome
}

func (c *Client) clearPending() {
	c.pendingMu.Lock()
	c.pendingNotify = nil
	c.pendingMu.Unlock()
}

// dispatch routes one decoded FrameEvent to the control-octet or
// whole-frame handler.
func (c *Client) dispatch(ev *FrameEvent) {
	switch ev.Kind {
	case eventControl:
		c.handleControl(ev.Control)
	case eventFrame:
		c.handleFrame(ev.Payload, ev.Checksum)
	}
}

func (c *Client) handleControl(b byte) {
	switch b {
	case ack:
		c.onBareAck()
	case nak:
		c.onBareNak()
	case enq:
		c.onBareEnq()
	}
}

func (c *Client) onBareAck() {
	c.pendingMu.Lock()
	notify := c.pendingNotify
	tns := c.currentTNS
	c.pendingMu.Unlock()
	if notify != nil {
		select {
		case notify <- ack:
		default:
		}
	}
	c.table.markAcked(byte(tns))
}

func (c *Client) onBareNak() {
	c.pendingMu.Lock()
	notify := c.pendingNotify
	c.pendingMu.Unlock()
	if notify != nil {
		select {
		case notify <- nak:
		default:
		}
	}
}

func (c *Client) onBareEnq() {
	c.mu.Lock()
	last := c.lastSentResponse
	c.mu.Unlock()
	c.sendControl(last)
}

func (c *Client) bumpSleepDelay() {
	c.mu.Lock()
	c.sleepDelay += 50 * time.Millisecond
	if c.sleepDelay > maxSleepDelay {
		c.sleepDelay = maxSleepDelay
	}
	c.mu.Unlock()
}

func (c *Client) handleFrame(payload, checksum []byte) {
	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()

	if cfg.Protocol == ProtocolDH485 && c.dh485.handleFrame(c, payload) {
		return
	}

	computed := Sum(cfg.Checksum, payload)
	if !bytes.Equal(computed, checksum) {
		c.sendControl(nak)
		c.mu.Lock()
		c.lastSentResponse = nak
		c.mu.Unlock()
		c.table.markResponded(extractTNSLo(cfg.Protocol, payload), payload, true)
		c.bumpSleepDelay()
		return
	}

	tnsLo := extractTNSLo(cfg.Protocol, payload)
	cmdIdx := cmdOffset(cfg.Protocol)
	var cmd byte
	if cmdIdx < len(payload) {
		cmd = payload[cmdIdx]
	}

	c.table.markResponded(tnsLo, payload, false)
	if cmd > 31 {
		c.events.DataReceived(uint16(tnsLo))
	} else {
		c.handleUnsolicited(payload, cmd)
	}

	c.sendControl(ack)
	c.mu.Lock()
	c.lastSentResponse = ack
	c.mu.Unlock()
}

func (c *Client) handleUnsolicited(payload []byte, cmd byte) {
	c.mu.Lock()
	cfg := c.cfg
	port := c.port
	c.mu.Unlock()

	reply := BuildUnsolicitedReply(cfg, payload, cmd)
	if port != nil {
		_, _ = port.Write(EncodeFrame(cfg.Checksum, reply))
	}
	c.events.UnsolicitedMessageReceived(payload)
}

func extractTNSLo(protocol Protocol, payload []byte) byte {
	idx := tnsLoOffset(protocol)
	if idx < len(payload) {
		return payload[idx]
	}
	return 0
}

// exec is the shared "build packet, send, wait for reply, check status"
// operation every application-layer call (H, I, J) funnels through. It
// retries the whole exchange up to MaxSendRetries times on a link-layer
// failure or a nonzero PCCC status, matching §3's "application layer may
// retry the whole exchange at most 2 times on top" and §7's per-chunk
// retry rule for the typed engine — both collapse to the same loop here.
func (c *Client) exec(command, function byte, data []byte) ([]byte, error) {
	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= MaxSendRetries; attempt++ {
		tns := c.tns.next()
		idx := byte(tns)
		c.table.reset(idx)

		code := c.sendFrame(BuildPacket(cfg, tns, command, function, data), tns)
		if code != CodeSuccess {
			lastErr = linkErr("SendData", code)
			continue
		}
		if cfg.Async {
			return nil, nil
		}

		frame, waitCode := c.table.wait(idx, c.currentMaxTicks())
		if waitCode != CodeSuccess {
			lastErr = linkErr("wait", waitCode)
			continue
		}

		sts := statusFromFrame(frame, stsOffset(cfg.Protocol))
		if sts != 0 {
			lastErr = &StatusError{Code: Code(sts)}
			continue
		}
		return frame, nil
	}
	return nil, lastErr
}

// GetProcessorType issues a PCCC diagnostic-status command and returns the
// processor-family code from byte 9 of the reply (§6). Per the resolved
// Open Question in SPEC_FULL.md, this is an explicit precondition for the
// typed read/write engine rather than an ambient field populated by a
// possibly-missing earlier call.
func (c *Client) GetProcessorType() (byte, error) {
	frame, err := c.exec(0x06, 0x03, nil)
	if err != nil {
		return 0, err
	}
	if len(frame) <= 9 {
		return 0, ErrNoPeerData
	}
	c.mu.Lock()
	c.processorType = frame[9]
	c.haveProcessorType = true
	c.mu.Unlock()
	return frame[9], nil
}

func (c *Client) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("df1comm.Client{port=%s baud=%d protocol=%s}", c.cfg.Port, c.cfg.Baud, c.cfg.Protocol)
}
