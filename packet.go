package df1comm

import (
	"math/rand"
	"sync"
)

// PCCC command byte offsets within a built packet's payload (§4.D, §4.E,
// §4.F). DH485 carries a 6-byte header ahead of the command byte where DF1
// carries 2, so every DH485 offset is four bytes further in.
const (
	dh485HeaderLen = 6 // target|0x80, 0x88, source|0x80, 0x01, 0x01, payload_len

	dstOffsetDF1   = 0
	srcOffsetDF1   = 1
	cmdOffsetDF1   = 2
	stsOffsetDF1   = 3
	tnsLoOffsetDF1 = 4
	tnsHiOffsetDF1 = 5
	funcOffsetDF1  = 6
	dataOffsetDF1  = 7

	cmdOffsetDH485   = dh485HeaderLen + 0
	stsOffsetDH485   = dh485HeaderLen + 1
	tnsLoOffsetDH485 = dh485HeaderLen + 2
	tnsHiOffsetDH485 = dh485HeaderLen + 3
	funcOffsetDH485  = dh485HeaderLen + 4
	dataOffsetDH485  = dh485HeaderLen + 5
)

func stsOffset(protocol Protocol) int {
	if protocol == ProtocolDH485 {
		return stsOffsetDH485
	}
	return stsOffsetDF1
}

func tnsLoOffset(protocol Protocol) int {
	if protocol == ProtocolDH485 {
		return tnsLoOffsetDH485
	}
	return tnsLoOffsetDF1
}

func cmdOffset(protocol Protocol) int {
	if protocol == ProtocolDH485 {
		return cmdOffsetDH485
	}
	return cmdOffsetDF1
}

func dataOffset(protocol Protocol) int {
	if protocol == ProtocolDH485 {
		return dataOffsetDH485
	}
	return dataOffsetDF1
}

// tnsAllocator is the per-link TNS sequence of spec.md §3: a 16-bit counter
// seeded from a random value in [1,128], incremented before every outbound
// command, wrapping from 65535 to 1 (0 is never emitted).
type tnsAllocator struct {
	mu    sync.Mutex
	value uint16
}

func newTNSAllocator(rnd *rand.Rand) *tnsAllocator {
	return &tnsAllocator{value: uint16(rnd.Intn(128) + 1)}
}

// next increments the sequence and returns the new TNS. The low byte of the
// return value is the transaction table slot index.
func (a *tnsAllocator) next() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.value == 65535 {
		a.value = 1
	} else {
		a.value++
	}
	return a.value
}

// BuildPacket composes a PCCC command/function packet addressed per cfg,
// carrying the given TNS, command, function and data (§4.F). The status
// byte is always sent as 0; it is only meaningful in replies.
func BuildPacket(cfg Config, tns uint16, command, function byte, data []byte) []byte {
	lo := byte(tns)
	hi := byte(tns >> 8)

	if cfg.Protocol == ProtocolDH485 {
		payloadLen := byte(5 + len(data)) // command,status,tns_lo,tns_hi,function + data
		out := make([]byte, 0, dh485HeaderLen+5+len(data))
		out = append(out,
			cfg.TargetNode|0x80,
			0x88,
			cfg.MyNode|0x80,
			0x01,
			0x01,
			payloadLen,
			command, 0, lo, hi, function,
		)
		return append(out, data...)
	}

	out := make([]byte, 0, 7+len(data))
	out = append(out, cfg.TargetNode, cfg.MyNode, command, 0, lo, hi, function)
	return append(out, data...)
}

// BuildUnsolicitedReply builds the frame the link layer echoes back when the
// peer sends an unsolicited command (§4.D): same TNS, command OR'd with
// 0x40, no data.
func BuildUnsolicitedReply(cfg Config, frame []byte, command byte) []byte {
	tnsLo := tnsLoOffset(cfg.Protocol)
	tns := uint16(0)
	if tnsLo+1 < len(frame) {
		tns = uint16(frame[tnsLo]) | uint16(frame[tnsLo+1])<<8
	} else if tnsLo < len(frame) {
		tns = uint16(frame[tnsLo])
	}
	return BuildPacket(cfg, tns, command|0x40, 0, nil)
}
