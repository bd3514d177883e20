package df1comm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func decodeOneFrame(t require.TestingT, kind ChecksumKind, wire []byte) *FrameEvent {
	d := NewFrameDecoder(ProtocolDF1, kind, 0)
	var got *FrameEvent
	for _, b := range wire {
		if ev := d.Feed(b); ev != nil {
			got = ev
		}
	}
	require.NotNil(t, got)
	return got
}

func TestFrameRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 0, 128).Draw(t, "payload")
		kind := ChecksumBCC
		if rapid.Bool().Draw(t, "crc") {
			kind = ChecksumCRC
		}

		wire := EncodeFrame(kind, payload)
		ev := decodeOneFrame(t, kind, wire)

		require.Equal(t, eventFrame, ev.Kind)
		require.Equal(t, payload, ev.Payload)
		require.Equal(t, Sum(kind, payload), ev.Checksum)
	})
}

func TestFrameRoundTripContainsNoUnescapedDLE(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 1, 128).Draw(t, "payload")
		kind := ChecksumBCC
		wire := EncodeFrame(kind, payload)

		// Every DLE in the middle of the frame (excluding the framing
		// DLE/STX prefix and DLE/ETX suffix) must be part of a doubled
		// pair.
		body := wire[2 : len(wire)-2-len(Sum(kind, payload))]
		for i := 0; i < len(body); i++ {
			if body[i] != dle {
				continue
			}
			require.True(t, i+1 < len(body) && body[i+1] == dle, "unescaped DLE at %d", i)
			i++
		}
	})
}

func TestFrameDecoderRestartsOnNestedSTX(t *testing.T) {
	d := NewFrameDecoder(ProtocolDF1, ChecksumBCC, 0)
	wire1 := []byte{dle, stx, 0x01, 0x02}
	for _, b := range wire1 {
		require.Nil(t, d.Feed(b))
	}
	wire2 := EncodeFrame(ChecksumBCC, []byte{0xAA, 0xBB})
	var ev *FrameEvent
	for _, b := range wire2 {
		if e := d.Feed(b); e != nil {
			ev = e
		}
	}
	require.NotNil(t, ev)
	require.Equal(t, []byte{0xAA, 0xBB}, ev.Payload)
}

func TestFrameDecoderBareControlOctets(t *testing.T) {
	for _, c := range []byte{ack, nak, enq} {
		d := NewFrameDecoder(ProtocolDF1, ChecksumBCC, 0)
		ev := d.Feed(dle)
		require.Nil(t, ev)
		ev = d.Feed(c)
		require.NotNil(t, ev)
		require.Equal(t, eventControl, ev.Kind)
		require.Equal(t, c, ev.Control)
	}
}

func TestFrameDecoderDH485DropsUnaddressedFrame(t *testing.T) {
	d := NewFrameDecoder(ProtocolDH485, ChecksumBCC, 2)
	payload := []byte{0x99, 0x00, 0x00} // first byte != 2|0x80
	wire := EncodeFrame(ChecksumBCC, payload)
	for _, b := range wire {
		require.Nil(t, d.Feed(b))
	}
}

func TestFrameDecoderDH485AcceptsAddressedFrame(t *testing.T) {
	d := NewFrameDecoder(ProtocolDH485, ChecksumBCC, 2)
	payload := []byte{0x82, 0x00, 0x00}
	wire := EncodeFrame(ChecksumBCC, payload)
	var ev *FrameEvent
	for _, b := range wire {
		if e := d.Feed(b); e != nil {
			ev = e
		}
	}
	require.NotNil(t, ev)
	require.Equal(t, payload, ev.Payload)
}
