package df1comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTNSNeverEmitsZeroAfterWrap(t *testing.T) {
	a := &tnsAllocator{value: 65535}
	require.EqualValues(t, 1, a.next())
	require.EqualValues(t, 2, a.next())
}

func TestBuildPacketDF1Offsets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MyNode = 0
	cfg.TargetNode = 1
	p := BuildPacket(cfg, 0x1234, 0x0F, 0xA2, []byte{0xDE, 0xAD})
	require.Equal(t, byte(1), p[dstOffsetDF1])
	require.Equal(t, byte(0), p[srcOffsetDF1])
	require.Equal(t, byte(0x0F), p[cmdOffsetDF1])
	require.Equal(t, byte(0), p[stsOffsetDF1])
	require.Equal(t, byte(0x34), p[tnsLoOffsetDF1])
	require.Equal(t, byte(0x12), p[tnsHiOffsetDF1])
	require.Equal(t, byte(0xA2), p[funcOffsetDF1])
	require.Equal(t, []byte{0xDE, 0xAD}, p[dataOffsetDF1:])
}

func TestBuildPacketDH485Offsets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Protocol = ProtocolDH485
	cfg.MyNode = 3
	cfg.TargetNode = 5
	p := BuildPacket(cfg, 0x0001, 0x0F, 0xA2, []byte{0x01})

	require.Equal(t, byte(5|0x80), p[0])
	require.Equal(t, byte(0x88), p[1])
	require.Equal(t, byte(3|0x80), p[2])
	require.Equal(t, byte(0x0F), p[cmdOffsetDH485])
	require.Equal(t, byte(0), p[stsOffsetDH485])
	require.Equal(t, byte(1), p[tnsLoOffsetDH485])
	require.Equal(t, byte(0), p[tnsHiOffsetDH485])
	require.Equal(t, byte(0xA2), p[funcOffsetDH485])
	require.Equal(t, []byte{0x01}, p[dataOffsetDH485:])
}

func TestBuildUnsolicitedReplyEchoesTNSAndOrsCommand(t *testing.T) {
	cfg := DefaultConfig()
	original := BuildPacket(cfg, 0x0005, 0x0F, 0xAA, nil)
	reply := BuildUnsolicitedReply(cfg, original, 0x0F)
	require.Equal(t, byte(0x4F), reply[cmdOffsetDF1])
	require.Equal(t, original[tnsLoOffsetDF1], reply[tnsLoOffsetDF1])
	require.Equal(t, original[tnsHiOffsetDF1], reply[tnsHiOffsetDF1])
}
