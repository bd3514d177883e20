package df1comm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeMessageKnownCodes(t *testing.T) {
	require.Equal(t, "success", DecodeMessage(0))
	require.Equal(t, "NAK received from peer", DecodeMessage(-2))
	require.Equal(t, "response timeout", DecodeMessage(-20))
	require.Equal(t, "host could not complete function due to hardware fault", DecodeMessage(64))
}

func TestDecodeMessageExtendedStatus(t *testing.T) {
	require.Equal(t, "symbol not found", DecodeMessage(0x100+0x04))
}

func TestDecodeMessageUnknownCodeStringifies(t *testing.T) {
	require.Equal(t, "Unknown Message - 999", DecodeMessage(999))
	require.Equal(t, "Unknown Message - 271", DecodeMessage(0x100+0x0F))
}

func TestLinkErrorIsMatchesOnCodeOnly(t *testing.T) {
	err := linkErr("SendData", CodeTimeout)
	require.True(t, errors.Is(err, ErrTimeout))
	require.False(t, errors.Is(err, ErrNAK))
}

func TestLinkErrSuccessReturnsNil(t *testing.T) {
	require.NoError(t, linkErr("SendData", CodeSuccess))
}

func TestStatusFromFrameDF1Offset(t *testing.T) {
	frame := []byte{0x00, 0x01, 0x0F, 0x00, 0x05, 0x00, 0xA2}
	require.Equal(t, 0, statusFromFrame(frame, 3))
}

func TestStatusFromFrameExtendedStatus(t *testing.T) {
	frame := []byte{0x00, 0x01, 0x0F, 0xF0, 0x05, 0x00, 0xA2, 0x04}
	require.Equal(t, 0x100+0x04, statusFromFrame(frame, 3))
}

func TestStatusFromFrameOffsetBeyondFrame(t *testing.T) {
	require.Equal(t, 0, statusFromFrame([]byte{0x00}, 7))
}
