package df1comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildExecuteCommandListLayout(t *testing.T) {
	req := buildExecuteCommandList([]byte{0x01, 0x02, 0x03, 0x04})
	require.Equal(t, byte(7), req[0])
	require.Equal(t, byte(0x00), req[1])
	require.Equal(t, byte(0x63), req[2])
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, req[4:8])
	require.Equal(t, []byte{0x01, 0x56}, req[8:])
}

func TestSizeColumnWidthByFamily(t *testing.T) {
	require.False(t, sizeColumnIsWide(0x25)) // SLC 5/02
	require.False(t, sizeColumnIsWide(0x58)) // ML1000
	require.True(t, sizeColumnIsWide(0x99))  // SLC 5/03+
}

func TestSetModeFunctionByFamily(t *testing.T) {
	c := NewClient(DefaultConfig(), nil, nil)
	// Neither call reaches the wire since there's no open port; this only
	// exercises the function-selection branch via the returned link error.
	err := c.SetMode(0x58, true)
	require.Error(t, err)
	err = c.SetMode(0x99, true)
	require.Error(t, err)
}
