package df1comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUploadWithoutOpenPortReturnsOpenFailed(t *testing.T) {
	c := NewClient(DefaultConfig(), nil, nil)
	// No port configured, so the directory-length read can never reach the
	// wire; this only exercises Upload's precondition plumbing.
	files, err := c.Upload(0x25)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrOpenFailed)
	require.Nil(t, files)
}

func TestProgramFileGroupSeparatesLadderAndData(t *testing.T) {
	// Upload assigns file numbers from one counter per group, so a ladder
	// entry and a data entry must classify into different groups.
	ladderGroup, ok := programFileGroup(0x25)
	require.True(t, ok)
	dataGroup, ok := programFileGroup(0x85)
	require.True(t, ok)
	require.NotEqual(t, ladderGroup, dataGroup)
}
