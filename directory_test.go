package df1comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessorFamilyLayoutSLC502(t *testing.T) {
	l := processorFamilyLayout(0x25)
	require.Equal(t, 79, l.descOffset)
	require.Equal(t, 8, l.stride)
}

func TestProcessorFamilyLayoutML1000MatchesSLC502(t *testing.T) {
	l := processorFamilyLayout(0x58)
	require.Equal(t, processorFamilyLayout(0x25), l)
	require.Equal(t, 79, l.descOffset)
	require.Equal(t, 8, l.stride)
}

func TestProcessorFamilyLayoutML1100(t *testing.T) {
	l := processorFamilyLayout(0x7A)
	require.Equal(t, 93, l.descOffset)
	require.Equal(t, 10, l.stride)
}

func TestProcessorFamilyLayoutDefaultsToSLC503(t *testing.T) {
	l := processorFamilyLayout(0x99)
	require.Equal(t, 103, l.descOffset)
	require.Equal(t, 8, l.stride)
}

func TestProgramFileGroupRanges(t *testing.T) {
	cases := []struct {
		code  byte
		group int
	}{
		{0x45, 0}, // system
		{0x25, 1}, // ladder
		{0x65, 2}, // system-ladder
		{0x85, 3}, // data
		{0xA5, 4}, // force
		{0xC5, 5}, // unknown1
		{0xE5, 6}, // unknown2
	}
	for _, c := range cases {
		got, ok := programFileGroup(c.code)
		require.True(t, ok, "code %x", c.code)
		require.Equal(t, c.group, got, "code %x", c.code)
	}
}

func TestProgramFileGroupRejectsDirectoryRangeCodes(t *testing.T) {
	_, ok := programFileGroup(0x00)
	require.False(t, ok)
}

func TestFileTypeTagsCoverDualCodedLetters(t *testing.T) {
	require.Equal(t, "O", fileTypeTags[0x82])
	require.Equal(t, "O", fileTypeTags[0x8B])
	require.Equal(t, "I", fileTypeTags[0x83])
	require.Equal(t, "I", fileTypeTags[0x8C])
}

func TestBytesPerElementForTag(t *testing.T) {
	require.Equal(t, 4, bytesPerElementForTag("F"))
	require.Equal(t, 84, bytesPerElementForTag("ST"))
	require.Equal(t, 2, bytesPerElementForTag("Undefined"))
}
