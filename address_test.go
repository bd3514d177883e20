package df1comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddressLiterals(t *testing.T) {
	cases := []struct {
		in   string
		want ParsedAddress
	}{
		{"N7:0", ParsedAddress{FileType: 0x89, FileNumber: 7, Element: 0, SubElement: 0, Bit: noBit, BytesPerElement: 2}},
		{"B3/16", ParsedAddress{FileType: 0x85, FileNumber: 3, Element: 1, Bit: 0, BytesPerElement: 2}},
		{"T4:5.ACC", ParsedAddress{FileType: 0x86, FileNumber: 4, Element: 5, SubElement: 2, Bit: noBit, BytesPerElement: 6}},
		{"I:2.1/3", ParsedAddress{FileType: 0x83, FileNumber: 1, Element: 2, SubElement: 1, Bit: 3, BytesPerElement: 2}},
		{"ST9:0", ParsedAddress{FileType: 0x8D, FileNumber: 9, Element: 0, Bit: noBit, BytesPerElement: 84}},
	}
	for _, c := range cases {
		got := ParseAddress(c.in)
		require.Equal(t, c.want, got, "parsing %q", c.in)
	}
}

func TestParseAddressGarbageIsInvalid(t *testing.T) {
	got := ParseAddress("garbage")
	require.False(t, got.Valid())
	require.Equal(t, byte(0), got.FileType)
}

func TestParseAddressCaseInsensitive(t *testing.T) {
	require.Equal(t, ParseAddress("n7:0"), ParseAddress("N7:0"))
}

func TestParseAddressBitWriteTarget(t *testing.T) {
	got := ParseAddress("B3:5/4")
	require.True(t, got.Valid())
	require.Equal(t, 5, got.Element)
	require.Equal(t, 4, got.Bit)
}

func TestParseAddressRejectsOutOfRangeBit(t *testing.T) {
	got := ParseAddress("N7:0/16")
	require.False(t, got.Valid())
}

func TestParseAddressRejectsMnemonicOnNonTimerCounter(t *testing.T) {
	got := ParseAddress("N7:0.ACC")
	require.False(t, got.Valid())
}
