package df1comm

import "strings"

// noBit is the "no bit addressed" sentinel (§3).
const noBit = 99

// fileTypeInfo is one row of the file-type registry (§6): the PCCC file-type
// code and the element size in bytes.
type fileTypeInfo struct {
	code            byte
	bytesPerElement int
}

// fileTypeLetters maps a one- or two-letter address token to its file-type
// registry entry. Where §6 lists two codes for a letter (e.g. O is
// 0x82/0x8B) the first is canonical for addresses we build ourselves; both
// are recognized on the decode side in directory.go.
var fileTypeLetters = map[string]fileTypeInfo{
	"O":   {0x82, 2},
	"I":   {0x83, 2},
	"S":   {0x84, 2},
	"B":   {0x85, 2},
	"T":   {0x86, 6},
	"C":   {0x87, 6},
	"R":   {0x88, 6},
	"N":   {0x89, 2},
	"F":   {0x8A, 4},
	"ST":  {0x8D, 84},
	"A":   {0x8E, 2},
	"L":   {0x91, 4},
	"MG":  {0x92, 50},
	"PD":  {0x93, 46},
	"PLS": {0x94, 12},
}

// timerCounterMnemonics maps the named sub-elements of T and C files to
// their numeric sub-element index (§4.G form 3).
var timerCounterMnemonics = map[string]int{
	"ACC": 2,
	"PRE": 1,
	"EN":  15,
	"CU":  15,
	"TT":  14,
	"CD":  14,
	"DN":  13,
	"OV":  12,
	"UN":  11,
	"UA":  10,
}

// defaultFileNumbers covers form 4's file-number-less letters (I, O, S).
var defaultFileNumbers = map[string]int{"I": 1, "O": 0, "S": 2}

// ParsedAddress is the structured record produced by ParseAddress (§3).
// FileType == 0 means the address was invalid.
type ParsedAddress struct {
	FileType        byte
	FileNumber      int
	Element         int
	SubElement      int
	Bit             int
	BytesPerElement int
}

// Valid reports whether the address parsed successfully.
func (a ParsedAddress) Valid() bool { return a.FileType != 0 }

// HasBit reports whether a specific bit (not a whole element) was addressed.
func (a ParsedAddress) HasBit() bool { return a.Bit != noBit }

func isAlpha(b byte) bool { return b >= 'A' && b <= 'Z' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// parseInt reads the leading run of digits in s, returning the value, how
// many bytes it consumed, and whether any digit was found at all.
func parseInt(s string) (value, consumed int, ok bool) {
	for consumed < len(s) && isDigit(s[consumed]) {
		value = value*10 + int(s[consumed]-'0')
		consumed++
	}
	return value, consumed, consumed > 0
}

// ParseAddress translates a textual PCCC address — `N7:0`, `B3/16`,
// `T4:5.ACC`, `I:2.1/3`, `ST9:0`, and so on — into a ParsedAddress,
// following the four forms of §4.G. Invalid input returns a ParsedAddress
// with FileType == 0 and Bit == noBit, never a Go error: callers check
// Valid() the way the source checks file_type != 0.
func ParseAddress(s string) ParsedAddress {
	invalid := ParsedAddress{Bit: noBit}

	str := strings.ToUpper(strings.TrimSpace(s))
	i := 0
	for i < len(str) && isAlpha(str[i]) {
		i++
	}
	if i == 0 {
		return invalid
	}
	letters := str[:i]
	rest := str[i:]

	info, ok := fileTypeLetters[letters]
	if !ok {
		return invalid
	}

	addr := ParsedAddress{FileType: info.code, BytesPerElement: info.bytesPerElement, Bit: noBit}

	pos := 0
	fileNum, n, fileGiven := parseInt(rest)
	pos += n
	if !fileGiven {
		def, hasDefault := defaultFileNumbers[letters]
		if !hasDefault {
			return invalid
		}
		fileNum = def
	}
	addr.FileNumber = fileNum

	if pos >= len(rest) {
		return invalid
	}

	switch rest[pos] {
	case ':':
		return parseElementForm(addr, letters, rest[pos+1:])
	case '/':
		if letters != "B" && letters != "N" {
			return invalid
		}
		bitVal, n, ok := parseInt(rest[pos+1:])
		if !ok || pos+1+n != len(rest) {
			return invalid
		}
		addr.Element = bitVal >> 4
		addr.Bit = bitVal % 16
		return addr
	default:
		return invalid
	}
}

// parseElementForm parses the `<elem>[.<sub-or-mnemonic>][/<bit>]` tail
// shared by address forms 1, 3, and 4.
func parseElementForm(addr ParsedAddress, letters, tail string) ParsedAddress {
	invalid := ParsedAddress{Bit: noBit}

	elem, n, ok := parseInt(tail)
	if !ok {
		return invalid
	}
	pos := n
	addr.Element = elem

	if pos < len(tail) && tail[pos] == '.' {
		pos++
		if pos < len(tail) && isDigit(tail[pos]) {
			sub, n2, ok := parseInt(tail[pos:])
			if !ok {
				return invalid
			}
			pos += n2
			addr.SubElement = sub
		} else {
			start := pos
			for pos < len(tail) && isAlpha(tail[pos]) {
				pos++
			}
			mnemonic := tail[start:pos]
			if letters != "T" && letters != "C" {
				return invalid
			}
			sub, ok := timerCounterMnemonics[mnemonic]
			if !ok {
				return invalid
			}
			addr.SubElement = sub
		}
	}

	if pos < len(tail) && tail[pos] == '/' {
		pos++
		bit, n3, ok := parseInt(tail[pos:])
		if !ok || bit < 0 || bit > 15 {
			return invalid
		}
		pos += n3
		addr.Bit = bit
	}

	if pos != len(tail) {
		return invalid
	}
	return addr
}
