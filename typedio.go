package df1comm

import (
	"encoding/binary"
	"errors"
	"math"
)

// PCCC functions for the "protected typed logical" read/write commands
// under command 0x0F (§4.H).
const (
	funcReadWholeElement byte = 0xA1
	funcReadSubElement   byte = 0xA2
	funcWriteWholeWord   byte = 0xAA
	funcWriteBitMasked   byte = 0xAB
)

// File-type codes that get their own chunk cap (§4.H).
const (
	fileTypeTimer      = 0x86
	fileTypeCounter    = 0x87
	fileTypeString     = 0x8D
	fileTypeDataMonitor = 0xA4
)

const slc502ProcessorCode = 0x25

// chunkCapRead returns the maximum number of data bytes one read exchange
// may request, per §4.H's table: 236 generally, 168 for ST files (a whole
// number of 84-byte elements), 234 for T/C files (a multiple of 6), 120 for
// the data-monitor file type, all overridden by 80 on an SLC 5/02.
func chunkCapRead(fileType, processorType byte) int {
	if processorType == slc502ProcessorCode {
		return 80
	}
	switch fileType {
	case fileTypeString:
		return 168
	case fileTypeTimer, fileTypeCounter:
		return 234
	case fileTypeDataMonitor:
		return 120
	default:
		return 236
	}
}

// chunkCapWrite returns the maximum number of data bytes one write exchange
// may carry: 164 generally, 120 for file codes at or above 0xA1 (§4.H).
func chunkCapWrite(fileType byte) int {
	if fileType >= 0xA1 {
		return 120
	}
	return 164
}

// buildAddressBlock composes the file-number/file-type/element/sub-element
// portion of a typed read or write request, switching to the extended
// sentinel-0xFF plus little-endian 16-bit form whenever a value reaches 255
// (§4.H: "element 300 emits 0xFF 0x2C 0x01").
func buildAddressBlock(fileNumber int, fileType byte, element, subElement int) []byte {
	out := []byte{byte(fileNumber), fileType}
	out = appendAddressComponent(out, element)
	out = appendAddressComponent(out, subElement)
	return out
}

func appendAddressComponent(out []byte, v int) []byte {
	if v >= 255 {
		return append(out, 0xFF, byte(v), byte(v>>8))
	}
	return append(out, byte(v))
}

func buildReadRequest(addr ParsedAddress, byteSize int) []byte {
	out := []byte{byte(byteSize)}
	return append(out, buildAddressBlock(addr.FileNumber, addr.FileType, addr.Element, addr.SubElement)...)
}

func buildWriteRequest(addr ParsedAddress, data []byte) []byte {
	out := []byte{byte(len(data))}
	out = append(out, buildAddressBlock(addr.FileNumber, addr.FileType, addr.Element, addr.SubElement)...)
	return append(out, data...)
}

// buildBitWriteRequest composes a function-0xAB masked write: the address
// block followed by a little-endian set-mask and a little-endian
// value-mask. Writing true sets value == mask; writing false zeros it
// (§4.H: "B3:5/4 <- 1 emits mask 0x10 0x00, value 0x10 0x00; <- 0 emits the
// same mask, value 0x00 0x00").
func buildBitWriteRequest(addr ParsedAddress, value bool) []byte {
	mask := uint16(1) << uint(addr.Bit)
	var valueMask uint16
	if value {
		valueMask = mask
	}
	out := buildAddressBlock(addr.FileNumber, addr.FileType, addr.Element, addr.SubElement)
	return append(out, byte(mask), byte(mask>>8), byte(valueMask), byte(valueMask>>8))
}

// readRaw drives the chunked read loop described in §4.H: each exchange
// requests as many bytes as the file type's chunk cap allows, and advances
// either the element index (whole-element reads), the raw sub-element word
// offset (single-field reads across a run of elements, e.g. an array of
// timer ACCs), or the data-monitor record index, continuing until the
// requested byte count is satisfied.
func (c *Client) readRaw(processorType byte, addr ParsedAddress, totalBytes int) ([]byte, error) {
	capBytes := chunkCapRead(addr.FileType, processorType)
	element := addr.Element
	subElement := addr.SubElement

	result := make([]byte, 0, totalBytes)
	remaining := totalBytes
	for remaining > 0 {
		chunkBytes := remaining
		if chunkBytes > capBytes {
			chunkBytes = capBytes
		}
		if addr.FileType == fileTypeTimer || addr.FileType == fileTypeCounter {
			if aligned := chunkBytes - chunkBytes%6; aligned > 0 {
				chunkBytes = aligned
			} else {
				chunkBytes = 6
			}
		}

		function := funcReadWholeElement
		if subElement != 0 {
			function = funcReadSubElement
		}
		chunkAddr := ParsedAddress{FileType: addr.FileType, FileNumber: addr.FileNumber, Element: element, SubElement: subElement}
		req := buildReadRequest(chunkAddr, chunkBytes)

		frame, err := c.exec(0x0F, function, req)
		if err != nil {
			return nil, err
		}
		data := frame[dataOffset(c.Config().Protocol):]
		if len(data) < chunkBytes {
			return nil, ErrNoPeerData
		}
		result = append(result, data[:chunkBytes]...)
		remaining -= chunkBytes

		switch {
		case addr.FileType == fileTypeDataMonitor:
			element += chunkBytes / 40
		case subElement != 0:
			subElement += chunkBytes / 2
		default:
			element += chunkBytes / addr.BytesPerElement
		}
	}
	return result, nil
}

// writeRaw mirrors readRaw for whole-word writes.
func (c *Client) writeRaw(addr ParsedAddress, data []byte) error {
	capBytes := chunkCapWrite(addr.FileType)
	element := addr.Element
	subElement := addr.SubElement

	offset := 0
	for offset < len(data) {
		chunkBytes := len(data) - offset
		if chunkBytes > capBytes {
			chunkBytes = capBytes
		}
		chunkAddr := ParsedAddress{FileType: addr.FileType, FileNumber: addr.FileNumber, Element: element, SubElement: subElement}
		req := buildWriteRequest(chunkAddr, data[offset:offset+chunkBytes])
		if _, err := c.exec(0x0F, funcWriteWholeWord, req); err != nil {
			return err
		}
		offset += chunkBytes
		if subElement != 0 {
			subElement += chunkBytes / 2
		} else {
			element += chunkBytes / addr.BytesPerElement
		}
	}
	return nil
}

// ReadInts reads count 16-bit signed words starting at addr (§4.H).
func (c *Client) ReadInts(processorType byte, address string, count int) ([]int16, error) {
	addr := ParseAddress(address)
	if !addr.Valid() {
		return nil, ErrInvalidAddress
	}
	if count <= 0 {
		return nil, ErrEmptyData
	}
	data, err := c.readRaw(processorType, addr, count*2)
	if err != nil {
		return nil, err
	}
	return decodeInt16Slice(data), nil
}

// ReadLongs reads count 32-bit signed words from an L file.
func (c *Client) ReadLongs(processorType byte, address string, count int) ([]int32, error) {
	addr := ParseAddress(address)
	if !addr.Valid() {
		return nil, ErrInvalidAddress
	}
	if count <= 0 {
		return nil, ErrEmptyData
	}
	data, err := c.readRaw(processorType, addr, count*4)
	if err != nil {
		return nil, err
	}
	return decodeInt32Slice(data), nil
}

// ReadFloats reads count IEEE-754 float32 words from an F file.
func (c *Client) ReadFloats(processorType byte, address string, count int) ([]float32, error) {
	addr := ParseAddress(address)
	if !addr.Valid() {
		return nil, ErrInvalidAddress
	}
	if count <= 0 {
		return nil, ErrEmptyData
	}
	data, err := c.readRaw(processorType, addr, count*4)
	if err != nil {
		return nil, err
	}
	return decodeFloat32Slice(data), nil
}

// ReadString reads one ST-file string element.
func (c *Client) ReadString(processorType byte, address string) (string, error) {
	addr := ParseAddress(address)
	if !addr.Valid() || addr.FileType != fileTypeString {
		return "", ErrInvalidAddress
	}
	data, err := c.readRaw(processorType, addr, addr.BytesPerElement)
	if err != nil {
		return "", err
	}
	return decodeString(data), nil
}

// ReadBits reads count individual bits starting at bit_number of addr's
// element, packing successive words' bits in order (§4.H).
func (c *Client) ReadBits(processorType byte, address string, count int) ([]bool, error) {
	addr := ParseAddress(address)
	if !addr.Valid() || !addr.HasBit() {
		return nil, ErrInvalidAddress
	}
	words := (addr.Bit + count + 15) / 16
	if words < 1 {
		words = 1
	}
	data, err := c.readRaw(processorType, addr, words*2)
	if err != nil {
		return nil, err
	}
	return decodeBits(decodeInt16Slice(data), addr.Bit, count), nil
}

// Read dispatches address to the typed reader matching its file type,
// returning the result as one of []int16, []int32, []float32, string, or
// []bool (§4.H's single typed-read entry point).
func (c *Client) Read(processorType byte, address string, count int) (interface{}, error) {
	addr := ParseAddress(address)
	if !addr.Valid() {
		return nil, ErrInvalidAddress
	}
	if addr.HasBit() {
		return c.ReadBits(processorType, address, count)
	}
	switch addr.FileType {
	case 0x8A: // F
		return c.ReadFloats(processorType, address, count)
	case 0x91: // L
		return c.ReadLongs(processorType, address, count)
	case fileTypeString:
		return c.ReadString(processorType, address)
	default:
		return c.ReadInts(processorType, address, count)
	}
}

// WriteInts writes values starting at addr. A single-value write to a
// bit-addressed target (e.g. B3:5/4) is routed to the masked bit-write
// command instead of a whole-word write.
func (c *Client) WriteInts(address string, values []int16) error {
	addr := ParseAddress(address)
	if !addr.Valid() {
		return ErrInvalidAddress
	}
	if len(values) == 0 {
		return ErrEmptyData
	}
	if addr.HasBit() {
		if len(values) != 1 {
			return errors.New("df1comm: a bit-addressed write takes exactly one value")
		}
		return c.WriteBit(address, values[0] != 0)
	}
	buf := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return c.writeRaw(addr, buf)
}

// WriteLongs writes values to an L file.
func (c *Client) WriteLongs(address string, values []int32) error {
	addr := ParseAddress(address)
	if !addr.Valid() {
		return ErrInvalidAddress
	}
	if len(values) == 0 {
		return ErrEmptyData
	}
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return c.writeRaw(addr, buf)
}

// WriteFloats writes values to an F file.
func (c *Client) WriteFloats(address string, values []float32) error {
	addr := ParseAddress(address)
	if !addr.Valid() {
		return ErrInvalidAddress
	}
	if len(values) == 0 {
		return ErrEmptyData
	}
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return c.writeRaw(addr, buf)
}

// WriteString writes text to one ST-file string element.
func (c *Client) WriteString(address, text string) error {
	addr := ParseAddress(address)
	if !addr.Valid() || addr.FileType != fileTypeString {
		return ErrInvalidAddress
	}
	return c.writeRaw(addr, encodeString(text))
}

// WriteBit sets or clears one bit via the masked-write command.
func (c *Client) WriteBit(address string, value bool) error {
	addr := ParseAddress(address)
	if !addr.Valid() || !addr.HasBit() {
		return ErrInvalidAddress
	}
	req := buildBitWriteRequest(addr, value)
	_, err := c.exec(0x0F, funcWriteBitMasked, req)
	return err
}

func decodeInt16Slice(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

func decodeInt32Slice(data []byte) []int32 {
	out := make([]int32, len(data)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func decodeFloat32Slice(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// decodeBits unpacks words into count bools starting at bit bitStart of the
// first word and advancing bit-by-bit across successive words.
func decodeBits(words []int16, bitStart, count int) []bool {
	out := make([]bool, count)
	wordIdx, bitIdx := 0, bitStart
	for i := 0; i < count; i++ {
		if wordIdx >= len(words) {
			break
		}
		out[i] = words[wordIdx]&(1<<uint(bitIdx)) != 0
		bitIdx++
		if bitIdx == 16 {
			bitIdx = 0
			wordIdx++
		}
	}
	return out
}

// swapPairsLeaveOdd swaps each adjacent pair of bytes, leaving a final
// unpaired byte (if len(b) is odd) untouched.
func swapPairsLeaveOdd(b []byte) []byte {
	out := append([]byte(nil), b...)
	for i := 0; i+1 < len(out); i += 2 {
		out[i], out[i+1] = out[i+1], out[i]
	}
	return out
}

// encodeString builds an ST-file element body: a little-endian length
// prefix (the text length, not counting the terminator) followed by the
// text with every adjacent pair of bytes swapped — leaving an odd trailing
// character alone — and a NUL terminator appended after, padded to an even
// length (§4.H: writing "ABC" shows "A and B swapped, then C followed by
// NUL" on the wire).
func encodeString(text string) []byte {
	swapped := swapPairsLeaveOdd([]byte(text))
	body := append(swapped, 0)
	if len(body)%2 != 0 {
		body = append(body, 0)
	}
	out := make([]byte, 2, 2+len(body))
	binary.LittleEndian.PutUint16(out, uint16(len(text)))
	return append(out, body...)
}

// decodeString is encodeString's inverse: the length prefix tells us
// exactly how many (pre-swap) text bytes precede the terminator, so only
// that prefix of the body needs unswapping; the terminator and any padding
// after it are discarded. The result is clamped to 82 characters (§4.H).
func decodeString(data []byte) string {
	if len(data) < 2 {
		return ""
	}
	length := int(binary.LittleEndian.Uint16(data[:2]))
	if length > 82 {
		length = 82
	}
	rest := data[2:]
	if length > len(rest) {
		length = len(rest)
	}
	return string(swapPairsLeaveOdd(rest[:length]))
}
