package df1comm

import "encoding/binary"

// ProcessorFamily distinguishes the file-zero layout variants §4.I
// describes: where the directory length lives, and the stride of its
// descriptor table.
type ProcessorFamily int

const (
	FamilySLC5 ProcessorFamily = iota // SLC 5/02, SLC 5/03/04/05, ML1000
	FamilyML1100
)

// directoryLayout is one row of the family-specific geometry §4.I lists for
// the file-zero directory scan.
type directoryLayout struct {
	lengthFileType byte
	lengthElement  int
	descOffset     int
	stride         int
}

// processorFamilyLayout maps a processor code (from GetProcessorType) to its
// directory layout, per §4.I's explicit grouping: "SLC 5/02 & ML1000 at file
// 0 type 0 element 0x23", "ML1100/1200/1500 at file 0 type 2 element 0x2F",
// "SLC 5/03/04/05 at file 0 type 1 element 0x23". 0x58 (ML1000) shares the
// SLC 5/02 row, not the SLC 5/03+ default — sizeColumnIsWide (download.go)
// groups them the same way for the same reason.
func processorFamilyLayout(processorType byte) directoryLayout {
	switch {
	case processorType == 0x25 || processorType == 0x58: // SLC 5/02, ML1000
		return directoryLayout{lengthFileType: 0x00, lengthElement: 0x23, descOffset: 79, stride: 8}
	case processorType >= 0x78 && processorType <= 0x7F: // ML1100/1200/1500
		return directoryLayout{lengthFileType: 0x02, lengthElement: 0x2F, descOffset: 93, stride: 10}
	default: // SLC 5/03/04/05
		return directoryLayout{lengthFileType: 0x01, lengthElement: 0x23, descOffset: 103, stride: 8}
	}
}

// fileTypeTags maps a PCCC file-type code to the ASCII tag directory.go's
// scan reports, mirroring address.go's fileTypeLetters in the other
// direction plus the two dual-coded letters (§4.I).
var fileTypeTags = map[byte]string{
	0x82: "O", 0x8B: "O",
	0x83: "I", 0x8C: "I",
	0x84: "S",
	0x85: "B",
	0x86: "T",
	0x87: "C",
	0x88: "R",
	0x89: "N",
	0x8A: "F",
	0x8D: "ST",
	0x8E: "A",
	0x91: "L",
	0x92: "MG",
	0x93: "PD",
	0x94: "PLS",
}

func bytesPerElementForTag(tag string) int {
	for letter, info := range fileTypeLetters {
		if letter == tag {
			return info.bytesPerElement
		}
	}
	return 2
}

// DirEntry describes one entry in the file-zero directory (§4.I).
type DirEntry struct {
	TypeCode   byte
	Tag        string
	FileNumber int
	ByteLen    int
	Elements   int
}

// ReadDirectory reads the file-zero directory: first the two bytes at the
// family's length address to learn file zero's size, then the whole of
// file zero, then parses the fixed-stride descriptor table starting at the
// family's offset. Only codes in the user-data range 0x82..0x9E are
// returned; file numbers increment monotonically once the scan enters the
// data-file region (§4.I).
func (c *Client) ReadDirectory(processorType byte) ([]DirEntry, error) {
	layout := processorFamilyLayout(processorType)

	sizeData, err := c.readRaw(processorType, ParsedAddress{FileType: layout.lengthFileType, FileNumber: 0, Element: layout.lengthElement, BytesPerElement: 2}, 2)
	if err != nil {
		return nil, err
	}
	size := int(binary.LittleEndian.Uint16(sizeData))
	if size <= 0 {
		return nil, ErrNoPeerData
	}

	file0, err := c.readRaw(processorType, ParsedAddress{FileType: 0x00, FileNumber: 0, Element: 0, BytesPerElement: 1}, size)
	if err != nil {
		return nil, err
	}

	var entries []DirEntry
	nextFileNumber := 0
	for off := layout.descOffset; off+3 <= len(file0); off += layout.stride {
		typeCode := file0[off]
		byteLen := int(file0[off+1]) | int(file0[off+2])<<8
		if typeCode < 0x82 || typeCode > 0x9E {
			continue
		}
		tag, ok := fileTypeTags[typeCode]
		if !ok {
			tag = "Undefined"
		}
		bpe := bytesPerElementForTag(tag)
		elements := 0
		if bpe > 0 {
			elements = byteLen / bpe
		}
		entries = append(entries, DirEntry{
			TypeCode:   typeCode,
			Tag:        tag,
			FileNumber: nextFileNumber,
			ByteLen:    byteLen,
			Elements:   elements,
		})
		nextFileNumber++
	}
	return entries, nil
}

// programFileGroup classifies a file-zero entry's type code into one of the
// seven ordered program-file groups §4.I's Upload step describes.
func programFileGroup(typeCode byte) (group int, ok bool) {
	switch {
	case typeCode >= 0x40 && typeCode <= 0x5F:
		return 0, true // system
	case typeCode >= 0x20 && typeCode <= 0x3F:
		return 1, true // ladder
	case typeCode >= 0x60 && typeCode <= 0x7F:
		return 2, true // system-ladder
	case typeCode >= 0x80 && typeCode <= 0x9F:
		return 3, true // data
	case typeCode >= 0xA0 && typeCode <= 0xBF:
		return 4, true // force
	case typeCode >= 0xC0 && typeCode <= 0xDF:
		return 5, true // unknown1
	case typeCode >= 0xE0 && typeCode <= 0xFF:
		return 6, true // unknown2
	}
	return 0, false
}
