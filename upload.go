package df1comm

// ProgramFile is one file streamed by Upload: the raw bytes of a program,
// system, or data file read out of the controller's file-zero program-file
// section (§4.I).
type ProgramFile struct {
	TypeCode   byte
	Group      int
	FileNumber int
	Data       []byte
}

// Upload scans the same file-zero descriptor table ReadDirectory does,
// classifies every entry whose type code falls in one of the seven ordered
// program-file groups (data-file entries included), and streams every file's full
// byte length. File numbers increment from zero independently within each
// group (§4.I). An UploadProgress event fires after each file.
func (c *Client) Upload(processorType byte) ([]ProgramFile, error) {
	layout := processorFamilyLayout(processorType)

	sizeData, err := c.readRaw(processorType, ParsedAddress{FileType: layout.lengthFileType, FileNumber: 0, Element: layout.lengthElement, BytesPerElement: 2}, 2)
	if err != nil {
		return nil, err
	}
	size := int(sizeData[0]) | int(sizeData[1])<<8
	if size <= 0 {
		return nil, ErrNoPeerData
	}
	file0, err := c.readRaw(processorType, ParsedAddress{FileType: 0x00, FileNumber: 0, Element: 0, BytesPerElement: 1}, size)
	if err != nil {
		return nil, err
	}

	groupCounters := make([]int, 7)
	var results []ProgramFile
	var candidates []DirEntry

	for off := layout.descOffset; off+3 <= len(file0); off += layout.stride {
		typeCode := file0[off]
		byteLen := int(file0[off+1]) | int(file0[off+2])<<8
		if _, ok := programFileGroup(typeCode); !ok {
			continue
		}
		candidates = append(candidates, DirEntry{TypeCode: typeCode, ByteLen: byteLen})
	}

	for i, entry := range candidates {
		group, _ := programFileGroup(entry.TypeCode)
		fileNumber := groupCounters[group]
		groupCounters[group]++

		data, err := c.readRaw(processorType, ParsedAddress{FileType: entry.TypeCode, FileNumber: fileNumber, Element: 0, BytesPerElement: 1}, entry.ByteLen)
		if err != nil {
			return nil, err
		}
		results = append(results, ProgramFile{TypeCode: entry.TypeCode, Group: group, FileNumber: fileNumber, Data: data})
		c.events.UploadProgress(i+1, len(candidates))
	}
	return results, nil
}
