package df1comm

// Mode bytes for program/run control (§4.J). Real field values differ
// slightly per processor family; these are the commonly documented ones.
const (
	modeProgram byte = 0x01
	modeRun     byte = 0x06
)

// SetMode puts the controller into program or run mode. ML1000 (processor
// code 0x58) uses PCCC function 0x3A with a mode byte; every other family
// uses function 0x80 (§4.J).
func (c *Client) SetMode(processorType byte, program bool) error {
	function := byte(0x80)
	if processorType == 0x58 {
		function = 0x3A
	}
	mode := modeRun
	if program {
		mode = modeProgram
	}
	_, err := c.exec(0x06, function, []byte{mode})
	return err
}

// sizeColumnIsWide reports whether this family's file0-type-0x24 prefix is
// the 6-byte (SLC 5/03+) form instead of the 4-byte form.
func sizeColumnIsWide(processorType byte) bool {
	return processorType != 0x25 && processorType != 0x58
}

// Download writes a new program/data file collection to the controller:
// program mode, an execute-command-list priming the download, sole access,
// the new directory, every file's bytes, completion, and release of sole
// access (§4.I). Any failure aborts the sequence immediately; the source
// documents no rollback, so the controller is left in program mode on
// error.
func (c *Client) Download(processorType byte, directory []byte, files []ProgramFile) error {
	if err := c.SetMode(processorType, true); err != nil {
		return err
	}

	preDownload, err := c.readRaw(processorType, ParsedAddress{FileType: 0x24, FileNumber: 0, Element: 0, BytesPerElement: 1}, 8)
	if err != nil {
		return err
	}
	copyLen := 4
	if sizeColumnIsWide(processorType) {
		copyLen = 6
	}
	if len(preDownload) < 2+copyLen {
		return ErrNoPeerData
	}
	copyBytes := preDownload[2 : 2+copyLen]

	subCommands := buildExecuteCommandList(copyBytes)
	if _, err := c.exec(0x0F, 0x88, subCommands); err != nil {
		return err
	}

	if _, err := c.exec(0x0F, 0x11, nil); err != nil {
		return err
	}
	defer c.exec(0x0F, 0x12, nil) //nolint:errcheck // best-effort release even on a later failure

	layout := processorFamilyLayout(processorType)
	lengthBuf := []byte{byte(len(directory)), byte(len(directory) >> 8)}
	if err := c.writeRaw(ParsedAddress{FileType: layout.lengthFileType, FileNumber: 0, Element: layout.lengthElement, BytesPerElement: 2}, lengthBuf); err != nil {
		return err
	}
	if err := c.writeRaw(ParsedAddress{FileType: 0x00, FileNumber: 0, Element: 0, BytesPerElement: 1}, directory); err != nil {
		return err
	}

	for i, f := range files {
		if err := c.writeRaw(ParsedAddress{FileType: f.TypeCode, FileNumber: f.FileNumber, Element: 0, BytesPerElement: 1}, f.Data); err != nil {
			return err
		}
		c.events.DownloadProgress(i+1, len(files))
	}

	if _, err := c.exec(0x0F, 0x52, nil); err != nil {
		return err
	}
	return nil
}

// buildExecuteCommandList composes the two sub-commands of the download
// priming step (§4.I): a write to file 0 type 0x63 copying copyBytes, then
// the 1-byte "begin download" sub-command 0x56.
func buildExecuteCommandList(copyBytes []byte) []byte {
	out := []byte{byte(len(copyBytes) + 3), 0x00, 0x63, 0x00}
	out = append(out, copyBytes...)
	out = append(out, 0x01, 0x56)
	return out
}
