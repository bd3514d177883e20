package df1comm

import "fmt"

// Code is one of the signed status values the DF1/PCCC link returns, either
// from the link layer itself (negative values) or echoed from the
// controller's PCCC STS/EXT STS bytes (positive values).
type Code int

const (
	CodeSuccess         Code = 0
	CodeNAK             Code = -2
	CodeNoResponse      Code = -3
	CodeInvalidAddress  Code = -5
	CodeOpenFailed      Code = -6
	CodeEmptyData       Code = -7
	CodeNoPeerData      Code = -8
	CodeTimeout         Code = -20
	CodeChecksumOnRecvd Code = -21

	codeExtendedStatus Code = 0xF0
)

// PCCC STS byte values (§7).
const (
	StsIllegalCommand    Code = 16
	StsHostHasIssue      Code = 32
	StsRemoteHasIssue    Code = 48
	StsHardwareFault     Code = 64
	StsAddressingProblem Code = 80
	StsCommandProtection Code = 96
	StsProgramMode       Code = 112
	StsCompatibilityFile Code = 128
	StsCannotBuffer      Code = 144
)

var stsText = map[Code]string{
	StsIllegalCommand:    "illegal command or format",
	StsHostHasIssue:      "host has a problem and will not communicate",
	StsRemoteHasIssue:    "remote node host is missing, disconnected, or shut down",
	StsHardwareFault:     "host could not complete function due to hardware fault",
	StsAddressingProblem: "addressing problem or memory protect rungs",
	StsCommandProtection: "function not allowed due to command protection selection",
	StsProgramMode:       "processor is in program mode",
	StsCompatibilityFile: "compatibility mode file missing or communication zone problem",
	StsCannotBuffer:      "remote node cannot buffer command",
}

// extended-status mnemonics (§7, codes 257..270: 0x100+EXT).
var extText = map[int]string{
	0x100 + 0x01: "a field has an illegal value",
	0x100 + 0x02: "less levels specified in address than minimum for any address",
	0x100 + 0x03: "more levels specified in address than system supports",
	0x100 + 0x04: "symbol not found",
	0x100 + 0x05: "symbol is of improper format",
	0x100 + 0x06: "address doesn't point to something usable",
	0x100 + 0x07: "file is wrong size",
	0x100 + 0x08: "cannot complete request, situation has changed since the start of the command",
	0x100 + 0x09: "data or file is too large",
	0x100 + 0x0A: "transaction size plus word address is too large",
	0x100 + 0x0B: "access denied, improper privilege",
	0x100 + 0x0C: "condition cannot be generated - resource is not available",
	0x100 + 0x0D: "condition already exists - resource is already available",
	0x100 + 0x0E: "command cannot be executed",
}

// StatusError wraps a PCCC status (and, for STS 0xF0, extended status) as
// returned by the controller for a single request.
type StatusError struct {
	Code Code
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("df1comm: %s", DecodeMessage(int(e.Code)))
}

// LinkError wraps one of the link-layer negative Code values (§7).
type LinkError struct {
	Code Code
	op   string
}

func (e *LinkError) Error() string {
	if e.op != "" {
		return fmt.Sprintf("df1comm: %s: %s", e.op, DecodeMessage(int(e.Code)))
	}
	return fmt.Sprintf("df1comm: %s", DecodeMessage(int(e.Code)))
}

// Is lets callers write errors.Is(err, df1comm.ErrTimeout) and similar
// without caring whether the op label matches.
func (e *LinkError) Is(target error) bool {
	other, ok := target.(*LinkError)
	if !ok {
		return false
	}
	return other.Code == e.Code
}

func linkErr(op string, code Code) error {
	if code == CodeSuccess {
		return nil
	}
	return &LinkError{Code: code, op: op}
}

// Sentinel link-layer errors, usable with errors.Is.
var (
	ErrNAK             = &LinkError{Code: CodeNAK}
	ErrNoResponse      = &LinkError{Code: CodeNoResponse}
	ErrInvalidAddress  = &LinkError{Code: CodeInvalidAddress}
	ErrOpenFailed      = &LinkError{Code: CodeOpenFailed}
	ErrEmptyData       = &LinkError{Code: CodeEmptyData}
	ErrNoPeerData      = &LinkError{Code: CodeNoPeerData}
	ErrTimeout         = &LinkError{Code: CodeTimeout}
	ErrChecksumOnRecvd = &LinkError{Code: CodeChecksumOnRecvd}
)

// DecodeMessage turns one of the §7 codes into a human-readable string, the
// way the source's message decoder does for status bars and logs.
func DecodeMessage(code int) string {
	switch Code(code) {
	case CodeSuccess:
		return "success"
	case CodeNAK:
		return "NAK received from peer"
	case CodeNoResponse:
		return "no response from peer"
	case CodeInvalidAddress:
		return "invalid address"
	case CodeOpenFailed:
		return "could not open serial port"
	case CodeEmptyData:
		return "no data supplied"
	case CodeNoPeerData:
		return "no data returned from peer"
	case CodeTimeout:
		return "response timeout"
	case CodeChecksumOnRecvd:
		return "peer NAK'd our checksum"
	}
	if code >= 0x100 {
		if msg, ok := extText[code]; ok {
			return msg
		}
		return fmt.Sprintf("Unknown Message - %d", code)
	}
	if msg, ok := stsText[Code(code)]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown Message - %d", code)
}

// statusFromFrame extracts the PCCC status (and, for 0xF0, the extended
// status tail) from a completed reply frame at the given STS byte offset
// (3 for DF1, 7 for DH485 — §4.E). Per spec.md §9's resolved open question,
// the extended status byte is the frame's last byte (len(frame)-1).
func statusFromFrame(frame []byte, stsOffset int) int {
	if stsOffset >= len(frame) {
		return 0
	}
	sts := int(frame[stsOffset])
	if sts != int(codeExtendedStatus) {
		return sts
	}
	if len(frame) == 0 {
		return sts
	}
	ext := frame[len(frame)-1]
	return 0x100 + int(ext)
}
