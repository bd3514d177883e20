package serial

import (
	"fmt"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/daedaluz/fdev/poll"
	ioctl "github.com/daedaluz/goioctl"
)

// Termios mirrors struct termios from <asm-generic/termbits.h>. Field order,
// types, and sizes must match the kernel layout exactly: it is passed
// directly into the TCGETS/TCSETS ioctls.
type Termios struct {
	Iflag IFlag      /* input mode flags */
	Oflag OFlag      /* output mode flags */
	Cflag CFlag      /* control mode flags */
	Lflag LFlag      /* local mode flags */
	Line  Discipline /* line discipline */
	Cc    [19]byte   /* control characters */
}

// Termios2 mirrors struct termios2, the TCGETS2/TCSETS2 variant that carries
// explicit input/output speed fields instead of packing them into Cflag.
type Termios2 struct {
	Iflag  IFlag      /* input mode flags */
	Oflag  OFlag      /* output mode flags */
	Cflag  CFlag      /* control mode flags */
	Lflag  LFlag      /* local mode flags */
	Line   Discipline /* line discipline */
	Cc     [19]byte   /* control characters */
	ISpeed uint32     /* input speed */
	OSpeed uint32     /* output speed */
}

type IFlag uint32

// Input flags actually touched by the raw-mode/no-handshake open path below.
const (
	IGNBRK = IFlag(0000001)
	BRKINT = IFlag(0000002)
	PARMRK = IFlag(0000010)
	ISTRIP = IFlag(0000040)
	INLCR  = IFlag(0000100)
	IGNCR  = IFlag(0000200)
	ICRNL  = IFlag(0000400)
	IXON   = IFlag(0002000)
	IXANY  = IFlag(0004000)
	IXOFF  = IFlag(0010000)
)

type OFlag uint32

// OPOST is cleared by MakeRaw; DF1 framing never wants output postprocessing.
const (
	OPOST = OFlag(0000001)
)

type CFlag uint32

// Control flags, including the baud-rate table OpenDF1's baudFlags maps into.
const (
	CBAUD  = CFlag(0010017)
	B1200  = CFlag(0000011)
	B2400  = CFlag(0000013)
	B4800  = CFlag(0000014)
	B9600  = CFlag(0000015)
	B19200 = CFlag(0000016)
	B38400 = CFlag(0000017)

	CSIZE = CFlag(0000060)
	CS8   = CFlag(0000060)

	CSTOPB = CFlag(0000100)
	CREAD  = CFlag(0000200)
	PARENB = CFlag(0000400)
	PARODD = CFlag(0001000)

	CBAUDEX = CFlag(0010000)
	BOTHER  = CFlag(0010000)

	B57600  = CFlag(0010001)
	B115200 = CFlag(0010002)

	CRTSCTS = CFlag(020000000000) /* hardware flow control */
)

type LFlag uint32

// Line flags MakeRaw clears to put the port into a byte-oriented, unechoed
// mode with no signal generation.
const (
	ISIG   = LFlag(0000001)
	ICANON = LFlag(0000002)
	ECHO   = LFlag(0000010)
	ECHONL = LFlag(0000100)
	IEXTEN = LFlag(0100000)
)

type Discipline byte

const (
	N_TTY = Discipline(iota)
)

type Action int

const (
	// TCSANOW
	// the change occurs immediately.
	TCSANOW = Action(iota)

	// TCSADRAIN
	// the change occurs after all output written to fd has been transmitted.
	TCSADRAIN

	// TCSAFLUSH
	// the change occurs after all output written has been transmitted, and
	// all input received but not read is discarded before the change.
	TCSAFLUSH
)

type ModemLine int

const (
	TIOCM_LE  = ModemLine(0x001)
	TIOCM_DTR = ModemLine(0x002)
	TIOCM_RTS = ModemLine(0x004)
	TIOCM_ST  = ModemLine(0x008)
	TIOCM_SR  = ModemLine(0x010)
	TIOCM_CTS = ModemLine(0x020)
	TIOCM_CAR = ModemLine(0x040)
	TIOCM_CD  = TIOCM_CAR
	TIOCM_RNG = ModemLine(0x080)
	TIOCM_RI  = TIOCM_RNG
	TIOCM_DSR = ModemLine(0x100)

	TIOCM_OUT1 = ModemLine(0x2000)
	TIOCM_OUT2 = ModemLine(0x4000)
	TIOCM_LOOP = ModemLine(0x8000)
)

func (m ModemLine) String() string {
	flags := make([]string, 0, len(modemLineStrings))
	for i := 1; i <= int(TIOCM_LOOP); i <<= 1 {
		if int(m)&i > 0 {
			if flag, ok := modemLineStrings[ModemLine(i)]; ok {
				flags = append(flags, flag)
			} else {
				flags = append(flags, fmt.Sprintf("Unknown(%x)", i))
			}
		}
	}
	return fmt.Sprintf("[%s]", strings.Join(flags, "|"))
}

var modemLineStrings = map[ModemLine]string{
	TIOCM_LE:   "LE",
	TIOCM_DTR:  "DTR",
	TIOCM_RTS:  "RTS",
	TIOCM_ST:   "ST",
	TIOCM_SR:   "SR",
	TIOCM_CTS:  "CTS",
	TIOCM_CAR:  "CAR",
	TIOCM_RNG:  "RNG",
	TIOCM_DSR:  "DSR",
	TIOCM_OUT1: "OUT1",
	TIOCM_OUT2: "OUT2",
	TIOCM_LOOP: "LOOP",
}

var ErrClosed = fmt.Errorf("port already closed")

type Options struct {
	ReadTimeout time.Duration
	OpenMode    int
}

func NewOptions() *Options {
	return &Options{ReadTimeout: -1, OpenMode: syscall.O_RDWR | syscall.O_NOCTTY | syscall.SYS_SYNC}
}

func (o *Options) SetReadTimeout(timeout time.Duration) *Options {
	o.ReadTimeout = timeout
	return o
}

type Port struct {
	options *Options
	closed  atomic.Bool
	f       int
}

func Open(name string, opts *Options) (*Port, error) {
	if opts == nil {
		opts = NewOptions()
	}
	fd, err := syscall.Open(name, opts.OpenMode, 0)
	if err != nil {
		return nil, wrapErr("opening "+name, err)
	}
	return &Port{
		options: opts,
		f:       fd,
	}, nil
}

func (p *Port) Write(data []byte) (n int, err error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	return syscall.Write(p.f, data)
}

func (p *Port) readTimeout(data []byte, timeout time.Duration) (int, error) {
	if err := poll.WaitInput(p.f, timeout); err != nil {
		return 0, err
	}
	return syscall.Read(p.f, data)
}

func (p *Port) Read(data []byte) (n int, err error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	if p.options.ReadTimeout > -1 {
		return p.readTimeout(data, p.options.ReadTimeout)
	}
	return syscall.Read(p.f, data)
}

func (p *Port) ReadTimeout(data []byte, timeout time.Duration) (n int, err error) {
	return p.readTimeout(data, timeout)
}

func (p *Port) SetReadTimeout(timeout time.Duration) {
	p.options.ReadTimeout = timeout
}

func (p *Port) Close() error {
	if !p.closed.Swap(true) {
		fd := p.f
		p.f = -1
		return syscall.Close(fd)
	}
	return ErrClosed
}

func (p *Port) SetAttr(when Action, attrs *Termios) error {
	return ioctl.Ioctl(uintptr(p.f), tcsets+uintptr(when), uintptr(unsafe.Pointer(attrs)))
}

func (p *Port) GetAttr2() (*Termios2, error) {
	attrs := &Termios2{}
	err := ioctl.Ioctl(uintptr(p.f), tcgets2, uintptr(unsafe.Pointer(attrs)))
	if err != nil {
		return nil, err
	}
	return attrs, nil
}

func (p *Port) SetAttr2(when Action, attrs *Termios2) error {
	return ioctl.Ioctl(uintptr(p.f), tcsets2+uintptr(when), uintptr(unsafe.Pointer(attrs)))
}

// SetModemLines sets the status of modem bits.
func (p *Port) SetModemLines(line ModemLine) error {
	return ioctl.Ioctl(uintptr(p.f), tiocmset, uintptr(unsafe.Pointer(&line)))
}

// GetModemLines gets the status of modem bits.
func (p *Port) GetModemLines() (ModemLine, error) {
	var line ModemLine
	err := ioctl.Ioctl(uintptr(p.f), tiocmget, uintptr(unsafe.Pointer(&line)))
	return line, err
}

// EnableModemLines sets the indicated modem bits.
func (p *Port) EnableModemLines(line ModemLine) error {
	return ioctl.Ioctl(uintptr(p.f), tiocmbis, uintptr(unsafe.Pointer(&line)))
}

// DisableModemLines clears the indicated modem bits.
func (p *Port) DisableModemLines(line ModemLine) error {
	return ioctl.Ioctl(uintptr(p.f), tiocmbic, uintptr(unsafe.Pointer(&line)))
}

func (attrs *Termios2) MakeRaw() {
	attrs.Iflag &= ^(IGNBRK | BRKINT | PARMRK | ISTRIP | INLCR | IGNCR | ICRNL | IXON)
	attrs.Oflag &= ^(OPOST)
	attrs.Lflag &= ^(ECHO | ECHONL | ICANON | ISIG | IEXTEN)
	attrs.Cflag &= ^(CSIZE | PARENB)
	attrs.Cflag |= CS8
}

func (attrs *Termios2) SetSpeed(speed CFlag) {
	attrs.Cflag &= ^(CBAUD)
	attrs.Cflag |= speed
}

// Parity selects the serial line's parity generation/checking mode.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

var baudFlags = map[int]CFlag{
	1200:   B1200,
	2400:   B2400,
	4800:   B4800,
	9600:   B9600,
	19200:  B19200,
	38400:  B38400,
	57600:  B57600,
	115200: B115200,
}

// OpenDF1 opens name at baud/parity with the fixed 8 data bits, 1 stop bit,
// no-handshake framing the link layer requires, and puts the line into raw
// mode.
func OpenDF1(name string, baud int, parity Parity) (*Port, error) {
	p, err := Open(name, NewOptions())
	if err != nil {
		return nil, err
	}
	attrs, err := p.GetAttr2()
	if err != nil {
		p.Close()
		return nil, err
	}
	attrs.MakeRaw()
	attrs.Cflag &= ^CSTOPB  // one stop bit
	attrs.Cflag &= ^CRTSCTS // no hardware handshake
	attrs.Iflag &= ^(IXON | IXOFF | IXANY)

	switch parity {
	case ParityEven:
		attrs.Cflag |= PARENB
		attrs.Cflag &= ^PARODD
	case ParityOdd:
		attrs.Cflag |= PARENB
		attrs.Cflag |= PARODD
	default:
		attrs.Cflag &= ^PARENB
	}

	flag, ok := baudFlags[baud]
	if !ok {
		p.Close()
		return nil, fmt.Errorf("serial: unsupported baud rate %d", baud)
	}
	attrs.SetSpeed(flag)

	if err := p.SetAttr2(TCSANOW, attrs); err != nil {
		p.Close()
		return nil, err
	}
	p.SetReadTimeout(200 * time.Millisecond)
	return p, nil
}

// ReadLoop runs a blocking read loop, handing every nonempty read to onData as
// a byte slice, until the port is closed or onData returns false. It is meant
// to run on its own goroutine, standing in for an OS-level asynchronous read
// completion callback.
func ReadLoop(p *Port, onData func([]byte) bool) {
	buf := make([]byte, 256)
	for {
		n, err := p.Read(buf)
		if err != nil {
			if err == ErrClosed {
				return
			}
			continue
		}
		if n > 0 {
			if !onData(append([]byte(nil), buf[:n]...)) {
				return
			}
		}
	}
}
