package serial

import (
	"fmt"
	"syscall"
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// Winsize mirrors struct winsize from <asm-generic/termios.h>.
type Winsize struct {
	Row    uint16
	Col    uint16
	Xpixel uint16
	Ypixel uint16
}

// SetWinSize sets the terminal window size via TIOCSWINSZ.
func (p *Port) SetWinSize(w *Winsize) error {
	return ioctl.Ioctl(uintptr(p.f), tiocswinsz, uintptr(unsafe.Pointer(w)))
}

// GetWinSize reads the terminal window size via TIOCGWINSZ.
func (p *Port) GetWinSize() (*Winsize, error) {
	w := &Winsize{}
	if err := ioctl.Ioctl(uintptr(p.f), tiocgwinsz, uintptr(unsafe.Pointer(w))); err != nil {
		return nil, err
	}
	return w, nil
}

// SetLockPT locks or unlocks the pty pair so the slave can be opened.
func (p *Port) SetLockPT(lock bool) error {
	var v int32
	if lock {
		v = 1
	}
	return ioctl.Ioctl(uintptr(p.f), tiocsptlck, uintptr(unsafe.Pointer(&v)))
}

// GetPTPeer opens the pty slave for a master opened at /dev/ptmx via TIOCGPTPEER,
// equivalent to opening /dev/pts/N directly but without a race against the name
// becoming visible.
func (p *Port) GetPTPeer(flags int) (*Port, error) {
	r1, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(p.f), tiocgptpeer, uintptr(flags))
	if errno != 0 {
		return nil, errno
	}
	return &Port{options: NewOptions(), f: int(r1)}, nil
}

// PtsName returns the path of the slave device for a master opened at
// /dev/ptmx, via TIOCGPTN. Callers that need to reopen the slave by path
// (rather than keep GetPTPeer's fd alive) use this.
func (p *Port) PtsName() (string, error) {
	var n uint32
	if err := ioctl.Ioctl(uintptr(p.f), tiocgptn, uintptr(unsafe.Pointer(&n))); err != nil {
		return "", err
	}
	return fmt.Sprintf("/dev/pts/%d", n), nil
}

// OpenPTY finds an available pseudoterminal and returns a master and slave port.
// If termp is non-nil, the slave port will be configured with the given termios.
// If winp is non-nil, the slave port will be configured with the given window size.
func OpenPTY(termp *Termios, winp *Winsize) (*Port, *Port, error) {
	master, err := Open("/dev/ptmx", nil)
	if err != nil {
		return nil, nil, err
	}
	if err := master.SetLockPT(false); err != nil {
		master.Close()
		return nil, nil, err
	}
	slave, err := master.GetPTPeer(0)
	if err != nil {
		master.Close()
		return nil, nil, err
	}
	if termp != nil {
		if err := slave.SetAttr(TCSANOW, termp); err != nil {
			master.Close()
			return nil, nil, err
		}
	}
	if winp != nil {
		if err := slave.SetWinSize(winp); err != nil {
			master.Close()
			return nil, nil, err
		}
	}

	return master, slave, nil
}
