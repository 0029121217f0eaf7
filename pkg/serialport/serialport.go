// Package serialport implements the byte I/O adapter: blocking single-byte
// reads and N-byte writes over a POSIX serial device, with open/close and
// baud-rate configuration via termios.
//
// Grounded on the teacher's use of golang.org/x/sys/unix for low-level bit
// manipulation (bus_manager.go uses unix.CAN_SFF_MASK) and on the termios
// configuration approach of a dedicated serial-port driver, generalized
// from ioctl-table bit flags to the plain VMIN/VTIME/baud-rate setup a
// link-layer byte reader needs.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// ErrClosed is returned by operations on a Port that has already been closed.
var ErrClosed = errors.New("serialport: port is closed")

// Device is what pkg/datalink depends on: a byte-at-a-time reader with a
// benign ok=false on timeout, and a whole-buffer writer. *Port implements
// it against a real terminal; pkg/serialport/testutil implements it over
// an in-memory pipe for tests.
type Device interface {
	ReadByte() (b byte, ok bool, err error)
	WriteBytes(buf []byte) (int, error)
	Close() error
}

// baudRates maps the configuration's plain integer baud rate to the termios
// speed constant. Unlisted rates are rejected at Open time rather than
// silently coerced to the nearest supported speed.
var baudRates = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// pollInterval is the VTIME (in deciseconds) used for the terminal's
// non-canonical read timeout: a read blocks at most this long waiting for
// a byte, then returns zero bytes. This is what lets ReadByte's caller
// re-check the retransmission timer between bytes instead of needing a
// SIGALRM handler to interrupt a truly blocking read (spec.md §9).
const pollInterval = 1 // 100ms

// Port is a single-byte-read, N-byte-write POSIX serial device.
type Port struct {
	file   *os.File
	fd     int
	closed bool
}

// Open configures device at baud and returns a ready Port. It puts the
// terminal into raw mode: no echo, no line discipline, VMIN=0/VTIME=pollInterval
// so a read blocks for at most pollInterval deciseconds and returns zero
// bytes on timeout instead of blocking indefinitely.
func Open(device string, baud int) (*Port, error) {
	speed, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("serialport: unsupported baud rate %d", baud)
	}

	f, err := os.OpenFile(device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", device, err)
	}
	fd := int(f.Fd())

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("serialport: get termios: %w", err)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8 | unix.CLOCAL | unix.CREAD
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = pollInterval
	t.Ispeed = speed
	t.Ospeed = speed

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		f.Close()
		return nil, fmt.Errorf("serialport: set termios: %w", err)
	}

	log.WithFields(log.Fields{"device": device, "baud": baud}).Debug("serialport: opened")
	return &Port{file: f, fd: fd}, nil
}

// ReadByte waits up to pollInterval deciseconds for one byte. ok is false
// on a benign timeout (no byte arrived this tick) so the caller's state
// machine and retransmission timer can be re-checked in a loop instead of
// relying on a signal to interrupt a truly blocking read.
func (p *Port) ReadByte() (b byte, ok bool, err error) {
	if p.closed {
		return 0, false, ErrClosed
	}
	var buf [1]byte
	// A terminal opened through os is polled non-blocking, so VTIME alone
	// does not bound the wait; a read deadline does.
	deadline := time.Now().Add(pollInterval * 100 * time.Millisecond)
	if err := p.file.SetReadDeadline(deadline); err != nil && !errors.Is(err, os.ErrNoDeadline) {
		return 0, false, fmt.Errorf("serialport: set read deadline: %w", err)
	}
	n, err := p.file.Read(buf[:])
	if n == 0 && (err == nil || errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded)) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("serialport: read: %w", err)
	}
	if n == 0 {
		return 0, false, nil
	}
	return buf[0], true, nil
}

// WriteBytes writes buf in full or returns an error; partial writes are
// retried internally so callers never need to loop on short writes.
func (p *Port) WriteBytes(buf []byte) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	total := 0
	for total < len(buf) {
		n, err := p.file.Write(buf[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			return total, fmt.Errorf("serialport: write: %w", err)
		}
		if n == 0 {
			return total, errors.New("serialport: write made no progress")
		}
	}
	return total, nil
}

// Close releases the underlying file descriptor. Calling Close twice is a
// no-op returning nil, matching the teacher's idempotent Disconnect.
func (p *Port) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	log.Debug("serialport: closed")
	return p.file.Close()
}
