// Package testutil provides an in-memory stand-in for a physical serial
// cable, the way the teacher's pkg/can/virtual bus stands in for a real
// CAN adapter in its own test suite. Two Endpoints connected by NewChannel
// shuttle bytes through buffered channels instead of a TCP loopback, and
// can be configured to drop, corrupt or delay bytes in flight so tests can
// exercise the retransmission and REJ paths from spec.md §8 scenarios 4-5.
package testutil

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrClosed is returned by operations on a closed Endpoint.
var ErrClosed = errors.New("testutil: endpoint is closed")

// Fault describes the impairments a Channel applies to bytes in flight.
// Zero value is a perfect channel.
type Fault struct {
	DropRate      float64       // probability [0,1] a byte never arrives
	CorruptRate   float64       // probability [0,1] a byte's value is flipped
	Delay         time.Duration // fixed propagation delay applied to every byte
	Rand          *rand.Rand    // source of randomness; defaults to a fresh one
	DropBudget    *int          // if non-nil, dropping stops once it counts down to 0
	CorruptBudget *int          // if non-nil, corruption stops once it counts down to 0
	SkipBytes     int           // bytes to pass through untouched before fault logic applies
}

func (f *Fault) rng() *rand.Rand {
	if f.Rand == nil {
		f.Rand = rand.New(rand.NewSource(1))
	}
	return f.Rand
}

// Endpoint is one side of a loopback channel. It implements
// pkg/serialport.Device.
type Endpoint struct {
	name   string
	in     chan byte
	out    chan byte
	fault  *Fault
	mu     sync.Mutex
	closed bool
}

// NewChannel returns two Endpoints wired to each other: bytes written on a
// arrive (subject to fault) for reading on b, and vice versa. Each endpoint
// gets its own copy of fault, so a.SetFault only ever impairs the a->b
// direction and b.SetFault only impairs b->a.
func NewChannel(fault Fault) (a, b *Endpoint) {
	abFault := fault
	baFault := fault
	ab := make(chan byte, 4096)
	ba := make(chan byte, 4096)
	a = &Endpoint{name: "a", in: ba, out: ab, fault: &abFault}
	b = &Endpoint{name: "b", in: ab, out: ba, fault: &baFault}
	return a, b
}

// ReadByte returns the next byte written by the peer, or ok=false if none
// arrived within a short poll window, matching the real serial adapter's
// timeout-based polling contract.
func (e *Endpoint) ReadByte() (byte, bool, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return 0, false, ErrClosed
	}
	select {
	case b, open := <-e.in:
		if !open {
			return 0, false, ErrClosed
		}
		return b, true, nil
	case <-time.After(50 * time.Millisecond):
		return 0, false, nil
	}
}

// WriteBytes applies configured fault injection and forwards surviving
// bytes to the peer's read side.
func (e *Endpoint) WriteBytes(buf []byte) (int, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}
	for _, b := range buf {
		if e.fault.Delay > 0 {
			time.Sleep(e.fault.Delay)
		}
		if e.fault.SkipBytes > 0 {
			e.fault.SkipBytes--
			e.out <- b
			continue
		}
		if e.fault.DropRate > 0 && e.fault.rng().Float64() < e.fault.DropRate {
			if e.fault.DropBudget == nil || *e.fault.DropBudget > 0 {
				if e.fault.DropBudget != nil {
					*e.fault.DropBudget--
				}
				continue
			}
		}
		if e.fault.CorruptRate > 0 && e.fault.rng().Float64() < e.fault.CorruptRate {
			if e.fault.CorruptBudget == nil || *e.fault.CorruptBudget > 0 {
				b ^= 0xFF
				if e.fault.CorruptBudget != nil {
					*e.fault.CorruptBudget--
				}
			}
		}
		e.out <- b
	}
	return len(buf), nil
}

// SetFault replaces the impairment profile applied to bytes this endpoint
// writes from this point on (its own direction only), letting a test turn
// on corruption/drop only after an initial clean handshake.
func (e *Endpoint) SetFault(f Fault) {
	e.mu.Lock()
	defer e.mu.Unlock()
	*e.fault = f
}

// Close marks the endpoint closed. The peer's reads start failing once its
// buffered bytes are drained.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.out)
	return nil
}
