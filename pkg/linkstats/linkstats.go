// Package linkstats collects the counters spec.md §4.G requires and
// derives the closing report's rate and efficiency figures, grounded on
// the original implementation's statistics.c formulas (kept verbatim in
// meaning: received bit rate, actual efficiency, FER, theoretical optimal
// efficiency).
package linkstats

import (
	"fmt"
	"sync"
	"time"
)

// Role labels which side of the link the stats belong to, for Report's
// header line.
type Role int

const (
	Transmitter Role = iota
	Receiver
)

func (r Role) String() string {
	if r == Transmitter {
		return "TRANSMITTER"
	}
	return "RECEIVER"
}

// Collector accumulates the counters described in spec.md §3/§4.G. All
// methods are safe for concurrent use, the way the teacher guards
// BusManager counters with a mutex.
type Collector struct {
	mu sync.Mutex

	role Role

	framesGood      uint64
	framesError     uint64
	retransmissions uint64
	bytesRead       uint64

	start time.Time
	end   time.Time
}

// New returns a zeroed Collector for role.
func New(role Role) *Collector {
	return &Collector{role: role}
}

// MarkOpened records the first successful SET exchange timestamp.
func (c *Collector) MarkOpened() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// MarkClosed records the successful DISC exchange timestamp.
func (c *Collector) MarkClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.end = time.Now()
}

// IncFramesGood counts a successfully sent or accepted frame (including
// supervision frames).
func (c *Collector) IncFramesGood() {
	c.mu.Lock()
	c.framesGood++
	c.mu.Unlock()
}

// IncFramesError counts a REJ-producing event or a header/BCC1 parse
// failure.
func (c *Collector) IncFramesError() {
	c.mu.Lock()
	c.framesError++
	c.mu.Unlock()
}

// IncRetransmissions counts one timer expiry.
func (c *Collector) IncRetransmissions() {
	c.mu.Lock()
	c.retransmissions++
	c.mu.Unlock()
}

// AddBytesRead accumulates destuffed frame size (payload + fixed overhead)
// at the receiver.
func (c *Collector) AddBytesRead(n int) {
	c.mu.Lock()
	c.bytesRead += uint64(n)
	c.mu.Unlock()
}

// Snapshot is an immutable copy of the counters for reporting or testing.
type Snapshot struct {
	Role            Role
	FramesGood      uint64
	FramesError     uint64
	Retransmissions uint64
	BytesRead       uint64
	Elapsed         time.Duration
}

// Snapshot returns the current counter values.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	end := c.end
	if end.IsZero() {
		end = time.Now()
	}
	var elapsed time.Duration
	if !c.start.IsZero() {
		elapsed = end.Sub(c.start)
	}
	return Snapshot{
		Role:            c.role,
		FramesGood:      c.framesGood,
		FramesError:     c.framesError,
		Retransmissions: c.retransmissions,
		BytesRead:       c.bytesRead,
		Elapsed:         elapsed,
	}
}

// ReceivedBitRate is (bytesRead*8)/elapsedSeconds.
func (s Snapshot) ReceivedBitRate() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.BytesRead*8) / secs
}

// ActualEfficiency is ReceivedBitRate / baudRate.
func (s Snapshot) ActualEfficiency(baudRate int) float64 {
	if baudRate <= 0 {
		return 0
	}
	return s.ReceivedBitRate() / float64(baudRate)
}

// FrameErrorRate combines BCC1 and BCC2 error probabilities:
// FER = p_BCC1 + p_BCC2*(1-p_BCC1).
func FrameErrorRate(pBCC1, pBCC2 float64) float64 {
	return pBCC1 + pBCC2*(1-pBCC1)
}

// NormalizedPropagationDelay is a = T_prop / T_frame, where T_frame is the
// transmission time of a MaxPayloadSize frame at baudRate.
func NormalizedPropagationDelay(propagationDelay time.Duration, baudRate, maxPayload int) float64 {
	if baudRate <= 0 {
		return 0
	}
	tFrame := float64(maxPayload*8) / float64(baudRate)
	if tFrame <= 0 {
		return 0
	}
	return propagationDelay.Seconds() / tFrame
}

// OptimalEfficiency is the theoretical (1-FER)/(1+2a) ceiling.
func OptimalEfficiency(fer, a float64) float64 {
	return (1 - fer) / (1 + 2*a)
}

// Report renders the human-readable close-time summary spec.md §6 asks
// for, in the printf-table style of the original implementation's
// showStatisticsTerminal.
func Report(s Snapshot, baudRate int, pBCC1, pBCC2 float64, propagationDelay time.Duration, maxPayload int) string {
	fer := FrameErrorRate(pBCC1, pBCC2)
	a := NormalizedPropagationDelay(propagationDelay, baudRate, maxPayload)

	out := fmt.Sprintf("\n\t======= [%s STATISTICS] =======\n\n", s.Role)
	if s.Role == Transmitter {
		out += fmt.Sprintf("               Good frames sent: %d frames\n", s.FramesGood)
		out += fmt.Sprintf("          Total retransmissions: %d\n", s.Retransmissions)
		out += fmt.Sprintf("                  Elapsed time: %.3f seconds\n", s.Elapsed.Seconds())
	} else {
		out += fmt.Sprintf("           Good frames received: %d frames\n", s.FramesGood)
		out += fmt.Sprintf("           Bad frames discarded: %d frames\n", s.FramesError)
		out += fmt.Sprintf("     Received bytes (destuffed): %d bytes\n", s.BytesRead)
		out += fmt.Sprintf("                  Elapsed time: %.3f seconds\n\n", s.Elapsed.Seconds())
		out += fmt.Sprintf("              Received bit rate: %.3f bits/s\n", s.ReceivedBitRate())
		out += fmt.Sprintf("              Actual efficiency: %.6f\n", s.ActualEfficiency(baudRate))
		out += fmt.Sprintf("             Optimal efficiency: %.6f\n", OptimalEfficiency(fer, a))
	}
	out += "\n\t====================================="
	if s.Role == Transmitter {
		out += "==="
	}
	out += "\n"
	return out
}
