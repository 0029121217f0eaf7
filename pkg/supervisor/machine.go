// Package supervisor implements the byte-wise frame-header state machine
// shared by every supervision-frame exchange (SET/UA, DISC/UA, RR/REJ) and
// the header-recognition prefix of an I-frame receive.
//
// spec.md §9 calls out that the source repeats nearly identical state
// machines for every exchange. Machine is one reusable recognizer
// parameterized by predicates over the acceptable A and C bytes; it takes
// no accept callback: callers poll State for Stop and then read Result.
// Every supervision exchange and the I-frame header
// scan in pkg/datalink drive the same five states instead of forking the
// switch statement per call site, the way the teacher's SDO client folds
// every segmented/block/expedited transfer through one state-keyed
// dispatch in downloadMain/uploadMain.
package supervisor

import "github.com/oss-datalink/gocanlink/pkg/frame"

// State names the byte-header recognizer's position, mirroring spec.md
// §4.C's table exactly (START, FLAG_RCV, A_RCV, C_RCV, BCC_OK, STOP).
type State int

const (
	Start State = iota
	FlagRcv
	ARcv
	CRcv
	BccOK
	Stop
)

// Predicate reports whether a byte is acceptable in its position.
type Predicate func(b byte) bool

// Exact returns a Predicate matching exactly one byte.
func Exact(want byte) Predicate {
	return func(b byte) bool { return b == want }
}

// OneOf returns a Predicate matching any of the given bytes.
func OneOf(bs ...byte) Predicate {
	return func(b byte) bool {
		for _, w := range bs {
			if b == w {
				return true
			}
		}
		return false
	}
}

// Machine recognizes one FLAG A C BCC1 header whose A and C bytes satisfy
// acceptA/acceptC, tolerating flag resync exactly as spec.md §4.C's
// tie-break rules describe (a second FLAG in FLAG_RCV/A_RCV re-syncs
// instead of failing outright).
type Machine struct {
	acceptA  Predicate
	acceptC  Predicate
	state    State
	gotA     byte
	gotC     byte
	noFooter bool // stop as soon as BCC1 matches, without requiring a trailing FLAG
}

// New returns a Machine in the Start state, recognizing a complete 5-byte
// supervision frame (header followed by a trailing FLAG).
func New(acceptA, acceptC Predicate) *Machine {
	return &Machine{acceptA: acceptA, acceptC: acceptC, state: Start}
}

// NewHeaderOnly returns a Machine that stops as soon as BCC1 matches,
// without requiring a trailing FLAG. This is what spec.md §4.F.2's
// I-frame receive table needs: C_RCV's "A_T^C match" column goes straight
// to DATA, unlike a supervision frame's BCC_OK->STOP pair, since an
// I-frame's header is immediately followed by the stuffed payload rather
// than a second FLAG.
func NewHeaderOnly(acceptA, acceptC Predicate) *Machine {
	return &Machine{acceptA: acceptA, acceptC: acceptC, state: Start, noFooter: true}
}

// Reset returns the machine to Start, discarding any partial header.
func (m *Machine) Reset() {
	m.state = Start
	m.gotA = 0
	m.gotC = 0
}

// State reports the current recognizer state.
func (m *Machine) State() State { return m.state }

// Step feeds one byte and returns the resulting state. Callers stop
// feeding once State() == Stop and read the matched header with Result.
func (m *Machine) Step(b byte) State {
	switch m.state {
	case Start:
		if b == frame.FLAG {
			m.state = FlagRcv
		}

	case FlagRcv:
		switch {
		case b == frame.FLAG:
			// stay: a run of FLAGs just keeps resyncing.
		case m.acceptA(b):
			m.gotA = b
			m.state = ARcv
		default:
			m.state = Start
		}

	case ARcv:
		switch {
		case b == frame.FLAG:
			m.state = FlagRcv
		case m.acceptC(b):
			m.gotC = b
			m.state = CRcv
		default:
			m.state = Start
		}

	case CRcv:
		switch {
		case b == frame.FLAG:
			m.state = FlagRcv
		case b == frame.BCC1(m.gotA, m.gotC):
			if m.noFooter {
				m.state = Stop
			} else {
				m.state = BccOK
			}
		default:
			m.state = Start
		}

	case BccOK:
		if b == frame.FLAG {
			m.state = Stop
		} else {
			m.state = Start
		}

	case Stop:
		// terminal; caller must Reset before reuse.
	}
	return m.state
}

// Result returns the matched address and control bytes once State()==Stop.
func (m *Machine) Result() (a, c byte) { return m.gotA, m.gotC }
