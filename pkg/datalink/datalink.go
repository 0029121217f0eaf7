// Package datalink implements the reliable data-link protocol: a
// stop-and-wait ARQ with alternating-bit sequencing over an HDLC-style
// framed serial channel. Conn is the single owned object exposing the
// four upper-layer operations (Open, Write, Read, Close) spec.md §6
// describes, re-encapsulating what the source protocol keeps as
// process-wide globals (Ns/Nr, timer flags, statistics) the way spec.md
// §9 asks, grounded on the teacher's pkg/node.BaseNode and BusManager:
// one mutex-guarded struct instead of package-level state.
package datalink

import (
	"fmt"
	"sync"

	"github.com/oss-datalink/gocanlink/pkg/frame"
	"github.com/oss-datalink/gocanlink/pkg/linkconfig"
	"github.com/oss-datalink/gocanlink/pkg/linkstats"
	"github.com/oss-datalink/gocanlink/pkg/rtimer"
	"github.com/oss-datalink/gocanlink/pkg/serialport"
	"github.com/oss-datalink/gocanlink/pkg/supervisor"
	log "github.com/sirupsen/logrus"
)

// Conn is one established data-link session. The upper layer must
// serialize calls per spec.md §5: Open, then N x Write (or M x Read until
// 0), then Close.
type Conn struct {
	mu sync.Mutex

	dev   serialport.Device
	cfg   linkconfig.Config
	timer *rtimer.Controller
	stats *linkstats.Collector

	ns uint8 // next send sequence number (Transmitter only)
	nr uint8 // next expected receive sequence number (Receiver only)

	opened bool
	closed bool
}

// Open configures and opens the serial device named in cfg and performs
// the role-aware SET/UA handshake. It is the Transmitter/Receiver
// counterpart of spec.md §4.E.
func Open(cfg linkconfig.Config) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dev, err := serialport.Open(cfg.Device, cfg.BaudRate)
	if err != nil {
		return nil, err
	}
	conn, err := OpenWithDevice(dev, cfg)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return conn, nil
}

// OpenWithDevice performs the same handshake as Open but over an
// already-constructed Device, the way the teacher's NewNetwork accepts a
// pre-built can.Bus instead of always dialing one itself. This is the
// seam tests use to substitute pkg/serialport/testutil's loopback.
func OpenWithDevice(dev serialport.Device, cfg linkconfig.Config) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	role := linkstats.Transmitter
	if cfg.Role == linkconfig.Receiver {
		role = linkstats.Receiver
	}
	c := &Conn{
		dev:   dev,
		cfg:   cfg,
		timer: rtimer.New(cfg.Timeout, cfg.Retransmissions),
		stats: linkstats.New(role),
	}

	switch cfg.Role {
	case linkconfig.Transmitter:
		if err := supervisor.ExpectFrameWithRetx(dev, c.timer, frame.AT, frame.CUA, frame.AT, frame.CSet); err != nil {
			return nil, fmt.Errorf("datalink: open (tx): %w", err)
		}
		c.stats.IncFramesGood()

	case linkconfig.Receiver:
		if err := supervisor.ExpectFrame(dev, frame.AT, frame.CSet); err != nil {
			return nil, fmt.Errorf("datalink: open (rx): %w", err)
		}
		c.stats.IncFramesGood()
		c.stats.AddBytesRead(5)
		if err := supervisor.SendCommand(dev, frame.AT, frame.CUA); err != nil {
			return nil, fmt.Errorf("datalink: open (rx): %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: unknown role", ErrBadArgument)
	}

	c.stats.MarkOpened()
	c.opened = true
	log.WithField("role", cfg.Role).Info("datalink: connection established")
	return c, nil
}

// Close performs the role-aware DISC/UA teardown (spec.md §4.E) and
// closes the underlying device. showStatistics prints the closing report
// built from pkg/linkstats to standard output if true.
func (c *Conn) Close(showStatistics bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened || c.closed {
		return ErrNotOpen
	}

	var err error
	switch c.cfg.Role {
	case linkconfig.Transmitter:
		err = supervisor.ExpectFrameWithRetx(c.dev, c.timer, frame.AR, frame.CDisc, frame.AT, frame.CDisc)
		if err == nil {
			c.stats.IncFramesGood()
			// The final UA may be lost without failing close: the peer
			// accepts it implicitly via device closure (spec.md §4.E).
			_ = supervisor.SendCommand(c.dev, frame.AR, frame.CUA)
			c.stats.IncFramesGood()
		}

	case linkconfig.Receiver:
		if e := supervisor.ExpectFrame(c.dev, frame.AT, frame.CDisc); e == nil {
			c.stats.IncFramesGood()
			c.stats.AddBytesRead(5)
			if e := supervisor.SendCommand(c.dev, frame.AR, frame.CDisc); e == nil {
				c.stats.IncFramesGood()
				c.stats.AddBytesRead(5)
			} else {
				err = e
			}
		} else {
			err = e
		}
	}

	c.closed = true
	c.stats.MarkClosed()

	if showStatistics {
		snap := c.stats.Snapshot()
		fmt.Println(linkstats.Report(snap, c.cfg.BaudRate, float64(c.cfg.BCC1ErrorPercent)/100, float64(c.cfg.BCC2ErrorPercent)/100, c.cfg.PropagationDelay, c.cfg.MaxPayloadSize))
	}

	if closeErr := c.dev.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Stats returns a snapshot of the session's counters.
func (c *Conn) Stats() linkstats.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.Snapshot()
}
