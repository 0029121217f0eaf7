package datalink

import (
	"github.com/oss-datalink/gocanlink/pkg/frame"
	"github.com/oss-datalink/gocanlink/pkg/supervisor"
	log "github.com/sirupsen/logrus"
)

// maxStuffedBodyLen bounds the raw (still-stuffed) accumulation buffer so
// a frame that never closes with a FLAG cannot grow it without limit;
// spec.md §8 requires rejecting an oversize frame cleanly rather than
// risking an overflow.
const maxStuffedBodyLen = 2*(frame.MaxPayloadSize+1) + 2

// Read implements spec.md §4.F.2 (llread): it blocks until one I-frame is
// delivered (n>0), the peer initiates DISC (0, nil), or a fatal device
// error occurs. buf must have capacity for at least MaxPayloadSize bytes.
func (c *Conn) Read(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened || c.closed {
		return 0, ErrNotOpen
	}

	for {
		header := supervisor.NewHeaderOnly(
			supervisor.Exact(frame.AT),
			supervisor.OneOf(frame.CInfo0, frame.CInfo1, frame.CDisc),
		)
		for header.State() != supervisor.Stop {
			b, ok, err := c.dev.ReadByte()
			if err != nil {
				return 0, err
			}
			if !ok {
				continue
			}
			header.Step(b)
		}
		_, gotC := header.Result()

		if gotC == frame.CDisc {
			// Early-DISC shortcut (spec.md §4.F.2 table footnote): the
			// receiver need not wait for the transmitter's separate DISC
			// exchange once it sees one during data-phase.
			c.stats.IncFramesGood()
			if err := supervisor.SendCommand(c.dev, frame.AR, frame.CDisc); err != nil {
				return 0, err
			}
			return 0, nil
		}

		ns := uint8(0)
		if gotC == frame.CInfo1 {
			ns = 1
		}

		raw, err := c.readStuffedBody()
		if err != nil {
			return 0, err
		}
		if raw == nil {
			// Frame exceeded maxStuffedBodyLen; discarded and resynced.
			c.stats.IncFramesError()
			continue
		}

		destuffed := frame.Destuff(nil, raw)
		payload, bcc2OK := frame.DecodeInfo(destuffed)

		switch {
		case bcc2OK && ns == c.nr:
			n := copy(buf, payload)
			c.stats.IncFramesGood()
			c.stats.AddBytesRead(len(payload) + 6)
			ack := frame.CRR(1 - c.nr)
			c.nr ^= 1
			if err := supervisor.SendCommand(c.dev, frame.AR, ack); err != nil {
				return 0, err
			}
			return n, nil

		case bcc2OK && ns != c.nr:
			log.Debug("datalink: read: duplicate frame, re-acking without delivery")
			if err := supervisor.SendCommand(c.dev, frame.AR, frame.CRR(c.nr)); err != nil {
				return 0, err
			}

		case !bcc2OK && ns == c.nr:
			c.stats.IncFramesError()
			log.Warn("datalink: read: BCC2 mismatch on expected frame, sending REJ")
			if err := supervisor.SendCommand(c.dev, frame.AR, frame.CREJ(c.nr)); err != nil {
				return 0, err
			}

		default: // corrupt duplicate: treat like any other duplicate
			if err := supervisor.SendCommand(c.dev, frame.AR, frame.CRR(c.nr)); err != nil {
				return 0, err
			}
		}
	}
}

// readStuffedBody accumulates raw (still-stuffed) bytes until the closing
// FLAG. Per the byte-stuffing invariant, a literal FLAG cannot occur
// inside the stuffed region, so scanning for the next raw FLAG byte is
// equivalent to (and simpler than) tracking an explicit ESC sub-state on
// every byte, which is the one-pass approach spec.md §9 favors over a
// byte-by-byte reallocating parser. Returns nil, nil if the frame grows
// past maxStuffedBodyLen without closing.
func (c *Conn) readStuffedBody() ([]byte, error) {
	raw := make([]byte, 0, 256)
	for {
		b, ok, err := c.dev.ReadByte()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if b == frame.FLAG {
			return raw, nil
		}
		if len(raw) >= maxStuffedBodyLen {
			return nil, nil
		}
		raw = append(raw, b)
	}
}
