package datalink

import (
	"fmt"

	"github.com/oss-datalink/gocanlink/pkg/frame"
	"github.com/oss-datalink/gocanlink/pkg/supervisor"
	log "github.com/sirupsen/logrus"
)

// Write implements spec.md §4.F.1 (llwrite): a stop-and-wait send of one
// I-frame carrying payload, retried up to cfg.Retransmissions times on
// timeout, and immediately (without consuming a retry) on REJ.
func (c *Conn) Write(payload []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened || c.closed {
		return 0, ErrNotOpen
	}
	if len(payload) == 0 {
		return 0, fmt.Errorf("%w: empty payload", ErrBadArgument)
	}
	if len(payload) > c.cfg.MaxPayloadSize {
		return 0, fmt.Errorf("%w: payload exceeds MaxPayloadSize", ErrBadArgument)
	}

	wire, err := frame.EncodeInfo(c.ns, payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadArgument, err)
	}

	if _, err := c.dev.WriteBytes(wire); err != nil {
		return 0, err
	}
	c.timer.Arm()
	defer c.timer.Disarm()

	ack := supervisor.New(
		supervisor.OneOf(frame.AT, frame.AR),
		supervisor.OneOf(frame.CRR(0), frame.CRR(1), frame.CREJ(0), frame.CREJ(1)),
	)

	for {
		b, ok, err := c.dev.ReadByte()
		if err != nil {
			return 0, err
		}
		if ok {
			if ack.Step(b) == supervisor.Stop {
				_, gotC := ack.Result()

				if _, isREJ := frame.IsREJ(gotC); isREJ {
					c.stats.IncFramesError()
					log.Debug("datalink: write: REJ received, resending immediately")
					c.timer.ResetCount()
					if _, err := c.dev.WriteBytes(wire); err != nil {
						return 0, err
					}
					c.timer.Arm()
					ack.Reset()
					continue
				}

				if _, isRR := frame.IsRR(gotC); isRR {
					c.stats.IncFramesGood()
					c.ns ^= 1
					return len(payload), nil
				}
			}
			continue
		}

		if c.timer.Fired() {
			if c.timer.Exhausted() {
				return 0, ErrRetriesExhausted
			}
			c.stats.IncRetransmissions()
			log.Warn("datalink: write: timeout, retransmitting frame")
			if _, err := c.dev.WriteBytes(wire); err != nil {
				return 0, err
			}
			c.timer.Arm()
			ack.Reset()
		}
	}
}
