package supervisor

import (
	"fmt"

	"github.com/oss-datalink/gocanlink/pkg/frame"
	"github.com/oss-datalink/gocanlink/pkg/rtimer"
	"github.com/oss-datalink/gocanlink/pkg/serialport"
	log "github.com/sirupsen/logrus"
)

// Device is the byte-level transport a supervision exchange runs over.
type Device = serialport.Device

// SendCommand emits a 5-byte supervision frame atomically: FLAG A C A^C FLAG.
func SendCommand(dev Device, a, c byte) error {
	_, err := dev.WriteBytes(frame.Supervision(a, c))
	if err != nil {
		return fmt.Errorf("supervisor: send command: %w", err)
	}
	log.WithFields(log.Fields{"A": a, "C": c}).Debug("supervisor: sent command frame")
	return nil
}

// ExpectFrame runs the header recognizer until one supervision frame
// matching (aExpected, cExpected) is accepted. It never retransmits.
func ExpectFrame(dev Device, aExpected, cExpected byte) error {
	m := New(Exact(aExpected), Exact(cExpected))
	for m.State() != Stop {
		b, ok, err := dev.ReadByte()
		if err != nil {
			return fmt.Errorf("supervisor: expect frame: %w", err)
		}
		if !ok {
			continue
		}
		m.Step(b)
	}
	return nil
}

// ExpectFrameWithRetx sends (aSend, cSend), arms timer, and waits for a
// frame matching (aExpected, cExpected); on timer expiry it resends and
// counts the attempt against timer's retry budget, failing once exhausted.
func ExpectFrameWithRetx(dev Device, timer *rtimer.Controller, aExpected, cExpected, aSend, cSend byte) error {
	if err := SendCommand(dev, aSend, cSend); err != nil {
		return err
	}
	timer.Arm()
	defer timer.Disarm()

	m := New(Exact(aExpected), Exact(cExpected))
	for m.State() != Stop {
		b, ok, err := dev.ReadByte()
		if err != nil {
			return fmt.Errorf("supervisor: expect frame with retx: %w", err)
		}
		if ok {
			m.Step(b)
			continue
		}
		if timer.Fired() {
			if timer.Exhausted() {
				return fmt.Errorf("supervisor: retries exhausted waiting for A=%#x C=%#x", aExpected, cExpected)
			}
			log.WithFields(log.Fields{"A": aSend, "C": cSend}).Warn("supervisor: retransmitting command frame")
			if err := SendCommand(dev, aSend, cSend); err != nil {
				return err
			}
			timer.Arm()
			m.Reset()
		}
	}
	return nil
}
