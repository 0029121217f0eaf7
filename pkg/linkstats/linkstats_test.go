package linkstats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountersAccumulate(t *testing.T) {
	c := New(Receiver)
	c.MarkOpened()
	c.IncFramesGood()
	c.IncFramesGood()
	c.IncFramesError()
	c.IncRetransmissions()
	c.AddBytesRead(10)
	c.AddBytesRead(5)
	c.MarkClosed()

	snap := c.Snapshot()
	assert.EqualValues(t, 2, snap.FramesGood)
	assert.EqualValues(t, 1, snap.FramesError)
	assert.EqualValues(t, 1, snap.Retransmissions)
	assert.EqualValues(t, 15, snap.BytesRead)
	assert.GreaterOrEqual(t, snap.Elapsed, time.Duration(0))
}

func TestReceivedBitRateAndEfficiency(t *testing.T) {
	snap := Snapshot{BytesRead: 1000, Elapsed: time.Second}
	assert.InDelta(t, 8000, snap.ReceivedBitRate(), 0.001)
	assert.InDelta(t, 8000.0/9600.0, snap.ActualEfficiency(9600), 0.0001)
}

func TestFrameErrorRateAndOptimalEfficiency(t *testing.T) {
	fer := FrameErrorRate(0, 0)
	assert.Equal(t, 0.0, fer)
	assert.Equal(t, 1.0, OptimalEfficiency(0, 0))

	fer = FrameErrorRate(0.01, 0.02)
	assert.InDelta(t, 0.01+0.02*0.99, fer, 1e-9)
}

func TestNormalizedPropagationDelay(t *testing.T) {
	a := NormalizedPropagationDelay(0, 9600, 1024)
	assert.Equal(t, 0.0, a)

	a = NormalizedPropagationDelay(100*time.Millisecond, 9600, 1024)
	assert.Greater(t, a, 0.0)
}

func TestReportFormatsBothRoles(t *testing.T) {
	tx := Report(Snapshot{Role: Transmitter, FramesGood: 3}, 9600, 0, 0, 0, 1024)
	assert.Contains(t, tx, "TRANSMITTER")
	assert.Contains(t, tx, "Good frames sent")

	rx := Report(Snapshot{Role: Receiver, FramesGood: 3, BytesRead: 30, Elapsed: time.Second}, 9600, 0, 0, 0, 1024)
	assert.Contains(t, rx, "RECEIVER")
	assert.Contains(t, rx, "Received bit rate")
}
