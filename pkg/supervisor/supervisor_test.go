package supervisor_test

import (
	"testing"
	"time"

	"github.com/oss-datalink/gocanlink/pkg/frame"
	"github.com/oss-datalink/gocanlink/pkg/rtimer"
	"github.com/oss-datalink/gocanlink/pkg/serialport/testutil"
	"github.com/oss-datalink/gocanlink/pkg/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendCommandAndExpectFrame(t *testing.T) {
	a, b := testutil.NewChannel(testutil.Fault{})
	defer a.Close()
	defer b.Close()

	done := make(chan error, 1)
	go func() { done <- supervisor.ExpectFrame(b, frame.AT, frame.CSet) }()

	require.NoError(t, supervisor.SendCommand(a, frame.AT, frame.CSet))
	require.NoError(t, <-done)
}

func TestExpectFrameWithRetxResendsOnTimeout(t *testing.T) {
	a, b := testutil.NewChannel(testutil.Fault{})
	defer a.Close()
	defer b.Close()

	timer := rtimer.New(30*time.Millisecond, 3)
	done := make(chan error, 1)
	go func() { done <- supervisor.ExpectFrameWithRetx(a, timer, frame.AT, frame.CUA, frame.AT, frame.CSet) }()

	// The peer stays silent past the timeout, so the sender retransmits
	// SET; the peer then reads the first queued SET and answers it.
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, supervisor.ExpectFrame(b, frame.AT, frame.CSet))
	require.NoError(t, supervisor.SendCommand(b, frame.AT, frame.CUA))

	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, timer.Count(), 0)
}

func TestExpectFrameWithRetxExhausts(t *testing.T) {
	a, _ := testutil.NewChannel(testutil.Fault{})
	defer a.Close()

	timer := rtimer.New(10*time.Millisecond, 1)
	err := supervisor.ExpectFrameWithRetx(a, timer, frame.AT, frame.CUA, frame.AT, frame.CSet)
	assert.Error(t, err)
}
