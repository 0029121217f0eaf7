package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisionWireTrace(t *testing.T) {
	// spec.md §8 scenario 1: clean open.
	assert.Equal(t, []byte{0x7E, 0x03, 0x03, 0x00, 0x7E}, Supervision(AT, CSet))
	assert.Equal(t, []byte{0x7E, 0x03, 0x07, 0x04, 0x7E}, Supervision(AT, CUA))
}

func TestEncodeInfoWireTrace(t *testing.T) {
	// spec.md §8 scenario 2: "ABC" over a clean channel.
	got, err := EncodeInfo(0, []byte{0x41, 0x42, 0x43})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x7E, 0x03, 0x00, 0x03, 0x41, 0x42, 0x43, 0x40, 0x7E}, got)
}

func TestStuffingWireTrace(t *testing.T) {
	// spec.md §8 scenario 3: payload 0x7E 0x7D.
	body := append([]byte{0x7E, 0x7D}, BCC2([]byte{0x7E, 0x7D}))
	assert.Equal(t, byte(0x03), BCC2([]byte{0x7E, 0x7D}))
	stuffed := Stuff(nil, body)
	assert.Equal(t, []byte{0x7D, 0x5E, 0x7D, 0x5D, 0x03}, stuffed)

	destuffed := Destuff(nil, stuffed)
	assert.Equal(t, body, destuffed)
}

func TestStuffDestuffBijection(t *testing.T) {
	for _, payload := range [][]byte{
		{},
		{0x00},
		{0x7E},
		{0x7D},
		{0x7E, 0x7E, 0x7D, 0x7D, 0x01, 0x02},
		{0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48},
	} {
		stuffed := Stuff(nil, payload)
		assert.Equal(t, StuffedLen(payload), len(stuffed))
		assert.Equal(t, payload, Destuff([]byte{}, stuffed))
	}
}

func TestDestuffTolerant(t *testing.T) {
	// ESC followed by an unknown successor passes the successor through.
	got := Destuff(nil, []byte{ESC, 0x99})
	assert.Equal(t, []byte{0x99}, got)
}

func TestBCC1(t *testing.T) {
	assert.Equal(t, byte(0x00), BCC1(AT, CSet))
	assert.Equal(t, byte(0x08), BCC1(AT, CDisc))
	assert.Equal(t, byte(0x0A), BCC1(AR, CDisc))
}

func TestEncodeInfoRejectsInvalidSizes(t *testing.T) {
	_, err := EncodeInfo(0, nil)
	assert.ErrorIs(t, err, ErrEmpty)

	big := make([]byte, MaxPayloadSize+1)
	_, err = EncodeInfo(0, big)
	assert.ErrorIs(t, err, ErrTooLong)

	exact := make([]byte, MaxPayloadSize)
	_, err = EncodeInfo(0, exact)
	assert.NoError(t, err)
}

func TestDecodeInfo(t *testing.T) {
	payload, ok := DecodeInfo([]byte{0x41, 0x42, 0x43, 0x40})
	require.True(t, ok)
	assert.Equal(t, []byte{0x41, 0x42, 0x43}, payload)

	_, ok = DecodeInfo([]byte{0x41, 0x42, 0x43, 0x00})
	assert.False(t, ok)
}

func TestCRRCREJRoundTrip(t *testing.T) {
	n, ok := IsRR(CRR(1))
	require.True(t, ok)
	assert.EqualValues(t, 1, n)

	n, ok = IsREJ(CREJ(0))
	require.True(t, ok)
	assert.EqualValues(t, 0, n)

	_, ok = IsRR(CREJ(0))
	assert.False(t, ok)
}
