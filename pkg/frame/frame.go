// Package frame implements the HDLC-style byte framing used by the data
// link protocol: byte stuffing/destuffing, BCC1/BCC2 computation and the
// encode/parse of supervision and information frames.
package frame

import "errors"

// Wire constants. Bit-exact, see the protocol description this module
// implements.
const (
	FLAG     byte = 0x7E
	ESC      byte = 0x7D
	SufFlag  byte = 0x5E
	SufEsc   byte = 0x5D
	AT       byte = 0x03 // commands from transmitter / responses to receiver
	AR       byte = 0x01 // commands from receiver / responses to transmitter
	CSet     byte = 0x03
	CUA      byte = 0x07
	CDisc    byte = 0x0B
	CInfo0   byte = 0x00
	CInfo1   byte = 0x80
	rrBase   byte = 0xAA
	rejBase  byte = 0x54
)

// MaxPayloadSize bounds the payload a single llwrite call may submit.
const MaxPayloadSize = 1024

// ErrTooLong is returned when a payload exceeds MaxPayloadSize.
var ErrTooLong = errors.New("frame: payload exceeds MaxPayloadSize")

// ErrEmpty is returned when a payload has zero length.
var ErrEmpty = errors.New("frame: payload must not be empty")

// CInfo returns the control byte for an I-frame carrying sequence ns (0 or 1).
func CInfo(ns uint8) byte {
	if ns&1 == 1 {
		return CInfo1
	}
	return CInfo0
}

// CRR returns the control byte for RR(n).
func CRR(n uint8) byte { return rrBase | (n & 1) }

// CREJ returns the control byte for REJ(n).
func CREJ(n uint8) byte { return rejBase | (n & 1) }

// IsRR reports whether c is RR(0) or RR(1), returning the carried bit.
func IsRR(c byte) (n uint8, ok bool) {
	if c == rrBase || c == rrBase|1 {
		return c & 1, true
	}
	return 0, false
}

// IsREJ reports whether c is REJ(0) or REJ(1), returning the carried bit.
func IsREJ(c byte) (n uint8, ok bool) {
	if c == rejBase || c == rejBase|1 {
		return c & 1, true
	}
	return 0, false
}

// BCC1 computes the header check byte.
func BCC1(a, c byte) byte { return a ^ c }

// BCC2 computes the XOR checksum over an unstuffed payload.
func BCC2(payload []byte) byte {
	var x byte
	for _, b := range payload {
		x ^= b
	}
	return x
}

// Stuff applies byte stuffing to src, appending the result to dst and
// returning the extended slice. FLAG and ESC bytes are escaped; every other
// byte passes through unchanged.
func Stuff(dst, src []byte) []byte {
	for _, b := range src {
		switch b {
		case FLAG:
			dst = append(dst, ESC, SufFlag)
		case ESC:
			dst = append(dst, ESC, SufEsc)
		default:
			dst = append(dst, b)
		}
	}
	return dst
}

// StuffedLen returns the exact length Stuff(nil, src) would produce, so
// callers can size a destination buffer in one pass instead of growing it
// byte by byte.
func StuffedLen(src []byte) int {
	n := len(src)
	for _, b := range src {
		if b == FLAG || b == ESC {
			n++
		}
	}
	return n
}

// Destuff reverses Stuff. It is tolerant: an ESC followed by a byte other
// than SufFlag/SufEsc passes the successor through unchanged rather than
// failing, matching the wire contract's "any other -> itself" rule.
func Destuff(dst, src []byte) []byte {
	for i := 0; i < len(src); i++ {
		b := src[i]
		if b != ESC {
			dst = append(dst, b)
			continue
		}
		i++
		if i >= len(src) {
			// Dangling ESC at end of buffer; drop it rather than panic.
			break
		}
		switch src[i] {
		case SufFlag:
			dst = append(dst, FLAG)
		case SufEsc:
			dst = append(dst, ESC)
		default:
			dst = append(dst, src[i])
		}
	}
	return dst
}

// Supervision builds a 5-byte S/U-frame: FLAG A C A^C FLAG.
func Supervision(a, c byte) []byte {
	return []byte{FLAG, a, c, BCC1(a, c), FLAG}
}

// EncodeInfo builds a complete I-frame for ns carrying payload, stuffing the
// payload-and-BCC2 region. The returned slice is sized in a single pass
// (2*(len(payload)+1)+6 upper bound is never exceeded) to avoid the
// byte-by-byte reallocation an HDLC encoder is tempted to do.
func EncodeInfo(ns uint8, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmpty
	}
	if len(payload) > MaxPayloadSize {
		return nil, ErrTooLong
	}
	c := CInfo(ns)
	bcc2 := BCC2(payload)

	body := make([]byte, 0, len(payload)+1)
	body = append(body, payload...)
	body = append(body, bcc2)

	frame := make([]byte, 0, 4+StuffedLen(body)+2)
	frame = append(frame, FLAG, AT, c, BCC1(AT, c))
	frame = Stuff(frame, body)
	frame = append(frame, FLAG)
	return frame, nil
}

// DecodeInfo splits the destuffed body (payload ++ BCC2) of an I-frame,
// verifying the trailing checksum. ok is false on a BCC2 mismatch; payload
// is still returned for diagnostics.
func DecodeInfo(destuffedBody []byte) (payload []byte, bcc2Ok bool) {
	if len(destuffedBody) == 0 {
		return nil, false
	}
	payload = destuffedBody[:len(destuffedBody)-1]
	got := destuffedBody[len(destuffedBody)-1]
	return payload, BCC2(payload) == got
}
