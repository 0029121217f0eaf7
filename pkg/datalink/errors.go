package datalink

import "errors"

// Sentinel errors, mirrored as a flat package-level block the way the
// teacher's root errors.go lists its CANopen failure modes.
var (
	ErrAlreadyOpen      = errors.New("datalink: connection already open")
	ErrNotOpen          = errors.New("datalink: connection not open")
	ErrBadArgument      = errors.New("datalink: invalid argument")
	ErrRetriesExhausted = errors.New("datalink: retransmission limit exceeded")
	ErrDestuff          = errors.New("datalink: frame destuffing failed")
	ErrPeerDisconnected = errors.New("datalink: peer initiated disconnect")
)
