// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors, wrapped with context at the call site and matched with errors.Is.
var (
	// Configuration errors
	ErrConfigInvalid = errors.New("vbridge: invalid configuration")
	ErrInvalidVlan   = errors.New("vbridge: invalid vlan id")

	// Frame decoding errors
	ErrFrameTooShort = errors.New("vbridge: frame too short")
)
