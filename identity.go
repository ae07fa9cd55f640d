// Copyright (c) 2020–2024 The tei developers. All rights reserved.
// Project site: https://github.com/gotmc/tei
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package tei

import "fmt"

// Protocol-level addresses of the Thermo Environmental C-series analyzers.
// The address is 128 plus the model number.
const (
	Addr42C byte = 0xAA // NO-NO2-NOx
	Addr43C byte = 0xAB // SO2
	Addr48C byte = 0xB0 // CO
	Addr49C byte = 0xB1 // O3
)

// modelOffset is added to a model number to obtain its protocol address.
const modelOffset = 128

// Identity is the immutable address of one analyzer on its serial line.
type Identity struct {
	addr byte
}

// NewIdentity returns the identity for n, which is either a model number
// (n < 128, e.g. 43 for the 43C) or a protocol address (n >= 128, e.g. 0xAB).
func NewIdentity(n int) (Identity, error) {
	if n < 0 || n > 255 {
		return Identity{}, fmt.Errorf("invalid instrument address %d (must be 0-255)", n)
	}
	if n < modelOffset {
		n += modelOffset
	}
	return Identity{addr: byte(n)}, nil
}

// Address returns the protocol address byte that prefixes every command.
func (id Identity) Address() byte { return id.addr }

// ConcentrationCommand returns the command that queries the primary
// measured gas. Only the SO2 analyzer answers to "so2"; every other
// address is queried with "co".
func (id Identity) ConcentrationCommand() string {
	if id.addr == Addr43C {
		return CmdSO2
	}
	return CmdCO
}

func (id Identity) String() string {
	return fmt.Sprintf("%#02x", id.addr)
}
