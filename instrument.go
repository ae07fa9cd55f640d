// Copyright (c) 2020–2024 The tei developers. All rights reserved.
// Project site: https://github.com/gotmc/tei
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package tei

import (
	"io"
	"math"

	"github.com/gotmc/query"
)

// Command vocabulary understood by the analyzers.
const (
	CmdInstrName    = "instr name"
	CmdCO           = "co"
	CmdSO2          = "so2"
	CmdFlow         = "flow"
	CmdPressure     = "pres"
	CmdInternalTemp = "internal temp"
)

// Reading is one measured value. Value is NaN whenever Err is set.
type Reading struct {
	Value float64
	Err   error
}

// Measurement is one of each reading, in the order they are taken.
type Measurement struct {
	Concentration Reading
	Flow          Reading
	Pressure      Reading
	Temperature   Reading
}

// Readings returns the readings in sampling order.
func (m Measurement) Readings() []Reading {
	return []Reading{m.Concentration, m.Flow, m.Pressure, m.Temperature}
}

// Instrument drives one analyzer. An Instrument without a link is unbound;
// all of its reads report ErrUnbound.
type Instrument struct {
	id   Identity
	link *Link
}

// NewInstrument returns an instrument that talks over link, which may be nil.
func NewInstrument(id Identity, link *Link) *Instrument {
	return &Instrument{id: id, link: link}
}

// Identity returns the instrument's address.
func (in *Instrument) Identity() Identity { return in.id }

// Bound reports whether the instrument has a link.
func (in *Instrument) Bound() bool { return in.link != nil }

// Port returns the port the instrument was found on, or "" when unbound.
func (in *Instrument) Port() string {
	if in.link == nil {
		return ""
	}
	return in.link.Port()
}

// Query sends cmd to the instrument's address and returns the reply. It
// satisfies query.Querier.
func (in *Instrument) Query(cmd string) (string, error) {
	if in.link == nil {
		return "", ErrUnbound
	}
	return in.link.Query(in.id.Address(), cmd)
}

var _ query.Querier = (*Instrument)(nil)

// Concentration queries the primary measured gas.
func (in *Instrument) Concentration() Reading { return in.read(in.id.ConcentrationCommand()) }

// Flow queries the sample flow.
func (in *Instrument) Flow() Reading { return in.read(CmdFlow) }

// Pressure queries the chamber pressure.
func (in *Instrument) Pressure() Reading { return in.read(CmdPressure) }

// InternalTemperature queries the internal temperature.
func (in *Instrument) InternalTemperature() Reading { return in.read(CmdInternalTemp) }

// Measure takes all four readings in order.
func (in *Instrument) Measure() Measurement {
	return Measurement{
		Concentration: in.Concentration(),
		Flow:          in.Flow(),
		Pressure:      in.Pressure(),
		Temperature:   in.InternalTemperature(),
	}
}

func (in *Instrument) read(cmd string) Reading {
	if in.link == nil {
		return Reading{Value: math.NaN(), Err: ErrUnbound}
	}
	resp, err := in.Query(cmd)
	if err != nil {
		return Reading{Value: math.NaN(), Err: err}
	}
	v, err := parseValue(cmd, resp)
	return Reading{Value: v, Err: err}
}

// Close closes the instrument's link, if any.
func (in *Instrument) Close() error {
	if in.link == nil {
		return nil
	}
	return in.link.Close()
}

var _ io.Closer = (*Instrument)(nil)
