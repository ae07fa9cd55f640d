// Copyright (c) 2020–2024 The tei developers. All rights reserved.
// Project site: https://github.com/gotmc/tei
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package tei

import (
	"fmt"
	"io"

	"go.uber.org/multierr"
)

// Opener opens a named serial port with the analyzer line settings.
type Opener func(port string) (io.ReadWriteCloser, error)

// ProbeResult is the outcome of probing one candidate port.
type ProbeResult struct {
	Port     string
	Response string
	Err      error
}

// Matched reports whether the port answered.
func (r ProbeResult) Matched() bool { return r.Err == nil && r.Response != "" }

// Discover probes ports in order by sending "instr name" to id and returns a
// link on the first port that gives a non-empty reply. Every other port it
// opened is closed. observe, if not nil, is called after each probe. If no
// port answers, the returned error wraps ErrNotFound and the per-port
// failures.
func Discover(ports []string, id Identity, open Opener, observe func(ProbeResult), opts ...LinkOption) (*Link, error) {
	var errs error
	for _, port := range ports {
		link, res := probe(port, id, open, opts)
		if observe != nil {
			observe(res)
		}
		if res.Matched() {
			return link, nil
		}
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", port, res.Err))
	}
	if errs == nil {
		return nil, fmt.Errorf("%w: address %s: no candidate ports", ErrNotFound, id)
	}
	return nil, fmt.Errorf("%w: address %s: %w", ErrNotFound, id, errs)
}

func probe(port string, id Identity, open Opener, opts []LinkOption) (*Link, ProbeResult) {
	res := ProbeResult{Port: port}
	rwc, err := open(port)
	if err != nil {
		res.Err = err
		return nil, res
	}
	link := NewLink(port, rwc, opts...)
	res.Response, res.Err = link.Query(id.Address(), CmdInstrName)
	if res.Err == nil && res.Response == "" {
		res.Err = ErrNoResponse
	}
	if res.Err != nil {
		res.Err = multierr.Append(res.Err, link.Close())
		return nil, res
	}
	return link, res
}
