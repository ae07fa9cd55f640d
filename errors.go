// Copyright (c) 2020–2024 The tei developers. All rights reserved.
// Project site: https://github.com/gotmc/tei
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package tei

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResponse is returned when no terminated reply arrived within the
	// read timeout.
	ErrNoResponse = errors.New("tei: no response")

	// ErrUnbound is reported by every read of an instrument whose port was
	// never found.
	ErrUnbound = errors.New("tei: instrument not bound to a port")

	// ErrNotFound is returned by Discover when no candidate port answered.
	ErrNotFound = errors.New("tei: no port answered")
)

// ParseError records a response that could not be read as a number.
type ParseError struct {
	Command  string
	Response string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tei: cannot parse %q response %q: %s", e.Command, e.Response, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
