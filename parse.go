// Copyright (c) 2020–2024 The tei developers. All rights reserved.
// Project site: https://github.com/gotmc/tei
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package tei

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	errCommandNotEchoed = errors.New("command not echoed")
	errNoValue          = errors.New("no value after command")
)

// ParseResponse extracts the number that follows cmd in resp, e.g. 12.3 from
// "co 12.3 ppb" for the command "co". It never fails: anything that cannot
// be interpreted yields NaN.
func ParseResponse(cmd, resp string) float64 {
	v, err := parseValue(cmd, resp)
	if err != nil {
		return math.NaN()
	}
	return v
}

// parseValue is ParseResponse with the reason for a failure.
func parseValue(cmd, resp string) (float64, error) {
	_, rest, found := strings.Cut(resp, cmd)
	if !found {
		return math.NaN(), &ParseError{Command: cmd, Response: resp, Err: errCommandNotEchoed}
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return math.NaN(), &ParseError{Command: cmd, Response: resp, Err: errNoValue}
	}
	tok := fields[0]
	if hexMantissa(tok) {
		return math.NaN(), &ParseError{Command: cmd, Response: resp, Err: strconv.ErrSyntax}
	}
	// Out-of-range values keep ParseFloat's ±Inf.
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN(), &ParseError{Command: cmd, Response: resp, Err: err}
	}
	return v, nil
}

// hexMantissa reports whether tok is a hexadecimal float such as 0x1p4,
// which ParseFloat accepts but analyzers never send.
func hexMantissa(tok string) bool {
	tok = strings.TrimLeft(tok, "+-")
	return len(tok) > 1 && tok[0] == '0' && (tok[1] == 'x' || tok[1] == 'X')
}
