// Copyright (c) 2020–2024 The tei developers. All rights reserved.
// Project site: https://github.com/gotmc/tei
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/gotmc/tei"
	"github.com/gotmc/tei/lib/config"
	"github.com/gotmc/tei/lib/monitor"
)

// analyzer answers "instr name" on its serial line. An analyzer with no
// addrs answers every address.
type analyzer struct {
	addrs   []byte
	pending bytes.Buffer
	closed  bool
}

func (a *analyzer) Write(p []byte) (int, error) {
	if len(p) < 2 {
		return len(p), nil
	}
	addr, cmd := p[0], string(p[1:len(p)-1])
	if cmd == tei.CmdInstrName && (a.addrs == nil || slices.Contains(a.addrs, addr)) {
		fmt.Fprintf(&a.pending, "instr name %#x\r", addr)
	}
	return len(p), nil
}

func (a *analyzer) Read(p []byte) (int, error) {
	if a.pending.Len() == 0 {
		return 0, nil
	}
	return a.pending.Read(p)
}

func (a *analyzer) Close() error {
	a.closed = true
	return nil
}

// bench is a set of serial ports; it records every open.
type bench struct {
	ports  map[string]*analyzer
	opened []string
}

func (b *bench) open(port string) (io.ReadWriteCloser, error) {
	a, ok := b.ports[port]
	if !ok {
		return nil, errors.New("no such port")
	}
	b.opened = append(b.opened, port)
	a.closed = false
	return a, nil
}

func testConfig(strict bool) *config.Config {
	cfg := config.Default()
	cfg.Serial.CommandDelay = 0
	cfg.Strict = strict
	return cfg
}

func TestConnect_SkipsClaimedPorts(t *testing.T) {
	so2, _ := tei.NewIdentity(43)
	// ttyUSB0 answers every address; only exclusion keeps SO2 off it.
	b := &bench{ports: map[string]*analyzer{
		"/dev/ttyUSB0": {},
		"/dev/ttyUSB1": {addrs: []byte{so2.Address()}},
	}}
	log, _ := test.NewNullLogger()
	m := monitor.New()

	ins, err := connect(testConfig(true), []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, b.open, log, m, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(ins) != 2 {
		t.Fatalf("got %d instruments, want 2", len(ins))
	}
	if got := ins[0].Port(); got != "/dev/ttyUSB0" {
		t.Errorf("CO on %q, want /dev/ttyUSB0", got)
	}
	if got := ins[1].Port(); got != "/dev/ttyUSB1" {
		t.Errorf("SO2 on %q, want /dev/ttyUSB1", got)
	}
	if want := []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}; !slices.Equal(b.opened, want) {
		t.Errorf("opened %v, want %v", b.opened, want)
	}
	for _, label := range []string{"CO", "SO2"} {
		if got := testutil.ToFloat64(m.InstrumentBound.WithLabelValues(label)); got != 1 {
			t.Errorf("%s bound = %v, want 1", label, got)
		}
	}
}

func TestConnect_MissingInstrument(t *testing.T) {
	co, _ := tei.NewIdentity(48)
	ports := []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}

	tests := []struct {
		name    string
		strict  bool
		wantErr bool
	}{
		{"lenient", false, false},
		{"strict", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &bench{ports: map[string]*analyzer{
				"/dev/ttyUSB0": {addrs: []byte{co.Address()}},
				"/dev/ttyUSB1": {addrs: []byte{}},
			}}
			log, _ := test.NewNullLogger()
			m := monitor.New()

			ins, err := connect(testConfig(tt.strict), ports, b.open, log, m, false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := testutil.ToFloat64(m.InstrumentBound.WithLabelValues("SO2")); got != 0 {
				t.Errorf("SO2 bound = %v, want 0", got)
			}
			if tt.wantErr {
				if !errors.Is(err, tei.ErrNotFound) {
					t.Errorf("error %v is not ErrNotFound", err)
				}
				if !b.ports["/dev/ttyUSB0"].closed {
					t.Error("CO port left open after strict failure")
				}
				return
			}
			if len(ins) != 2 || !ins[0].Bound() || ins[1].Bound() {
				t.Fatalf("want CO bound and SO2 unbound, got %d instruments", len(ins))
			}
			if b.ports["/dev/ttyUSB0"].closed {
				t.Error("CO port closed")
			}
		})
	}
}

func TestConnect_NoPorts(t *testing.T) {
	b := &bench{}
	log, _ := test.NewNullLogger()
	if _, err := connect(testConfig(false), nil, b.open, log, monitor.New(), false); err == nil {
		t.Fatal("want error with no serial ports")
	}
	if len(b.opened) != 0 {
		t.Errorf("opened %v", b.opened)
	}
}
