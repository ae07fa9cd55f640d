package tei

import (
	"bytes"
	"errors"
	"time"
)

// fakePort answers frames addressed to addr from a table of replies. A
// command with no reply behaves like a silent line: reads time out.
type fakePort struct {
	addr    byte
	replies map[string]string
	frames  [][]byte
	pending bytes.Buffer
	readErr error
	closed  bool
}

func newFakePort(addr byte, replies map[string]string) *fakePort {
	return &fakePort{addr: addr, replies: replies}
}

func (f *fakePort) Write(p []byte) (int, error) {
	if f.closed {
		return 0, errors.New("port closed")
	}
	frame := append([]byte(nil), p...)
	f.frames = append(f.frames, frame)
	if len(frame) < 2 || frame[0] != f.addr || frame[len(frame)-1] != Terminator {
		return len(p), nil
	}
	if r, ok := f.replies[string(frame[1:len(frame)-1])]; ok {
		f.pending.WriteString(r)
	}
	return len(p), nil
}

func (f *fakePort) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if f.pending.Len() == 0 {
		return 0, nil
	}
	return f.pending.Read(p)
}

func (f *fakePort) Close() error {
	f.closed = true
	return nil
}

// noSleep records requested delays instead of sleeping.
type noSleep struct{ delays []time.Duration }

func (s *noSleep) sleep(d time.Duration) { s.delays = append(s.delays, d) }
