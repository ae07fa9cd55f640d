package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gotmc/tei"
)

// fakeClock advances only when the loop sleeps or a test moves it.
type fakeClock struct {
	wall   time.Time
	mono   time.Duration
	sleeps []time.Duration
}

func newFakeClock(wall time.Time) *fakeClock { return &fakeClock{wall: wall} }

func (c *fakeClock) Now() time.Time           { return c.wall }
func (c *fakeClock) Monotonic() time.Duration { return c.mono }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.advance(d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.wall = c.wall.Add(d)
	c.mono += d
}

// jump steps the wall clock alone, as NTP or an operator would.
func (c *fakeClock) jump(d time.Duration) { c.wall = c.wall.Add(d) }

// memFile exposes only Write, so io.WriteString cannot bypass the
// closed and writeErr checks.
type memFile struct {
	buf      bytes.Buffer
	flushes  int
	closed   bool
	late     int // writes attempted after Close
	flushErr error
	writeErr error
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.closed {
		f.late++
		return 0, errors.New("write to closed file")
	}
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.buf.Write(p)
}

func (f *memFile) Flush() error {
	if f.flushErr != nil {
		return f.flushErr
	}
	f.flushes++
	return nil
}

func (f *memFile) Close() error {
	f.closed = true
	return nil
}

func (f *memFile) String() string { return f.buf.String() }

func (f *memFile) lines() []string {
	return strings.Split(strings.TrimSuffix(f.String(), "\n"), "\n")
}

type memFS struct {
	files     map[string]*memFile
	plain     map[string]bool
	createErr error
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string]*memFile), plain: make(map[string]bool)}
}

func (fs *memFS) Create(name string) (File, error) {
	if fs.createErr != nil {
		return nil, fs.createErr
	}
	f := &memFile{}
	fs.files[name] = f
	return f, nil
}

func (fs *memFS) IsFile(name string) bool { return fs.plain[name] }

func (fs *memFS) Remove(name string) error {
	if !fs.plain[name] {
		return fmt.Errorf("remove %s: no such file", name)
	}
	delete(fs.plain, name)
	return nil
}

// names returns the created file names in creation (= time) order.
func (fs *memFS) names() []string {
	var n []string
	for k := range fs.files {
		n = append(n, k)
	}
	sort.Strings(n)
	return n
}

// fixed returns the same measurement every time, taking latency to do so.
type fixed struct {
	clock   *fakeClock
	latency time.Duration
	values  [4]float64
}

func (f *fixed) Measure() tei.Measurement {
	if f.clock != nil {
		f.clock.advance(f.latency)
	}
	r := func(v float64) tei.Reading {
		if math.IsNaN(v) {
			return tei.Reading{Value: v, Err: tei.ErrNoResponse}
		}
		return tei.Reading{Value: v}
	}
	return tei.Measurement{
		Concentration: r(f.values[0]),
		Flow:          r(f.values[1]),
		Pressure:      r(f.values[2]),
		Temperature:   r(f.values[3]),
	}
}

// analyzerPort is a serial line with one analyzer answering from a table.
type analyzerPort struct {
	addr    byte
	replies map[string]string
	pending bytes.Buffer
}

func (p *analyzerPort) Write(b []byte) (int, error) {
	if len(b) > 1 && b[0] == p.addr {
		p.pending.WriteString(p.replies[string(b[1:len(b)-1])])
	}
	return len(b), nil
}

func (p *analyzerPort) Read(b []byte) (int, error) {
	if p.pending.Len() == 0 {
		return 0, nil
	}
	return p.pending.Read(b)
}

func (p *analyzerPort) Close() error { return nil }
