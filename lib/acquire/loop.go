package acquire

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/gotmc/tei"
	"github.com/gotmc/tei/lib/cmdlog"
	"github.com/gotmc/tei/lib/monitor"
)

// Measurer takes one set of readings from an analyzer.
type Measurer interface {
	Measure() tei.Measurement
}

// Source is one analyzer and the label that prefixes its columns.
type Source struct {
	Label      string
	Instrument Measurer
}

// Config is the runtime configuration of the loop.
type Config struct {
	WriteInterval time.Duration
	TimeException time.Duration
	FlushInterval time.Duration
	OutputDir     string
	NewFilePath   string // existence requests a new file; "" disables
	FilePrefix    string
}

// LoopState is everything the loop carries from one sample to the next.
type LoopState struct {
	LastSample time.Duration // monotonic; end of the previous iteration
	LastFlush  time.Duration // monotonic; last successful flush or file open
	LastWall   time.Time     // wall clock at the end of the previous iteration
	File       File          // nil when no file is open
	FileName   string
}

// Loop samples every source on a fixed interval and appends rows to
// rotating log files.
type Loop struct {
	cfg     Config
	sources []Source
	header  string
	clock   Clock
	fs      FS
	console io.Writer
	log     logrus.FieldLogger
	metrics *monitor.Metrics
	state   LoopState
}

// LoopOption applies an option to the loop.
type LoopOption func(*Loop)

func WithClock(c Clock) LoopOption { return func(l *Loop) { l.clock = c } }

func WithFS(fs FS) LoopOption { return func(l *Loop) { l.fs = fs } }

// WithConsole sets where rows are mirrored; nil disables the mirror.
func WithConsole(w io.Writer) LoopOption { return func(l *Loop) { l.console = w } }

func WithLogger(log logrus.FieldLogger) LoopOption { return func(l *Loop) { l.log = log } }

func WithMetrics(m *monitor.Metrics) LoopOption { return func(l *Loop) { l.metrics = m } }

// NewLoop creates a loop over sources, sampled in the given order. The
// first sample is due one write interval after NewLoop returns.
func NewLoop(cfg Config, sources []Source, opts ...LoopOption) (*Loop, error) {
	if cfg.WriteInterval <= 0 || cfg.TimeException <= 0 || cfg.FlushInterval <= 0 {
		return nil, fmt.Errorf("acquire: intervals must be > 0")
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("acquire: at least one source required")
	}
	labels := make([]string, 0, len(sources))
	for _, s := range sources {
		labels = append(labels, s.Label)
	}
	l := &Loop{
		cfg:     cfg,
		sources: sources,
		header:  strings.Join(Header(labels), "\t"),
		clock:   NewSystemClock(),
		fs:      OSFS{},
		console: os.Stdout,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.state.LastSample = l.clock.Monotonic()
	return l, nil
}

// State returns a copy of the loop state.
func (l *Loop) State() LoopState { return l.state }

// Run samples until ctx is done, then closes the open file.
func (l *Loop) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if err := l.Step(ctx); err != nil && ctx.Err() == nil {
			return err
		}
	}
	return l.closeFile("shutdown")
}

// Step performs one iteration: read every source, wait out the write
// interval, write one row, then check for clock shifts, rotation and
// flushing. It only returns an error if ctx ends the wait.
func (l *Loop) Step(ctx context.Context) error {
	values := l.sample()

	elapsed := l.clock.Monotonic() - l.state.LastSample
	if wait := l.cfg.WriteInterval - elapsed; wait > 0 {
		if err := l.clock.Sleep(ctx, wait); err != nil {
			return err
		}
		elapsed = l.clock.Monotonic() - l.state.LastSample
	}

	if l.state.File == nil {
		if err := l.open(); err != nil {
			l.fail(Create, err)
		} else {
			elapsed = 0
		}
	}

	predicted := l.state.LastWall.Add(elapsed)
	written := l.state.File != nil && l.write(predicted, values)
	now := l.clock.Now()
	if written {
		l.rotate(predicted, now)
	}

	l.state.LastWall = now
	l.state.LastSample = l.clock.Monotonic()

	if l.state.File != nil && l.state.LastSample-l.state.LastFlush > l.cfg.FlushInterval {
		if err := l.state.File.Flush(); err != nil {
			l.fail(Flush, err)
		} else {
			l.state.LastFlush = l.state.LastSample
		}
	}
	return nil
}

// sample reads every source in order and formats the values.
func (l *Loop) sample() []string {
	values := make([]string, 0, 4*len(l.sources))
	for _, s := range l.sources {
		for i, r := range s.Instrument.Measure().Readings() {
			v := r.Value
			if r.Err != nil {
				v = math.NaN()
				l.readFailed(s.Label, Quantities[i], r.Err)
			}
			values = append(values, FormatValue(v))
		}
	}
	return values
}

func (l *Loop) readFailed(label, quantity string, err error) {
	kind := Classify(err)
	if l.metrics != nil {
		l.metrics.ReadFailures.WithLabelValues(label, quantity, string(kind)).Inc()
	}
	// Unbound instruments fail every read; that was reported at startup.
	if kind != Unbound {
		l.log.WithFields(logrus.Fields{"instrument": label, "quantity": quantity}).Debugf("read failed: %s", err)
	}
}

func (l *Loop) open() error {
	now := l.clock.Now()
	name := filepath.Join(l.cfg.OutputDir, FileName(l.cfg.FilePrefix, now))
	f, err := l.fs.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, l.header+"\n"); err != nil {
		return multierr.Append(err, f.Close())
	}
	l.state.File = f
	l.state.FileName = name
	l.state.LastWall = now
	l.state.LastFlush = l.clock.Monotonic()
	l.log.WithField("file", name).Info("opened new log file")
	return nil
}

// write appends the row stamped predicted and mirrors it to the console.
func (l *Loop) write(predicted time.Time, values []string) bool {
	row := FormatRow(predicted, values)
	if _, err := io.WriteString(l.state.File, row+"\n"); err != nil {
		l.fail(Write, err)
		return false
	}
	if l.console != nil {
		fmt.Fprintln(l.console, row)
	}
	if l.metrics != nil {
		l.metrics.SamplesWritten.Inc()
		l.metrics.LastSample.Set(float64(predicted.Unix()))
	}
	return true
}

// rotate closes the file if the clock has shifted, the date has changed
// or a new file was requested.
func (l *Loop) rotate(predicted, now time.Time) {
	diff := now.Sub(predicted)
	if l.metrics != nil {
		l.metrics.ClockShift.Set(diff.Seconds())
	}

	if diff > l.cfg.TimeException || diff < -l.cfg.TimeException {
		note := shiftNote(now, predicted, diff)
		cmdlog.Alert(l.log.WithField("file", l.state.FileName), note)
		l.fail(ClockShift, l.annotate(note))
		return
	}

	requested := l.cfg.NewFilePath != "" && l.fs.IsFile(l.cfg.NewFilePath)
	switch {
	case requested:
		l.closeFile("request")
		if err := l.fs.Remove(l.cfg.NewFilePath); err != nil {
			l.log.WithField("path", l.cfg.NewFilePath).Errorf("cannot consume new-file request: %s", err)
		}
	case dateBefore(l.state.LastWall, now):
		l.closeFile("date")
	}
}

func (l *Loop) annotate(note string) error {
	_, err := io.WriteString(l.state.File, note+"\n")
	return err
}

// fail applies Policy to a file-level failure.
func (l *Loop) fail(kind Kind, err error) {
	log := l.log.WithField("file", l.state.FileName)
	switch Policy[kind] {
	case CloseWithNote:
		if err != nil {
			log.Errorf("%s: cannot write exception note: %s", kind, err)
		}
		l.closeFile(string(kind))
	case Reopen:
		log.Errorf("%s failed, next sample opens a new file: %s", kind, err)
		if kind == Flush && l.metrics != nil {
			l.metrics.FlushFailures.Inc()
		}
		if l.state.File != nil {
			l.closeFile(string(kind))
		}
	default:
		log.Warnf("%s: %s", kind, err)
	}
}

// closeFile closes the open file, if any, recording reason.
func (l *Loop) closeFile(reason string) error {
	if l.state.File == nil {
		return nil
	}
	err := l.state.File.Close()
	log := l.log.WithFields(logrus.Fields{"file": l.state.FileName, "reason": reason})
	if err != nil {
		log.Errorf("error closing log file: %s", err)
	} else {
		log.Info("closed log file")
	}
	if l.metrics != nil {
		l.metrics.FileRotations.WithLabelValues(reason).Inc()
	}
	l.state.File = nil
	l.state.FileName = ""
	return err
}
