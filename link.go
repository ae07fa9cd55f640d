// Copyright (c) 2020–2024 The tei developers. All rights reserved.
// Project site: https://github.com/gotmc/tei
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package tei

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Default link timing. The analyzers drop or garble commands that arrive
// too close together; 0.2 s was nearly always enough, 0.5 s always is.
const (
	DefaultCommandDelay = 500 * time.Millisecond
	DefaultReadTimeout  = time.Second
)

// Terminator ends every command and every response.
const Terminator byte = '\r'

// Link owns one open serial connection to an analyzer.
type Link struct {
	port         string
	rwc          io.ReadWriteCloser
	commandDelay time.Duration
	readTimeout  time.Duration
	sleep        func(time.Duration)
	now          func() time.Time
	log          logrus.FieldLogger
	debug        bool // if true, log frames and responses
}

// LinkOption applies an option to the link.
type LinkOption func(*Link)

// NewLink wraps an open connection to the named port. The connection is
// expected to return a zero-length read when its own read timeout expires,
// as go.bug.st/serial ports do.
func NewLink(port string, rwc io.ReadWriteCloser, opts ...LinkOption) *Link {
	l := Link{
		port:         port,
		rwc:          rwc,
		commandDelay: DefaultCommandDelay,
		readTimeout:  DefaultReadTimeout,
		sleep:        time.Sleep,
		now:          time.Now,
		log:          logrus.StandardLogger(),
	}

	// Apply options using the functional option pattern.
	for _, opt := range opts {
		opt(&l)
	}
	return &l
}

// WithCommandDelay sets the pause taken before every command is written.
func WithCommandDelay(d time.Duration) LinkOption {
	return func(l *Link) { l.commandDelay = d }
}

// WithReadTimeout bounds how long Receive waits for a terminated reply.
func WithReadTimeout(d time.Duration) LinkOption {
	return func(l *Link) { l.readTimeout = d }
}

// WithLogger sets the logger used for debug output.
func WithLogger(log logrus.FieldLogger) LinkOption {
	return func(l *Link) { l.log = log }
}

// WithDebug causes frames and responses to be logged.
func WithDebug() LinkOption { return func(l *Link) { l.debug = true } }

// WithSleep replaces time.Sleep for the command delay.
func WithSleep(sleep func(time.Duration)) LinkOption {
	return func(l *Link) { l.sleep = sleep }
}

// WithNow replaces time.Now for the receive deadline.
func WithNow(now func() time.Time) LinkOption {
	return func(l *Link) { l.now = now }
}

// Port returns the name of the port the link was opened on.
func (l *Link) Port() string { return l.port }

// Send waits the command delay and then writes addr, cmd and the
// terminator. It does not wait for any reply.
func (l *Link) Send(addr byte, cmd string) error {
	l.sleep(l.commandDelay)
	frame := make([]byte, 0, len(cmd)+2)
	frame = append(frame, addr)
	frame = append(frame, cmd...)
	frame = append(frame, Terminator)
	if l.debug {
		l.log.WithField("port", l.port).Debugf("send %q (%x)", frame, frame)
	}
	if _, err := l.rwc.Write(frame); err != nil {
		return fmt.Errorf("error writing %q to %s: %w", cmd, l.port, err)
	}
	return nil
}

// Receive reads until the terminator and returns the reply with
// surrounding whitespace removed. If no terminator arrives before the read
// timeout, ErrNoResponse is returned.
func (l *Link) Receive() (string, error) {
	var sb strings.Builder
	deadline := l.now().Add(l.readTimeout)
	buf := make([]byte, 1)
	for {
		n, err := l.rwc.Read(buf)
		if n > 0 {
			if buf[0] == Terminator {
				s := strings.TrimSpace(sb.String())
				if l.debug {
					l.log.WithField("port", l.port).Debugf("received %q", s)
				}
				return s, nil
			}
			sb.WriteByte(buf[0])
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("error reading from %s: %w", l.port, err)
		}
		// A zero-length read is the port's own timeout expiring.
		if n == 0 || !l.now().Before(deadline) {
			if l.debug && sb.Len() > 0 {
				l.log.WithField("port", l.port).Debugf("unterminated reply %q", sb.String())
			}
			return "", ErrNoResponse
		}
	}
}

// Query sends cmd to addr and returns the reply.
func (l *Link) Query(addr byte, cmd string) (string, error) {
	if err := l.Send(addr, cmd); err != nil {
		return "", err
	}
	return l.Receive()
}

// Close closes the underlying connection.
func (l *Link) Close() error {
	if l == nil || l.rwc == nil {
		return nil
	}
	return l.rwc.Close()
}
