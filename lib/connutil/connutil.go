package connutil

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/gotmc/tei"
)

// Conn holds the line settings shared by every analyzer port.
type Conn struct {
	BaudRate    int
	ReadTimeout time.Duration
}

// Default is 9600 baud, 8N1, no flow control, 1 s read timeout.
var Default = Conn{BaudRate: 9600, ReadTimeout: tei.DefaultReadTimeout}

func (c Conn) mode() *serial.Mode {
	baud := c.BaudRate
	if baud == 0 {
		baud = Default.BaudRate
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Open opens port with the analyzer line settings. It satisfies tei.Opener.
func (c Conn) Open(port string) (io.ReadWriteCloser, error) {
	p, err := serial.Open(port, c.mode())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port, err)
	}
	timeout := c.ReadTimeout
	if timeout <= 0 {
		timeout = Default.ReadTimeout
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", port, err)
	}
	// Go straight to the command exchange; stale bytes would be taken as a reply.
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, fmt.Errorf("reset input buffer on %s: %w", port, err)
	}
	return p, nil
}

var _ tei.Opener = Default.Open
