package acquire

import (
	"errors"

	"github.com/gotmc/tei"
)

// Kind names a failure the loop absorbs. Kinds double as metric labels.
type Kind string

const (
	Unbound    Kind = "unbound"   // instrument never found
	Timeout    Kind = "timeout"   // no reply within the read timeout
	Parse      Kind = "parse"     // reply was not a number
	Transport  Kind = "transport" // serial read/write error
	ClockShift Kind = "clock"     // wall clock left the predicted timeline
	Flush      Kind = "flush"     // open file could not be flushed
	Create     Kind = "create"    // new file could not be created
	Write      Kind = "write"     // row could not be written
)

// Action is the loop's response to a failure.
type Action int

const (
	// RecordNaN keeps the row; the value is written as NaN.
	RecordNaN Action = iota
	// CloseWithNote appends an exception line and closes the file.
	CloseWithNote
	// Reopen drops the file handle; the next sample opens a new file.
	Reopen
)

// Policy maps every failure kind to its action. Nothing stops the loop.
var Policy = map[Kind]Action{
	Unbound:    RecordNaN,
	Timeout:    RecordNaN,
	Parse:      RecordNaN,
	Transport:  RecordNaN,
	ClockShift: CloseWithNote,
	Flush:      Reopen,
	Create:     Reopen,
	Write:      Reopen,
}

// Classify returns the kind of a failed reading.
func Classify(err error) Kind {
	var pe *tei.ParseError
	switch {
	case errors.Is(err, tei.ErrUnbound):
		return Unbound
	case errors.Is(err, tei.ErrNoResponse):
		return Timeout
	case errors.As(err, &pe):
		return Parse
	default:
		return Transport
	}
}
