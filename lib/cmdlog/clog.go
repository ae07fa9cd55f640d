package cmdlog

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/gotmc/tei"
)

func isAscii(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		switch {
		case r < 7:
			return true
		case r > 6 && r < 14:
			return false
		case r > 13 && r < 32:
			return true
		case r > 127:
			return true
		}
		return false
	})
}

var (
	PortStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	MatchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	MissStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	AlertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// ProbeObserver narrates discovery of the named instrument, one line per
// probed port. Pass it to tei.Discover.
func ProbeObserver(log logrus.FieldLogger, name string) func(tei.ProbeResult) {
	log = log.WithField("instrument", name)
	return func(r tei.ProbeResult) {
		port := PortStyle.Render(r.Port)
		switch {
		case r.Matched():
			log.Infof("%s: got response %s; matched instrument address", port, quote(r.Response))
		case r.Err != nil:
			log.Debugf("%s: %s", port, MissStyle.Render(r.Err.Error()))
		default:
			log.Debugf("%s: %s", port, MissStyle.Render("<no response>"))
		}
	}
}

// Alert logs a message that an operator should notice, such as a clock
// shift that forced a new file.
func Alert(log logrus.FieldLogger, msg string) {
	log.Warn(AlertStyle.Render(msg))
}

func quote(s string) string {
	if isAscii(s) {
		return MatchStyle.Render("<" + s + ">")
	}
	return MatchStyle.Render(strings.ToValidUTF8(strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '.'
		}
		return r
	}, s), "."))
}
