package find

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

type FilterFn func(*enumerator.PortDetails) bool

func USBFilter(pd *enumerator.PortDetails) bool {
	return pd.IsUSB
}

func SerialFilter(s string) FilterFn {
	return func(pd *enumerator.PortDetails) bool { return pd.SerialNumber == s }
}

// VIDFilter matches a USB vendor id, e.g. "0403" for FTDI adapters.
func VIDFilter(vid string) FilterFn {
	return func(pd *enumerator.PortDetails) bool { return strings.EqualFold(pd.VID, vid) }
}

// Candidates lists the serial ports to probe, in enumeration order. If
// filter is not nil, only ports for which it returns true are kept.
//
// The detailed (USB-aware) listing is preferred; when it is unavailable the
// plain port list is used and filter is ignored.
func Candidates(log logrus.FieldLogger, filter FilterFn) ([]string, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		log.Warnf("detailed port list failed, falling back to plain list: %s", err)
		ports, perr := serial.GetPortsList()
		if perr != nil {
			return nil, perr
		}
		return ports, nil
	}
	log.Debugf("serial ports:\n%s", Details(details))
	return names(details, filter), nil
}

func names(details []*enumerator.PortDetails, filter FilterFn) []string {
	ports := make([]string, 0, len(details))
	for _, pd := range details {
		if filter != nil && !filter(pd) {
			continue
		}
		ports = append(ports, pd.Name)
	}
	return ports
}

// Exclude returns ports without the names in taken, preserving order.
func Exclude(ports []string, taken ...string) []string {
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		if !slices.Contains(taken, p) {
			out = append(out, p)
		}
	}
	return out
}

type Details []*enumerator.PortDetails

func (ds Details) String() string {
	s := make([]string, 0, len(ds))
	for _, pd := range ds {
		s = append(s, fmt.Sprintf("dev %s usb %t vid/pid %s/%s serial %s product %s",
			pd.Name, pd.IsUSB, pd.VID, pd.PID, pd.SerialNumber, pd.Product))
	}
	return strings.Join(s, "\n")
}
