package acquire

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeFormat is the layout of the datetime column.
const TimeFormat = "2006-01-02 15:04:05"

// fileTimeFormat stamps log file names.
const fileTimeFormat = "20060102T150405"

// Column suffixes, in sampling order.
var columnSuffixes = []string{"_ppb", "_flow_lpm", "_pres_torr", "_temp_C"}

// Quantities names the readings for metrics, in sampling order.
var Quantities = []string{"concentration", "flow", "pressure", "temperature"}

// Header returns the column names for instruments with the given labels.
func Header(labels []string) []string {
	h := []string{"datetime"}
	for _, l := range labels {
		for _, s := range columnSuffixes {
			h = append(h, l+s)
		}
	}
	return h
}

// FileName returns the log file name for a file opened at t.
func FileName(prefix string, t time.Time) string {
	return prefix + t.Format(fileTimeFormat) + ".txt"
}

// FormatValue renders v the way the data files always have: shortest
// round-trip digits, at least one decimal place, NaN for a missing value.
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	e := strconv.FormatFloat(v, 'e', -1, 64)
	exp, _ := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return e
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatRow joins a timestamp and formatted values with tabs.
func FormatRow(t time.Time, values []string) string {
	return t.Format(TimeFormat) + "\t" + strings.Join(values, "\t")
}

func shiftNote(now, predicted time.Time, diff time.Duration) string {
	return fmt.Sprintf("Time shift exception -- computer time is: %s predicted time was: %s seconds time shifted = %s",
		now.Format(TimeFormat), predicted.Format(TimeFormat), FormatValue(diff.Seconds()))
}

// dateBefore reports whether a falls on an earlier calendar day than b.
func dateBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC).Before(time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC))
}
