// Package humanfmt renders counts, sizes, durations and percentages for the
// run summary and the "_h" companion log fields.
package humanfmt

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// Bytes formats a byte count using IEC binary units, e.g. "1.5 MiB".
func Bytes(b int64) string {
	if b < 0 {
		return strconv.FormatInt(b, 10) + " B"
	}
	return humanize.IBytes(uint64(b))
}

// Comma formats n with thousands separators, e.g. "1,234,567".
func Comma(n int64) string {
	return humanize.Comma(n)
}

// Duration formats d compactly: "2h15m", "1m30s", "1.23s", "45.6ms", "500ns".
func Duration(d time.Duration) string {
	switch {
	case d < 0:
		return d.String()
	case d >= time.Hour:
		return compound(d, time.Hour, time.Minute, "h", "m")
	case d >= time.Minute:
		return compound(d, time.Minute, time.Second, "m", "s")
	case d >= time.Second:
		return strconv.FormatFloat(d.Seconds(), 'f', 2, 64) + "s"
	case d >= time.Millisecond:
		return scaled(d, time.Millisecond, "ms")
	case d >= time.Microsecond:
		return scaled(d, time.Microsecond, "µs")
	}
	return strconv.FormatInt(d.Nanoseconds(), 10) + "ns"
}

func compound(d, major, minor time.Duration, majorUnit, minorUnit string) string {
	s := strconv.FormatInt(int64(d/major), 10) + majorUnit
	if rest := int64(d % major / minor); rest != 0 {
		s += strconv.FormatInt(rest, 10) + minorUnit
	}
	return s
}

func scaled(d, unit time.Duration, suffix string) string {
	return strconv.FormatFloat(float64(d)/float64(unit), 'f', 1, 64) + suffix
}

var countUnits = []struct {
	size   float64
	suffix string
}{
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// Count abbreviates large counts: "1.23M", "4.56K", "789".
func Count(n int64) string {
	for _, u := range countUnits {
		if float64(n) >= u.size {
			return strconv.FormatFloat(float64(n)/u.size, 'f', 2, 64) + u.suffix
		}
	}
	return strconv.FormatInt(n, 10)
}

// Percent formats a value already scaled to 0-100, e.g. "33.33%".
func Percent(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64) + "%"
}
