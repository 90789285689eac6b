// Package schedule resolves the weekly leadership template against the
// wall clock: which day-type applies, which block sequence that day runs,
// and which block is active now or up next.
//
// Everything here is a pure function over immutable inputs.
package schedule

import (
	"regexp"
	"strconv"
)

// MinutesPerDay bounds every minute offset: [0, MinutesPerDay).
const MinutesPerDay = 24 * 60

// Range is a same-day clock range in minutes since local midnight.
// End is exclusive.
type Range struct {
	Start int
	End   int
}

// Contains reports start <= offset < end.
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Accepted separators: en-dash, em-dash, hyphen.
var rangePattern = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*(?:–|—|-)\s*(\d{1,2}):(\d{2})\s*$`)

// ParseRange parses "H:MM–H:MM". ok is false for anything that does not
// match or carries an hour above 23 or a minute above 59. start < end is not
// enforced.
func ParseRange(text string) (r Range, ok bool) {
	m := rangePattern.FindStringSubmatch(text)
	if m == nil {
		return Range{}, false
	}
	start, ok := clockMinutes(m[1], m[2])
	if !ok {
		return Range{}, false
	}
	end, ok := clockMinutes(m[3], m[4])
	if !ok {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

func clockMinutes(hh, mm string) (int, bool) {
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
