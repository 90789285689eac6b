package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
)

// offsetChange is one UTC offset transition of a zone.
type offsetChange struct {
	At       time.Time
	From, To int
	Name     string
	DST      bool
}

// offsetChanges lists the transitions of loc in [from, to). Transitions are
// located to the second.
func offsetChanges(loc *time.Location, from, to time.Time) []offsetChange {
	var out []offsetChange
	prev := from.In(loc)
	_, prevOff := prev.Zone()
	for t := prev.Add(time.Hour); t.Before(to); t = t.Add(time.Hour) {
		_, off := t.In(loc).Zone()
		if off == prevOff {
			prev = t
			continue
		}
		lo, hi := prev, t
		for hi.Sub(lo) > time.Second {
			mid := lo.Add(hi.Sub(lo) / 2)
			if _, o := mid.In(loc).Zone(); o == prevOff {
				lo = mid
			} else {
				hi = mid
			}
		}
		at := hi.In(loc)
		name, _ := at.Zone()
		out = append(out, offsetChange{At: at, From: prevOff, To: off, Name: name, DST: at.IsDST()})
		prev, prevOff = t, off
	}
	return out
}

// addTimezone appends a VTIMEZONE for zone covering the anchor year and the
// one after it. A zone without transitions gets a single STANDARD rule.
func addTimezone(cal *ical.Calendar, zone string, loc *time.Location, year int) {
	tz := cal.AddTimezone(zone)
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	changes := offsetChanges(loc, from, from.AddDate(2, 0, 0))

	if len(changes) == 0 {
		name, off := from.Zone()
		std := tz.AddStandard()
		setObservance(&std.ComponentBase, "19700101T000000", off, off, name)
		return
	}
	for _, c := range changes {
		// DTSTART of an observance is the onset in the old offset's wall time.
		onset := c.At.In(time.FixedZone("", c.From)).Format(localLayout)
		if c.DST {
			d := &ical.Daylight{}
			setObservance(&d.ComponentBase, onset, c.From, c.To, c.Name)
			tz.Components = append(tz.Components, d)
			continue
		}
		std := tz.AddStandard()
		setObservance(&std.ComponentBase, onset, c.From, c.To, c.Name)
	}
}

func setObservance(cb *ical.ComponentBase, dtstart string, from, to int, name string) {
	cb.SetProperty(ical.ComponentPropertyDtStart, dtstart)
	cb.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetfrom), utcOffset(from))
	cb.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetto), utcOffset(to))
	if name != "" {
		cb.SetProperty(ical.ComponentProperty(ical.PropertyTzname), name)
	}
}

// utcOffset formats seconds east of UTC as "+hhmm".
func utcOffset(sec int) string {
	sign := "+"
	if sec < 0 {
		sign, sec = "-", -sec
	}
	return fmt.Sprintf("%s%02d%02d", sign, sec/3600, sec%3600/60)
}
