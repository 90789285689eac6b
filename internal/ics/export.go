package ics

import (
	"errors"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "alos/internal/log"
	"alos/internal/model"
	"alos/internal/schedule"
)

const localLayout = "20060102T150405"

// ExportConfig controls the iCalendar export.
type ExportConfig struct {
	// Zone is the IANA name written as TZID on every DTSTART/DTEND.
	Zone string
	// Anchor picks the week the series start in. Zero means now.
	Anchor time.Time
	// Name is the calendar display name.
	Name string
}

// BuildCalendar renders every series of cat as a weekly recurring VEVENT.
// Times are floating wall-clock times tagged with Zone, so the events keep
// their local time across DST changes.
func BuildCalendar(cat *model.Catalog, cfg ExportConfig) (*ical.Calendar, error) {
	if cfg.Zone == "" {
		return nil, errors.New("ics export: zone is empty")
	}
	loc, err := time.LoadLocation(cfg.Zone)
	if err != nil {
		return nil, err
	}
	if cfg.Anchor.IsZero() {
		cfg.Anchor = time.Now()
	}
	if cfg.Name == "" {
		cfg.Name = "Leadership Week"
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//alos//leadership week//EN")
	cal.SetName(cfg.Name)
	cal.SetXWRTimezone(cfg.Zone)

	monday := weekStart(cfg.Anchor.In(loc))
	stamp := cfg.Anchor.UTC()
	addTimezone(cal, cfg.Zone, loc, monday.Year())

	series := BuildSeries(cat)
	for _, s := range series {
		first := firstDay(monday, s)
		start := time.Date(first.Year(), first.Month(), first.Day(), s.Range.Start/60, s.Range.Start%60, 0, 0, loc)
		end := time.Date(first.Year(), first.Month(), first.Day(), s.Range.End/60, s.Range.End%60, 0, 0, loc)

		ev := cal.AddEvent(s.UID)
		ev.SetDtStampTime(stamp)
		ev.SetProperty(ical.ComponentPropertyDtStart, start.Format(localLayout), ical.WithTZID(cfg.Zone))
		ev.SetProperty(ical.ComponentPropertyDtEnd, end.Format(localLayout), ical.WithTZID(cfg.Zone))
		ev.SetProperty(ical.ComponentPropertyRrule, s.Rule())
		ev.SetSummary(s.Title)
		ev.SetDescription(Describe(s.Block))
		if s.Intent != "" {
			ev.SetProperty(ical.ComponentPropertyCategories, s.Intent)
		}
		if s.Optional {
			ev.SetProperty(ical.ComponentProperty("TRANSP"), "TRANSPARENT")
		}
	}

	appLog.Debug("ics export built", "zone", cfg.Zone, "events", len(series))
	return cal, nil
}

// Export serializes BuildCalendar's result.
func Export(cat *model.Catalog, cfg ExportConfig) ([]byte, error) {
	cal, err := BuildCalendar(cat, cfg)
	if err != nil {
		return nil, err
	}
	return []byte(cal.Serialize()), nil
}

func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
}

// firstDay is the first date of the anchor week the series runs on.
func firstDay(monday time.Time, s Series) time.Time {
	best := 7
	for _, id := range s.DayIDs {
		if i := dayOffset[id]; i < best {
			best = i
		}
	}
	return monday.AddDate(0, 0, best)
}

var dayOffset = map[string]int{
	schedule.Monday:    0,
	schedule.Tuesday:   1,
	schedule.Wednesday: 2,
	schedule.Thursday:  3,
	schedule.Friday:    4,
}
