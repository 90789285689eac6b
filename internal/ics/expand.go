package ics

import (
	"errors"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	appLog "alos/internal/log"
	"alos/internal/schedule"
)

const (
	defaultMaxOccurrencesPerSeries = 500
)

// ExpandConfig controls how the weekly series are expanded.
type ExpandConfig struct {
	// Location is the zone whose wall clock the template is read in.
	// If nil, time.Local is used.
	Location *time.Location

	// RangeStart / RangeEnd bound the window. Occurrences overlapping the
	// window are kept.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerSeries is a safety cap. If zero,
	// defaultMaxOccurrencesPerSeries is used.
	MaxOccurrencesPerSeries int
}

// Occurrence is one concrete instance of a series.
type Occurrence struct {
	UID         string
	InstanceKey string
	BlockID     string
	DayID       string
	Title       string
	Intent      string
	Optional    bool
	Start       time.Time
	End         time.Time
}

// ExpandResult wraps the expanded occurrences and the series that hit the
// cap.
type ExpandResult struct {
	Occurrences []Occurrence
	Truncated   []string
}

// ExpandOccurrences expands series into occurrences within the configured
// window, sorted by start. Ties keep series order.
func ExpandOccurrences(series []Series, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerSeries <= 0 {
		cfg.MaxOccurrencesPerSeries = defaultMaxOccurrencesPerSeries
	}

	all := make([]Occurrence, 0)
	for _, s := range series {
		occ, hitCap, err := expandSeries(s, cfg)
		if err != nil {
			appLog.Error("expand: failed to build rule", err, "uid", s.UID, "rrule", s.Rule())
			continue
		}
		if hitCap {
			result.Truncated = append(result.Truncated, s.UID)
			appLog.Warn("expand: truncated occurrences for series due to cap", "uid", s.UID, "cap", cfg.MaxOccurrencesPerSeries)
		}
		all = append(all, occ...)
	}

	slices.SortStableFunc(all, func(a, b Occurrence) int {
		return a.Start.Compare(b.Start)
	})
	result.Occurrences = all
	return result, nil
}

func expandSeries(s Series, cfg ExpandConfig) ([]Occurrence, bool, error) {
	loc := cfg.Location
	from := cfg.RangeStart.In(loc)

	// Anchor a day early so an occurrence already running at RangeStart is
	// still produced.
	anchor := time.Date(from.Year(), from.Month(), from.Day()-1, s.Range.Start/60, s.Range.Start%60, 0, 0, loc)
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   anchor,
		Byweekday: s.Days,
	})
	if err != nil {
		return nil, false, err
	}

	starts := r.Between(anchor, cfg.RangeEnd.In(loc), true)
	out := make([]Occurrence, 0, len(starts))
	hitCap := false
	for _, start := range starts {
		end := time.Date(start.Year(), start.Month(), start.Day(), s.Range.End/60, s.Range.End%60, 0, 0, loc)
		if !end.After(cfg.RangeStart) {
			continue
		}
		if len(out) == cfg.MaxOccurrencesPerSeries {
			hitCap = true
			break
		}
		out = append(out, Occurrence{
			UID:         s.UID,
			InstanceKey: s.UID + "/" + start.Format(time.RFC3339),
			BlockID:     s.BlockID,
			DayID:       schedule.WeekdayID(start.Weekday()),
			Title:       s.Title,
			Intent:      s.Intent,
			Optional:    s.Optional,
			Start:       start,
			End:         end,
		})
	}
	return out, hitCap, nil
}
