// Package ics turns the weekly template into calendar data: recurring
// series (one per distinct block across the week), concrete agenda
// occurrences expanded with RRULEs, and an iCalendar export.
package ics

import (
	"fmt"
	"strings"

	"github.com/teambition/rrule-go"

	appLog "alos/internal/log"
	"alos/internal/model"
	"alos/internal/schedule"
)

var rruleDays = map[string]rrule.Weekday{
	schedule.Monday:    rrule.MO,
	schedule.Tuesday:   rrule.TU,
	schedule.Wednesday: rrule.WE,
	schedule.Thursday:  rrule.TH,
	schedule.Friday:    rrule.FR,
}

// Series is one block as it recurs through the week. Days that resolve the
// same block to a different title, time or optionality get their own
// series.
type Series struct {
	UID      string
	BlockID  string
	DayIDs   []string
	Days     []rrule.Weekday
	Title    string
	Intent   string
	Optional bool
	Range    schedule.Range
	Block    model.Block
}

// BuildSeries groups the resolved sequence of every weekday into series,
// in week then declaration order. Blocks without a usable time range and
// day-types that are not weekdays are left out.
func BuildSeries(cat *model.Catalog) []Series {
	var out []Series
	index := make(map[string]int)

	for _, day := range cat.Week {
		wd, ok := rruleDays[day.ID]
		if !ok {
			appLog.Debug("ics: skipping non-weekday day-type", "day", day.ID)
			continue
		}
		for _, b := range schedule.ResolveSequence(cat.Base, day) {
			r, ok := schedule.ParseRange(b.Time)
			if !ok || r.End <= r.Start {
				appLog.Debug("ics: skipping block without a usable range", "day", day.ID, "block", b.ID, "time", b.Time)
				continue
			}
			key := fmt.Sprintf("%s|%s|%d-%d|%t", b.ID, b.Title, r.Start, r.End, b.Optional)
			if i, seen := index[key]; seen {
				out[i].DayIDs = append(out[i].DayIDs, day.ID)
				out[i].Days = append(out[i].Days, wd)
				continue
			}
			index[key] = len(out)
			out = append(out, Series{
				BlockID:  b.ID,
				DayIDs:   []string{day.ID},
				Days:     []rrule.Weekday{wd},
				Title:    b.Title,
				Intent:   b.Intent,
				Optional: b.Optional,
				Range:    r,
				Block:    b,
			})
		}
	}

	for i := range out {
		out[i].UID = fmt.Sprintf("%s-%s@alos", out[i].BlockID, strings.Join(out[i].DayIDs, "-"))
	}
	return out
}

// Rule is the weekly RRULE value for s, e.g. "FREQ=WEEKLY;BYDAY=MO,TU".
func (s Series) Rule() string {
	days := make([]string, 0, len(s.Days))
	for _, d := range s.Days {
		days = append(days, d.String())
	}
	return "FREQ=WEEKLY;BYDAY=" + strings.Join(days, ",")
}

// Describe renders the block's actions as plain text. Meeting blocks list
// every playbook in declaration order.
func Describe(b model.Block) string {
	var sb strings.Builder
	if b.Intent != "" {
		fmt.Fprintf(&sb, "Intent: %s\n", b.Intent)
	}
	if m, ok := b.MeetingContent(); ok {
		for _, t := range m.Types {
			fmt.Fprintf(&sb, "\n[%s]\n", t)
			writeActions(&sb, m.Playbooks[t])
		}
	} else {
		writeActions(&sb, b.Playbook(""))
	}
	if len(b.Artifacts) > 0 {
		fmt.Fprintf(&sb, "\nArtifacts: %s\n", strings.Join(b.Artifacts, ", "))
	}
	return strings.TrimSpace(sb.String())
}

func writeActions(sb *strings.Builder, a model.Actions) {
	section := func(name string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(sb, "%s:\n", name)
		for _, it := range items {
			fmt.Fprintf(sb, "- %s\n", it)
		}
	}
	section("AI", a.Assistant)
	section("Human", a.Human)
	section("Outputs", a.Outputs)
}
