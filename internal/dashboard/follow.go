package dashboard

import (
	"strings"
	"time"

	"alos/internal/model"
	"alos/internal/schedule"
)

// Follow applies one clock tick to sel. The selected day snaps back to
// today; when that changes the day, the active block resets to the day's
// first block. With no search active, the focus block becomes active if
// the day changed or focus moved away from lastFocus.
//
// Follow lets viewers that keep their selection client-side behave like a
// Board: they echo the selection and the focus block they last rendered.
func Follow(cat *model.Catalog, sel Selection, lastFocus string, instant time.Time, zone string) Selection {
	today := schedule.ResolveDayType(instant, zone)
	blocks := schedule.SequenceFor(cat, today)

	force := false
	if sel.Day != today {
		sel.Day = today
		sel.BlockID = ""
		sel.MeetingType = ""
		if len(blocks) > 0 {
			sel.BlockID = blocks[0].ID
		}
		force = true
	}

	focus := schedule.ClassifyFocus(blocks, schedule.MinutesSinceMidnight(instant, zone))
	if strings.TrimSpace(sel.Query) == "" && focus.BlockID != "" && (force || focus.BlockID != lastFocus) {
		sel.BlockID = focus.BlockID
	}
	return sel
}
