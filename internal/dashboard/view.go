// Package dashboard composes what a viewer sees: the selected day's blocks
// narrowed by the search query, NOW/NEXT tags, and the detail of the active
// block resolved through its meeting playbook.
package dashboard

import (
	"slices"
	"strings"
	"time"

	"alos/internal/model"
	"alos/internal/schedule"
)

// Tags shown on block tiles.
const (
	TagNow  = "NOW"
	TagNext = "NEXT"
)

// Selection is the viewer-controlled state.
type Selection struct {
	Day         string
	Query       string
	BlockID     string
	MeetingType string
}

// Tile is one row of the block list.
type Tile struct {
	Block  model.Block
	Tag    string
	Active bool
}

// Detail is the active block with its display actions resolved.
type Detail struct {
	Block        model.Block
	MeetingTypes []string
	MeetingType  string
	Actions      model.Actions
}

// View is the composed screen state.
type View struct {
	Day        model.DayType
	Today      string
	Zone       string
	Instant    time.Time
	Minutes    int
	Focus      model.Focus
	Searching  bool
	Tiles      []Tile
	NoMatches  bool
	Active     *Detail
	Selection  Selection
	TotalCount int
}

// Compose builds the view for sel at instant in zone. An empty sel.Day
// means today. An empty sel.BlockID follows the focus block unless a search
// is active. The returned View.Selection holds the effective selection.
func Compose(cat *model.Catalog, sel Selection, instant time.Time, zone string) View {
	today := schedule.ResolveDayType(instant, zone)
	if sel.Day == "" {
		sel.Day = today
	}
	day, _ := schedule.FindDay(cat.Week, sel.Day)
	sel.Day = day.ID

	blocks := schedule.ResolveSequence(cat.Base, day)
	filtered := schedule.FilterBlocks(blocks, sel.Query)
	minutes := schedule.MinutesSinceMidnight(instant, zone)
	focus := schedule.ClassifyFocus(blocks, minutes)
	searching := strings.TrimSpace(sel.Query) != ""

	if sel.BlockID == "" && !searching {
		sel.BlockID = focus.BlockID
	}
	active, ok := pickActive(blocks, filtered, sel.BlockID)

	v := View{
		Day:        day,
		Today:      today,
		Zone:       zone,
		Instant:    instant,
		Minutes:    minutes,
		Focus:      focus,
		Searching:  searching,
		NoMatches:  len(filtered) == 0,
		TotalCount: len(blocks),
	}

	if ok {
		sel.BlockID = active.ID
		d := &Detail{Block: active}
		if m, isMeeting := active.MeetingContent(); isMeeting {
			if !m.Has(sel.MeetingType) && len(m.Types) > 0 {
				sel.MeetingType = m.Types[0]
			}
			d.MeetingTypes = slices.Clone(m.Types)
			d.MeetingType = sel.MeetingType
		} else {
			sel.MeetingType = ""
		}
		d.Actions = active.Playbook(sel.MeetingType)
		v.Active = d
	} else {
		sel.BlockID = ""
		sel.MeetingType = ""
	}

	v.Tiles = make([]Tile, 0, len(filtered))
	for _, b := range filtered {
		v.Tiles = append(v.Tiles, Tile{
			Block:  b,
			Tag:    tagFor(b.ID, focus, searching),
			Active: b.ID == sel.BlockID,
		})
	}
	v.Selection = sel
	return v
}

// pickActive prefers id among the filtered blocks, then the first filtered
// block, then the first block of the day.
func pickActive(blocks, filtered []model.Block, id string) (model.Block, bool) {
	for _, b := range filtered {
		if b.ID == id {
			return b, true
		}
	}
	if len(filtered) > 0 {
		return filtered[0], true
	}
	if len(blocks) > 0 {
		return blocks[0], true
	}
	return model.Block{}, false
}

func tagFor(id string, f model.Focus, searching bool) string {
	if searching || id != f.BlockID {
		return ""
	}
	switch f.Mode {
	case model.FocusNow:
		return TagNow
	case model.FocusNext:
		return TagNext
	default:
		return ""
	}
}
