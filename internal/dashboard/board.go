package dashboard

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	appLog "alos/internal/log"
	"alos/internal/model"
	"alos/internal/schedule"
)

var (
	ErrUnknownDay         = errors.New("unknown day type")
	ErrUnknownBlock       = errors.New("unknown block")
	ErrNotMeeting         = errors.New("active block has no meeting playbooks")
	ErrUnknownMeetingType = errors.New("unknown meeting type")
)

// Board is the interactive presentation state shared by the console and
// anything else that drives one viewer session. It is safe for concurrent
// use; Tick is normally called from the clock sampler.
type Board struct {
	cat  *model.Catalog
	zone string

	mu        sync.RWMutex
	sel       Selection
	now       time.Time
	lastFocus string
}

// NewBoard opens a board on today's day type at now.
func NewBoard(cat *model.Catalog, zone string, now time.Time) *Board {
	b := &Board{cat: cat, zone: zone, now: now}
	b.sel.Day = schedule.ResolveDayType(now, zone)
	b.resetActive()
	b.refocus(true)
	return b
}

// Tick records a new clock sample. The selected day follows today, and the
// active block follows the focus block whenever focus moves while no search
// is active.
func (b *Board) Tick(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.now = now
	prev := b.sel.Day
	b.sel = Follow(b.cat, b.sel, b.lastFocus, now, b.zone)
	if b.sel.Day != prev {
		appLog.Debug("board day rolled over", "from", prev, "to", b.sel.Day)
	}

	v := b.compose()
	b.sel = v.Selection
	b.lastFocus = v.Focus.BlockID
}

// SelectDay switches the viewed day and resets the active block to the
// first block of that day.
func (b *Board) SelectDay(id string) error {
	id = strings.ToLower(strings.TrimSpace(id))
	if !slices.ContainsFunc(b.cat.Week, func(d model.DayType) bool { return d.ID == id }) {
		return fmt.Errorf("%w: %q", ErrUnknownDay, id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sel.Day = id
	b.resetActive()
	b.refocus(true)
	return nil
}

// SetQuery narrows the block list. Clearing the query hands the active
// block back to the focus block.
func (b *Board) SetQuery(q string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sel.Query = q
	b.refocus(true)
}

// SelectBlock makes id the active block. id must belong to the selected
// day's resolved sequence.
func (b *Board) SelectBlock(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !slices.ContainsFunc(b.blocks(), func(bl model.Block) bool { return bl.ID == id }) {
		return fmt.Errorf("%w: %q on %s", ErrUnknownBlock, id, b.sel.Day)
	}
	b.sel.BlockID = id
	b.settle()
	return nil
}

// SelectMeetingType switches the playbook shown for the active meeting
// block.
func (b *Board) SelectMeetingType(t string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v := b.compose()
	if v.Active == nil || len(v.Active.MeetingTypes) == 0 {
		return ErrNotMeeting
	}
	if !slices.Contains(v.Active.MeetingTypes, t) {
		return fmt.Errorf("%w: %q (have %s)", ErrUnknownMeetingType, t, strings.Join(v.Active.MeetingTypes, ", "))
	}
	b.sel.MeetingType = t
	return nil
}

// Selection returns the effective selection.
func (b *Board) Selection() Selection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sel
}

// View composes the current screen.
func (b *Board) View() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.compose()
}

// Catalog returns the catalog the board reads.
func (b *Board) Catalog() *model.Catalog {
	return b.cat
}

func (b *Board) blocks() []model.Block {
	return schedule.SequenceFor(b.cat, b.sel.Day)
}

func (b *Board) compose() View {
	return Compose(b.cat, b.sel, b.now, b.zone)
}

func (b *Board) resetActive() {
	b.sel.BlockID = ""
	b.sel.MeetingType = ""
	if blocks := b.blocks(); len(blocks) > 0 {
		b.sel.BlockID = blocks[0].ID
	}
}

// refocus moves the active block to the focus block when the query is
// empty and either force is set or the focus block changed since the last
// call.
func (b *Board) refocus(force bool) {
	focus := schedule.ClassifyFocus(b.blocks(), schedule.MinutesSinceMidnight(b.now, b.zone))
	changed := focus.BlockID != b.lastFocus
	b.lastFocus = focus.BlockID
	if strings.TrimSpace(b.sel.Query) == "" && focus.BlockID != "" && (force || changed) {
		b.sel.BlockID = focus.BlockID
	}
	b.settle()
}

// settle stores the effective selection after filtering and meeting type
// coercion.
func (b *Board) settle() {
	b.sel = b.compose().Selection
}
