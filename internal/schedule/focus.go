package schedule

import "alos/internal/model"

type timedBlock struct {
	id string
	r  Range
}

// ClassifyFocus tells which block the offset falls in (now), which one
// starts next (next), or that the day is over (after, pointing at the last
// timed block). Blocks without a parseable range are skipped. Overlaps go
// to the block declared first.
func ClassifyFocus(blocks []model.Block, offset int) model.Focus {
	timed := make([]timedBlock, 0, len(blocks))
	for _, b := range blocks {
		if r, ok := ParseRange(b.Time); ok {
			timed = append(timed, timedBlock{id: b.ID, r: r})
		}
	}

	for _, t := range timed {
		if t.r.Contains(offset) {
			return model.Focus{Mode: model.FocusNow, BlockID: t.id}
		}
	}
	for _, t := range timed {
		if t.r.Start > offset {
			return model.Focus{Mode: model.FocusNext, BlockID: t.id}
		}
	}

	f := model.Focus{Mode: model.FocusAfter}
	if len(timed) > 0 {
		f.BlockID = timed[len(timed)-1].id
	}
	return f
}
