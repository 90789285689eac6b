package schedule

import "alos/internal/model"

// ResolveSequence returns the ordered blocks the given day-type runs. The
// base sequence is never modified; every returned block is a fresh copy.
func ResolveSequence(base []model.Block, day model.DayType) []model.Block {
	switch day.Override.Kind {
	case model.OverrideDeepWork:
		if day.Override.DeepWork != nil {
			return applyDeepWork(base, *day.Override.DeepWork)
		}
	}
	return cloneBlocks(base)
}

// applyDeepWork shortens triage and resolve, inserts the deep-work block
// right after resolve and demotes the people block to optional. Blocks the
// override does not name pass through untouched and in order.
func applyDeepWork(base []model.Block, dw model.DeepWork) []model.Block {
	out := make([]model.Block, 0, len(base)+1)
	for _, b := range base {
		nb := b.Clone()
		switch b.ID {
		case dw.Triage.ID:
			nb.Time = dw.Triage.Time
		case dw.Resolve.ID:
			nb.Time = dw.Resolve.Time
			out = append(out, nb, dw.Insert.Clone())
			continue
		case dw.Demote.ID:
			nb.Optional = true
			if dw.Demote.Title != "" {
				nb.Title = dw.Demote.Title
			}
		}
		out = append(out, nb)
	}
	return out
}

func cloneBlocks(in []model.Block) []model.Block {
	out := make([]model.Block, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}

// FindDay returns the day-type with the given id. Unknown ids fall back to
// the first day of the week (Monday in the default template).
func FindDay(week []model.DayType, id string) (model.DayType, bool) {
	for _, d := range week {
		if d.ID == id {
			return d, true
		}
	}
	if len(week) > 0 {
		return week[0], false
	}
	return model.DayType{ID: id, Override: model.DayOverride{Kind: model.OverrideIdentity}}, false
}

// SequenceFor resolves the block sequence of day id within the catalog.
func SequenceFor(cat *model.Catalog, id string) []model.Block {
	day, _ := FindDay(cat.Week, id)
	return ResolveSequence(cat.Base, day)
}
