package schedule

import (
	"strings"

	"alos/internal/model"
)

// FilterBlocks keeps the blocks whose searchable text contains query,
// ignoring case. A blank query returns blocks as is.
func FilterBlocks(blocks []model.Block, query string) []model.Block {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return blocks
	}

	out := make([]model.Block, 0, len(blocks))
	for _, b := range blocks {
		if strings.Contains(searchText(b), q) {
			out = append(out, b)
		}
	}
	return out
}

func searchText(b model.Block) string {
	parts := []string{b.Title, b.Time, b.Intent}
	if b.Content != nil {
		parts = append(parts, b.Content.Strings()...)
	}
	parts = append(parts, b.Artifacts...)
	return strings.ToLower(strings.Join(parts, " "))
}
