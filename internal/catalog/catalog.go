// Package catalog loads the weekly template (day-types and base blocks).
// The built-in template is embedded; a YAML file with the same shape can
// replace it.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	appLog "alos/internal/log"
	"alos/internal/model"
	"alos/internal/schedule"
)

//go:embed default.yaml
var defaultYAML []byte

var (
	ErrDuplicateID = errors.New("duplicate block id")
	ErrEmpty       = errors.New("catalog has no blocks")
	ErrNoWeek      = errors.New("catalog has no day-types")
)

// Default returns the built-in catalog. It panics only if the embedded
// file is broken, which the package tests guard against.
func Default() *model.Catalog {
	cat, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default is invalid: %v", err))
	}
	return cat
}

// Load reads a catalog from path, or returns the default when path is empty.
func Load(path string) (*model.Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	appLog.Info("catalog loaded", "path", path, "days", len(cat.Week), "blocks", len(cat.Base))
	return cat, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*model.Catalog, error) {
	var cat model.Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, err
	}
	if err := Validate(&cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks structural invariants: at least one day and block,
// unique ids in every resolved day, and known override kinds. Unparseable
// time ranges are only warned about; such blocks are listed but never
// become NOW or NEXT.
func Validate(cat *model.Catalog) error {
	if len(cat.Week) == 0 {
		return ErrNoWeek
	}
	if len(cat.Base) == 0 {
		return ErrEmpty
	}

	for i := range cat.Week {
		day := &cat.Week[i]
		switch day.Override.Kind {
		case "":
			day.Override.Kind = model.OverrideIdentity
		case model.OverrideIdentity:
		case model.OverrideDeepWork:
			if day.Override.DeepWork == nil {
				return fmt.Errorf("day %q: deepwork override without parameters", day.ID)
			}
		default:
			return fmt.Errorf("day %q: unknown override kind %q", day.ID, day.Override.Kind)
		}

		seen := make(map[string]struct{})
		for _, b := range schedule.ResolveSequence(cat.Base, *day) {
			if _, dup := seen[b.ID]; dup {
				return fmt.Errorf("day %q: %w: %q", day.ID, ErrDuplicateID, b.ID)
			}
			seen[b.ID] = struct{}{}
			if _, ok := schedule.ParseRange(b.Time); !ok {
				appLog.Warn("block time range is not parseable; excluded from focus",
					"day", day.ID, "block", b.ID, "time", b.Time)
			}
		}
	}
	return nil
}
