package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// blockYAML is the on-disk shape of a Block. Flat blocks carry ai/human/
// outputs; meeting blocks carry playbooks (and optionally meeting_types to
// fix the display order, otherwise the mapping order is used).
type blockYAML struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Time      string   `yaml:"time"`
	Intent    string   `yaml:"intent"`
	Icon      string   `yaml:"icon"`
	Optional  bool     `yaml:"optional"`
	Artifacts []string `yaml:"artifacts"`

	AI      []string `yaml:"ai"`
	Human   []string `yaml:"human"`
	Outputs []string `yaml:"outputs"`

	MeetingTypes []string  `yaml:"meeting_types"`
	Playbooks    yaml.Node `yaml:"playbooks"`
}

// UnmarshalYAML decodes a block and picks its content variant.
func (b *Block) UnmarshalYAML(node *yaml.Node) error {
	var raw blockYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*b = Block{
		ID:        raw.ID,
		Title:     raw.Title,
		Time:      raw.Time,
		Intent:    raw.Intent,
		Icon:      raw.Icon,
		Optional:  raw.Optional,
		Artifacts: raw.Artifacts,
	}

	flat := len(raw.AI) > 0 || len(raw.Human) > 0 || len(raw.Outputs) > 0
	if raw.Playbooks.Kind == 0 {
		if len(raw.MeetingTypes) > 0 {
			return fmt.Errorf("block %q: meeting_types without playbooks", raw.ID)
		}
		b.Content = Simple{Actions: Actions{Assistant: raw.AI, Human: raw.Human, Outputs: raw.Outputs}}
		return nil
	}
	if flat {
		return fmt.Errorf("block %q: flat actions and playbooks are mutually exclusive", raw.ID)
	}

	m, err := decodePlaybooks(raw.ID, &raw.Playbooks)
	if err != nil {
		return err
	}
	if len(raw.MeetingTypes) > 0 {
		for _, t := range raw.MeetingTypes {
			if _, ok := m.Playbooks[t]; !ok {
				return fmt.Errorf("block %q: meeting type %q has no playbook", raw.ID, t)
			}
		}
		m.Types = raw.MeetingTypes
	}
	b.Content = m
	return nil
}

func decodePlaybooks(blockID string, node *yaml.Node) (*Meeting, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("block %q: playbooks must be a mapping (line %d)", blockID, node.Line)
	}
	m := &Meeting{Playbooks: make(map[string]Actions, len(node.Content)/2)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var pb Actions
		if err := node.Content[i+1].Decode(&pb); err != nil {
			return nil, fmt.Errorf("block %q: playbook %q: %w", blockID, key, err)
		}
		if _, dup := m.Playbooks[key]; dup {
			return nil, fmt.Errorf("block %q: duplicate playbook %q", blockID, key)
		}
		m.Types = append(m.Types, key)
		m.Playbooks[key] = pb
	}
	return m, nil
}
