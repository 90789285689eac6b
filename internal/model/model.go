package model

import "slices"

// Actions is the flat content set of a block or of a single meeting
// playbook: what the assistant prepares, what the human decides and what
// comes out of it.
type Actions struct {
	Assistant []string `yaml:"ai" json:"ai"`
	Human     []string `yaml:"human" json:"human"`
	Outputs   []string `yaml:"outputs" json:"outputs"`
}

func (a Actions) clone() Actions {
	return Actions{
		Assistant: slices.Clone(a.Assistant),
		Human:     slices.Clone(a.Human),
		Outputs:   slices.Clone(a.Outputs),
	}
}

// Content is either Simple (flat actions) or *Meeting (actions keyed by
// meeting type). The unexported method closes the set.
type Content interface {
	// Playbook returns the actions to display for the given meeting type.
	// Simple content ignores the argument.
	Playbook(meetingType string) Actions
	// Strings lists every searchable string of the content.
	Strings() []string

	cloneContent() Content
}

// Simple is flat block content.
type Simple struct {
	Actions
}

func (s Simple) Playbook(string) Actions { return s.Actions }

func (s Simple) Strings() []string {
	out := make([]string, 0, len(s.Assistant)+len(s.Human)+len(s.Outputs))
	out = append(out, s.Assistant...)
	out = append(out, s.Human...)
	return append(out, s.Outputs...)
}

func (s Simple) cloneContent() Content { return Simple{Actions: s.Actions.clone()} }

// Meeting is the content of a meeting-category block. Types keeps the
// display order of the playbooks.
type Meeting struct {
	Types     []string
	Playbooks map[string]Actions
}

// Playbook returns the playbook for meetingType, or the first declared
// playbook when meetingType is unknown.
func (m *Meeting) Playbook(meetingType string) Actions {
	if pb, ok := m.Playbooks[meetingType]; ok {
		return pb
	}
	if len(m.Types) > 0 {
		return m.Playbooks[m.Types[0]]
	}
	return Actions{}
}

// Has reports whether meetingType is one of the declared types.
func (m *Meeting) Has(meetingType string) bool {
	return slices.Contains(m.Types, meetingType)
}

// Strings walks the playbooks in declaration order.
func (m *Meeting) Strings() []string {
	var out []string
	for _, t := range m.Types {
		pb := m.Playbooks[t]
		out = append(out, pb.Assistant...)
		out = append(out, pb.Human...)
		out = append(out, pb.Outputs...)
	}
	return out
}

func (m *Meeting) cloneContent() Content {
	cp := &Meeting{
		Types:     slices.Clone(m.Types),
		Playbooks: make(map[string]Actions, len(m.Playbooks)),
	}
	for k, v := range m.Playbooks {
		cp.Playbooks[k] = v.clone()
	}
	return cp
}

// Block is one scheduled activity unit of the day.
type Block struct {
	ID     string
	Title  string
	Time   string // "HH:MM–HH:MM", same day
	Intent string
	Icon   string

	// Optional marks discretionary blocks (night slots, demoted meetings).
	Optional bool

	Artifacts []string
	Content   Content
}

// Clone returns a deep copy, so callers may edit the result freely.
func (b Block) Clone() Block {
	cp := b
	cp.Artifacts = slices.Clone(b.Artifacts)
	if b.Content != nil {
		cp.Content = b.Content.cloneContent()
	}
	return cp
}

// MeetingContent returns the meeting variant of the content, if any.
func (b Block) MeetingContent() (*Meeting, bool) {
	m, ok := b.Content.(*Meeting)
	return m, ok && len(m.Types) > 0
}

// Playbook resolves the display actions of the block for meetingType.
func (b Block) Playbook(meetingType string) Actions {
	if b.Content == nil {
		return Actions{}
	}
	return b.Content.Playbook(meetingType)
}

// OverrideKind tags a DayOverride.
type OverrideKind string

const (
	OverrideIdentity OverrideKind = "identity"
	OverrideDeepWork OverrideKind = "deepwork"
)

// Reshape moves an existing block to a new time window.
type Reshape struct {
	ID   string `yaml:"id"`
	Time string `yaml:"time"`
}

// Demote keeps a block in place but marks it optional, optionally retitled.
type Demote struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
}

// DeepWork parameterises the deep-work day override: the triage block is
// shortened, the resolve block is shortened and followed by Insert, and the
// Demote block becomes optional.
type DeepWork struct {
	Triage  Reshape `yaml:"triage"`
	Resolve Reshape `yaml:"resolve"`
	Insert  Block   `yaml:"insert"`
	Demote  Demote  `yaml:"demote"`
}

// DayOverride transforms a base sequence into a day-specific one. Kind
// selects the variant; DeepWork is set only for OverrideDeepWork.
type DayOverride struct {
	Kind     OverrideKind `yaml:"kind"`
	DeepWork *DeepWork    `yaml:"deepwork,omitempty"`
}

// DayType is one weekday bucket of the weekly template.
type DayType struct {
	ID       string      `yaml:"id"`
	Label    string      `yaml:"label"`
	Theme    string      `yaml:"theme"`
	Override DayOverride `yaml:"override"`
}

// Catalog is the immutable template: the week and the base sequence.
type Catalog struct {
	Week []DayType `yaml:"week"`
	Base []Block   `yaml:"blocks"`
}

// FocusMode classifies where the clock is relative to the day.
type FocusMode string

const (
	FocusNow   FocusMode = "now"
	FocusNext  FocusMode = "next"
	FocusAfter FocusMode = "after"
)

// Focus is the NOW/NEXT/AFTER classification. BlockID may be empty for
// FocusAfter when no block carries a usable time range.
type Focus struct {
	Mode    FocusMode `json:"mode"`
	BlockID string    `json:"block_id,omitempty"`
}

// Label is the header text shown for the focus mode.
func (f Focus) Label() string {
	switch f.Mode {
	case FocusNow:
		return "Now"
	case FocusNext:
		return "Next"
	default:
		return "After hours"
	}
}
