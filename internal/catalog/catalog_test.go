package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alos/internal/model"
)

func TestDefaultCatalog(t *testing.T) {
	cat := Default()

	ids := make([]string, 0, len(cat.Week))
	for _, d := range cat.Week {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"mon", "tue", "wed", "thu", "fri"}, ids)
	assert.Equal(t, "Deepwork: Be a Builder", cat.Week[3].Theme)
	require.NotNil(t, cat.Week[3].Override.DeepWork)
	assert.Equal(t, "deepwork", cat.Week[3].Override.DeepWork.Insert.ID)

	require.Len(t, cat.Base, 7)
	assert.Equal(t, "orient", cat.Base[0].ID)
	assert.Equal(t, "10:00–10:30", cat.Base[0].Time)
	assert.True(t, cat.Base[6].Optional)

	m, ok := cat.Base[2].MeetingContent()
	require.True(t, ok)
	assert.Equal(t, []string{"1:1s / Coaching", "Team Rituals", "Hiring / Talent", "Decision (quick)"}, m.Types)
	assert.Equal(t, "Calibrate bar", m.Playbooks["Hiring / Talent"].Human[2])

	simple, ok := cat.Base[0].Content.(model.Simple)
	require.True(t, ok)
	assert.Len(t, simple.Assistant, 3)
}

func TestParsePlaybookOrderFollowsMapping(t *testing.T) {
	data := []byte(`
week:
  - {id: mon, label: Mon, theme: Plan}
blocks:
  - id: m
    title: Meetings
    time: "09:00–10:00"
    playbooks:
      Zeta: {ai: [z]}
      Alpha: {ai: [a]}
`)
	cat, err := Parse(data)
	require.NoError(t, err)

	m, ok := cat.Base[0].MeetingContent()
	require.True(t, ok)
	assert.Equal(t, []string{"Zeta", "Alpha"}, m.Types)
	assert.Equal(t, model.OverrideIdentity, cat.Week[0].Override.Kind)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{
			name: "no week",
			data: `blocks: [{id: a, time: "09:00–10:00"}]`,
		},
		{
			name: "no blocks",
			data: `week: [{id: mon}]`,
		},
		{
			name: "duplicate ids",
			data: `
week: [{id: mon}]
blocks:
  - {id: a, time: "09:00–10:00"}
  - {id: a, time: "10:00–11:00"}
`,
		},
		{
			name: "flat and playbooks",
			data: `
week: [{id: mon}]
blocks:
  - id: a
    ai: [x]
    playbooks: {P: {ai: [y]}}
`,
		},
		{
			name: "meeting type without playbook",
			data: `
week: [{id: mon}]
blocks:
  - id: a
    meeting_types: [P, Q]
    playbooks: {P: {ai: [y]}}
`,
		},
		{
			name: "unknown override",
			data: `
week: [{id: mon, override: {kind: shuffle}}]
blocks: [{id: a}]
`,
		},
		{
			name: "deepwork without parameters",
			data: `
week: [{id: thu, override: {kind: deepwork}}]
blocks: [{id: a}]
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestDuplicateIDFromInsertedBlock(t *testing.T) {
	data := []byte(`
week:
  - id: thu
    override:
      kind: deepwork
      deepwork:
        triage: {id: a, time: "09:00–09:30"}
        resolve: {id: b, time: "09:30–10:00"}
        insert: {id: a, time: "10:00–11:00"}
blocks:
  - {id: a, time: "09:00–10:00"}
  - {id: b, time: "10:00–11:00"}
`)
	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestLoad(t *testing.T) {
	cat, err := Load("")
	require.NoError(t, err)
	assert.Len(t, cat.Base, 7)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
week: [{id: mon, label: Mon, theme: Solo}]
blocks: [{id: only, title: Only, time: "not a range"}]
`), 0o600))

	cat, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Solo", cat.Week[0].Theme)
	assert.Equal(t, "not a range", cat.Base[0].Time)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
