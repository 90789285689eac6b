package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alos/internal/catalog"
	"alos/internal/model"
)

func seriesUIDs(series []Series) []string {
	out := make([]string, 0, len(series))
	for _, s := range series {
		out = append(out, s.UID)
	}
	return out
}

func TestBuildSeriesGroupsIdenticalDays(t *testing.T) {
	series := BuildSeries(catalog.Default())

	assert.Equal(t, []string{
		"orient-mon-tue-wed-thu-fri@alos",
		"resolve-mon-tue-wed-fri@alos",
		"meetings1-mon-tue-wed-fri@alos",
		"meetings2-mon-tue-wed-thu-fri@alos",
		"parking-mon-tue-wed-thu-fri@alos",
		"global-mon-tue-wed-thu-fri@alos",
		"close-mon-tue-wed-thu-fri@alos",
		"resolve-thu@alos",
		"deepwork-thu@alos",
		"meetings1-thu@alos",
	}, seriesUIDs(series))

	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,TU,WE,FR", series[1].Rule())
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=TH", series[8].Rule())
	assert.True(t, series[9].Optional)
	assert.Equal(t, 11*60, series[8].Range.Start)
}

func TestBuildSeriesSkipsUnusableBlocks(t *testing.T) {
	cat := &model.Catalog{
		Week: []model.DayType{
			{ID: "mon", Override: model.DayOverride{Kind: model.OverrideIdentity}},
			{ID: "sat", Override: model.DayOverride{Kind: model.OverrideIdentity}},
		},
		Base: []model.Block{
			{ID: "a", Time: "TBD", Content: model.Simple{}},
			{ID: "b", Time: "11:00–10:00", Content: model.Simple{}},
			{ID: "c", Time: "09:00-09:30", Content: model.Simple{}},
		},
	}
	series := BuildSeries(cat)
	require.Len(t, series, 1)
	assert.Equal(t, "c-mon@alos", series[0].UID)
}

func TestDescribe(t *testing.T) {
	cat := catalog.Default()

	text := Describe(cat.Base[3])
	assert.Contains(t, text, "Intent: Execute")
	assert.Contains(t, text, "[Planning]")
	assert.Contains(t, text, "[Escalation]")
	assert.Contains(t, text, "- Draft escalation message")
	assert.Contains(t, text, "Artifacts: Program Notes, Risk Register, Dependency Notes")

	text = Describe(cat.Base[0])
	assert.Contains(t, text, "AI:\n- Aggregate signals")
	assert.Contains(t, text, "Outputs:\n- Today’s 3 Outcomes")
}

func TestExpandOneDay(t *testing.T) {
	monday := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	res, err := ExpandOccurrences(BuildSeries(catalog.Default()), ExpandConfig{
		Location:   time.UTC,
		RangeStart: monday,
		RangeEnd:   monday.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 7)
	assert.Empty(t, res.Truncated)

	var ids []string
	for _, o := range res.Occurrences {
		ids = append(ids, o.BlockID)
		assert.Equal(t, "mon", o.DayID)
	}
	assert.Equal(t, []string{"orient", "resolve", "meetings1", "meetings2", "parking", "global", "close"}, ids)

	first := res.Occurrences[0]
	assert.Equal(t, time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC), first.Start)
	assert.Equal(t, time.Date(2025, time.March, 10, 10, 30, 0, 0, time.UTC), first.End)
	assert.Equal(t, "orient-mon-tue-wed-thu-fri@alos/2025-03-10T10:00:00Z", first.InstanceKey)
}

func TestExpandWorkWeek(t *testing.T) {
	monday := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	res, err := ExpandOccurrences(BuildSeries(catalog.Default()), ExpandConfig{
		Location:   time.UTC,
		RangeStart: monday,
		RangeEnd:   monday.AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 4*7+8)

	var thursday []string
	for _, o := range res.Occurrences {
		if o.DayID == "thu" {
			thursday = append(thursday, o.BlockID)
		}
	}
	assert.Equal(t, []string{"orient", "resolve", "deepwork", "meetings1", "meetings2", "parking", "global", "close"}, thursday)
}

func TestExpandKeepsOccurrenceInProgress(t *testing.T) {
	start := time.Date(2025, time.March, 12, 10, 15, 0, 0, time.UTC)
	res, err := ExpandOccurrences(BuildSeries(catalog.Default()), ExpandConfig{
		Location:   time.UTC,
		RangeStart: start,
		RangeEnd:   start.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 2)
	assert.Equal(t, "orient", res.Occurrences[0].BlockID)
	assert.Equal(t, "resolve", res.Occurrences[1].BlockID)
}

func TestExpandKeepsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2025-03-09 is the spring-forward Sunday.
	res, err := ExpandOccurrences(BuildSeries(catalog.Default()), ExpandConfig{
		Location:   ny,
		RangeStart: time.Date(2025, time.March, 7, 0, 0, 0, 0, ny),
		RangeEnd:   time.Date(2025, time.March, 11, 0, 0, 0, 0, ny),
	})
	require.NoError(t, err)

	var orient []time.Time
	for _, o := range res.Occurrences {
		if o.BlockID == "orient" {
			orient = append(orient, o.Start)
		}
	}
	require.Len(t, orient, 2)
	assert.Equal(t, 10, orient[0].Hour())
	assert.Equal(t, 10, orient[1].Hour())
	assert.Equal(t, 15, orient[0].UTC().Hour())
	assert.Equal(t, 14, orient[1].UTC().Hour())
}

func TestExpandCapAndRange(t *testing.T) {
	monday := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	series := BuildSeries(catalog.Default())

	res, err := ExpandOccurrences(series, ExpandConfig{
		Location:                time.UTC,
		RangeStart:              monday,
		RangeEnd:                monday.AddDate(0, 0, 7),
		MaxOccurrencesPerSeries: 2,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Truncated, "orient-mon-tue-wed-thu-fri@alos")
	assert.NotContains(t, res.Truncated, "deepwork-thu@alos")

	_, err = ExpandOccurrences(series, ExpandConfig{RangeStart: monday, RangeEnd: monday.Add(-time.Hour)})
	assert.Error(t, err)
}

func findEvent(t *testing.T, cal *ical.Calendar, uid string) *ical.VEvent {
	t.Helper()
	for _, ev := range cal.Events() {
		if ev.Id() == uid {
			return ev
		}
	}
	t.Fatalf("event %s not found", uid)
	return nil
}

func TestExportRoundTrip(t *testing.T) {
	anchor := time.Date(2025, time.March, 12, 12, 0, 0, 0, time.UTC)
	data, err := Export(catalog.Default(), ExportConfig{Zone: "Europe/Berlin", Anchor: anchor})
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 10)

	orient := findEvent(t, cal, "orient-mon-tue-wed-thu-fri@alos")
	start := orient.GetProperty(ical.ComponentPropertyDtStart)
	require.NotNil(t, start)
	assert.Equal(t, "20250310T100000", start.Value)
	assert.Equal(t, []string{"Europe/Berlin"}, start.ICalParameters["TZID"])
	assert.Equal(t, "20250310T103000", orient.GetProperty(ical.ComponentPropertyDtEnd).Value)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR", orient.GetProperty(ical.ComponentPropertyRrule).Value)
	assert.Equal(t, "Morning Triage", orient.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "Orient", orient.GetProperty(ical.ComponentPropertyCategories).Value)

	deep := findEvent(t, cal, "deepwork-thu@alos")
	assert.Equal(t, "20250313T110000", deep.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=TH", deep.GetProperty(ical.ComponentPropertyRrule).Value)
	assert.Contains(t, deep.GetProperty(ical.ComponentPropertyDescription).Value, "One tangible artifact")

	demoted := findEvent(t, cal, "meetings1-thu@alos")
	assert.Equal(t, "People & Leadership (optional on Thu)", demoted.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "TRANSPARENT", demoted.GetProperty(ical.ComponentProperty("TRANSP")).Value)
	assert.Nil(t, orient.GetProperty(ical.ComponentProperty("TRANSP")))
}

func TestExportRejectsBadZone(t *testing.T) {
	_, err := Export(catalog.Default(), ExportConfig{})
	assert.Error(t, err)
	_, err = Export(catalog.Default(), ExportConfig{Zone: "Mars/Olympus"})
	assert.Error(t, err)
}

func TestExportTimezone(t *testing.T) {
	anchor := time.Date(2025, time.March, 12, 12, 0, 0, 0, time.UTC)
	data, err := Export(catalog.Default(), ExportConfig{Zone: "Europe/Berlin", Anchor: anchor})
	require.NoError(t, err)
	text := string(data)

	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, cal.Timezones(), 1)
	assert.Equal(t, "Europe/Berlin", cal.Timezones()[0].GetProperty(ical.ComponentPropertyTzid).Value)

	assert.Less(t, strings.Index(text, "BEGIN:VTIMEZONE"), strings.Index(text, "BEGIN:VEVENT"))
	assert.Equal(t, 2, strings.Count(text, "BEGIN:DAYLIGHT"))
	assert.Equal(t, 2, strings.Count(text, "BEGIN:STANDARD"))
	assert.Contains(t, text, "DTSTART:20250330T020000")
	assert.Contains(t, text, "DTSTART:20251026T030000")
	assert.Contains(t, text, "TZOFFSETFROM:+0100")
	assert.Contains(t, text, "TZOFFSETTO:+0200")
	assert.Contains(t, text, "TZNAME:CEST")

	utc, err := Export(catalog.Default(), ExportConfig{Zone: "UTC", Anchor: anchor})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(utc), "BEGIN:STANDARD"))
	assert.Contains(t, string(utc), "TZOFFSETTO:+0000")
	assert.NotContains(t, string(utc), "BEGIN:DAYLIGHT")
}

func TestUTCOffset(t *testing.T) {
	assert.Equal(t, "+0000", utcOffset(0))
	assert.Equal(t, "+0530", utcOffset(5*3600+30*60))
	assert.Equal(t, "-0400", utcOffset(-4*3600))
}
