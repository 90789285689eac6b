package web

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"alos/internal/dashboard"
	"alos/internal/ics"
	appLog "alos/internal/log"
	"alos/internal/model"
	"alos/internal/schedule"
)

const (
	icsCacheTTL   = 5 * time.Minute
	maxAgendaDays = 31
)

type actionsDTO struct {
	AI      []string `json:"ai"`
	Human   []string `json:"human"`
	Outputs []string `json:"outputs"`
}

type blockDTO struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Time         string                `json:"time"`
	Intent       string                `json:"intent"`
	Icon         string                `json:"icon,omitempty"`
	Optional     bool                  `json:"optional"`
	Artifacts    []string              `json:"artifacts"`
	Actions      *actionsDTO           `json:"actions,omitempty"`
	MeetingTypes []string              `json:"meeting_types,omitempty"`
	Playbooks    map[string]actionsDTO `json:"playbooks,omitempty"`
}

type dayDTO struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Theme    string `json:"theme"`
	Override string `json:"override"`
}

type focusDTO struct {
	Mode    model.FocusMode `json:"mode"`
	BlockID string          `json:"block_id"`
	Label   string          `json:"label"`
}

type weekResponse struct {
	Days     []dayDTO  `json:"days"`
	Today    string    `json:"today"`
	Timezone string    `json:"timezone"`
	Instant  time.Time `json:"instant"`
}

type tileDTO struct {
	blockDTO
	Tag    string `json:"tag,omitempty"`
	Active bool   `json:"active"`
}

type detailDTO struct {
	Block        blockDTO   `json:"block"`
	MeetingTypes []string   `json:"meeting_types,omitempty"`
	MeetingType  string     `json:"meeting_type,omitempty"`
	Actions      actionsDTO `json:"actions"`
}

type selectionDTO struct {
	Day         string `json:"day"`
	Query       string `json:"q"`
	BlockID     string `json:"block"`
	MeetingType string `json:"meeting,omitempty"`
}

type viewResponse struct {
	Day       dayDTO       `json:"day"`
	Today     string       `json:"today"`
	Timezone  string       `json:"timezone"`
	Instant   time.Time    `json:"instant"`
	Minutes   int          `json:"minutes"`
	Focus     focusDTO     `json:"focus"`
	Searching bool         `json:"searching"`
	NoMatches bool         `json:"no_matches"`
	Total     int          `json:"total"`
	Blocks    []tileDTO    `json:"blocks"`
	Active    *detailDTO   `json:"active"`
	Selection selectionDTO `json:"selection"`
}

type focusResponse struct {
	Day      string    `json:"day"`
	Timezone string    `json:"timezone"`
	Instant  time.Time `json:"instant"`
	Minutes  int       `json:"minutes"`
	Focus    focusDTO  `json:"focus"`
}

type blocksResponse struct {
	Day    string     `json:"day"`
	Query  string     `json:"q"`
	Count  int        `json:"count"`
	Blocks []blockDTO `json:"blocks"`
}

type occurrenceDTO struct {
	UID         string    `json:"uid"`
	InstanceKey string    `json:"instance_key"`
	BlockID     string    `json:"block_id"`
	Day         string    `json:"day"`
	Title       string    `json:"title"`
	Intent      string    `json:"intent"`
	Optional    bool      `json:"optional"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type agendaResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
	Truncated   []string        `json:"truncated_uids,omitempty"`
	RangeStart  time.Time       `json:"range_start"`
	RangeEnd    time.Time       `json:"range_end"`
	Timezone    string          `json:"timezone"`
}

// icsCache holds the last export and the week it was anchored in.
type icsCache struct {
	body      []byte
	week      string
	updatedAt time.Time
}

func (s *Server) zone() string {
	return s.sampler.Clock().Zone
}

// dayParam returns the requested day id, today when absent. ok is false
// for an id the catalog does not define.
func (s *Server) dayParam(r *http.Request, now time.Time) (string, bool) {
	id := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("day")))
	if id == "" {
		return schedule.ResolveDayType(now, s.zone()), true
	}
	ok := slices.ContainsFunc(s.cat.Week, func(d model.DayType) bool { return d.ID == id })
	return id, ok
}

// GET /api/week
func (s *Server) handleWeek(w http.ResponseWriter, _ *http.Request) {
	now := s.sampler.Now()
	days := make([]dayDTO, 0, len(s.cat.Week))
	for _, d := range s.cat.Week {
		days = append(days, toDayDTO(d))
	}
	writeJSON(w, http.StatusOK, weekResponse{
		Days:     days,
		Today:    schedule.ResolveDayType(now, s.zone()),
		Timezone: s.zone(),
		Instant:  now,
	})
}

// GET /api/view?day=thu&q=decision&block=resolve&meeting=Review&tick=1&focus=orient
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	now := s.sampler.Now()
	day, ok := s.dayParam(r, now)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown day: "+day)
		return
	}

	q := r.URL.Query()
	sel := dashboard.Selection{
		Day:         day,
		Query:       q.Get("q"),
		BlockID:     q.Get("block"),
		MeetingType: q.Get("meeting"),
	}
	// A clock-driven reload echoes the focus block it rendered last.
	if q.Get("tick") != "" {
		sel = dashboard.Follow(s.cat, sel, q.Get("focus"), now, s.zone())
	}
	v := dashboard.Compose(s.cat, sel, now, s.zone())

	resp := viewResponse{
		Day:       toDayDTO(v.Day),
		Today:     v.Today,
		Timezone:  v.Zone,
		Instant:   v.Instant,
		Minutes:   v.Minutes,
		Focus:     toFocusDTO(v.Focus),
		Searching: v.Searching,
		NoMatches: v.NoMatches,
		Total:     v.TotalCount,
		Blocks:    make([]tileDTO, 0, len(v.Tiles)),
		Selection: selectionDTO{
			Day:         v.Selection.Day,
			Query:       v.Selection.Query,
			BlockID:     v.Selection.BlockID,
			MeetingType: v.Selection.MeetingType,
		},
	}
	for _, t := range v.Tiles {
		resp.Blocks = append(resp.Blocks, tileDTO{blockDTO: toBlockDTO(t.Block), Tag: t.Tag, Active: t.Active})
	}
	if v.Active != nil {
		resp.Active = &detailDTO{
			Block:        toBlockDTO(v.Active.Block),
			MeetingTypes: v.Active.MeetingTypes,
			MeetingType:  v.Active.MeetingType,
			Actions:      toActionsDTO(v.Active.Actions),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/focus?day=wed
func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	now := s.sampler.Now()
	day, ok := s.dayParam(r, now)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown day: "+day)
		return
	}
	minutes := schedule.MinutesSinceMidnight(now, s.zone())
	focus := schedule.ClassifyFocus(schedule.SequenceFor(s.cat, day), minutes)
	writeJSON(w, http.StatusOK, focusResponse{
		Day:      day,
		Timezone: s.zone(),
		Instant:  now,
		Minutes:  minutes,
		Focus:    toFocusDTO(focus),
	})
}

// GET /api/blocks?day=thu&q=artifact
func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	now := s.sampler.Now()
	day, ok := s.dayParam(r, now)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown day: "+day)
		return
	}
	query := r.URL.Query().Get("q")
	blocks := schedule.FilterBlocks(schedule.SequenceFor(s.cat, day), query)

	dtos := make([]blockDTO, 0, len(blocks))
	for _, b := range blocks {
		dtos = append(dtos, toBlockDTO(b))
	}
	writeJSON(w, http.StatusOK, blocksResponse{Day: day, Query: query, Count: len(dtos), Blocks: dtos})
}

// GET /api/agenda?days=7
//   - days: how many days from the start of today (default 7, max 31)
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	days := parseIntDefault(r.URL.Query().Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	if days > maxAgendaDays {
		days = maxAgendaDays
	}

	loc := schedule.LoadZone(s.zone())
	now := s.sampler.Now().In(loc)
	rangeStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	rangeEnd := rangeStart.AddDate(0, 0, days)

	res, err := ics.ExpandOccurrences(ics.BuildSeries(s.cat), ics.ExpandConfig{
		Location:   loc,
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
	})
	if err != nil {
		appLog.Error("api agenda: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand agenda")
		return
	}

	dtos := make([]occurrenceDTO, 0, len(res.Occurrences))
	for _, o := range res.Occurrences {
		dtos = append(dtos, occurrenceDTO{
			UID:         o.UID,
			InstanceKey: o.InstanceKey,
			BlockID:     o.BlockID,
			Day:         o.DayID,
			Title:       o.Title,
			Intent:      o.Intent,
			Optional:    o.Optional,
			Start:       o.Start,
			End:         o.End,
		})
	}
	writeJSON(w, http.StatusOK, agendaResponse{
		Occurrences: dtos,
		Truncated:   res.Truncated,
		RangeStart:  rangeStart,
		RangeEnd:    rangeEnd,
		Timezone:    loc.String(),
	})
}

// GET /api/schedule.ics
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	now := s.sampler.Now()
	year, week := now.In(schedule.LoadZone(s.zone())).ISOWeek()
	weekKey := strconv.Itoa(year) + "-W" + strconv.Itoa(week)

	s.icsMu.RLock()
	c := s.icsCache
	s.icsMu.RUnlock()

	var body []byte
	if c != nil && c.week == weekKey && time.Since(c.updatedAt) < icsCacheTTL {
		body = c.body
	} else {
		var err error
		body, err = ics.Export(s.cat, ics.ExportConfig{Zone: s.zone(), Anchor: now})
		if err != nil {
			appLog.Error("api ics: export failed", err, "zone", s.zone())
			writeError(w, http.StatusInternalServerError, "failed to export calendar")
			return
		}
		s.icsMu.Lock()
		s.icsCache = &icsCache{body: body, week: weekKey, updatedAt: time.Now()}
		s.icsMu.Unlock()
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func toDayDTO(d model.DayType) dayDTO {
	kind := d.Override.Kind
	if kind == "" {
		kind = model.OverrideIdentity
	}
	return dayDTO{ID: d.ID, Label: d.Label, Theme: d.Theme, Override: string(kind)}
}

func toFocusDTO(f model.Focus) focusDTO {
	return focusDTO{Mode: f.Mode, BlockID: f.BlockID, Label: f.Label()}
}

func toActionsDTO(a model.Actions) actionsDTO {
	return actionsDTO{
		AI:      nonNil(a.Assistant),
		Human:   nonNil(a.Human),
		Outputs: nonNil(a.Outputs),
	}
}

func toBlockDTO(b model.Block) blockDTO {
	dto := blockDTO{
		ID:        b.ID,
		Title:     b.Title,
		Time:      b.Time,
		Intent:    b.Intent,
		Icon:      b.Icon,
		Optional:  b.Optional,
		Artifacts: nonNil(b.Artifacts),
	}
	if m, ok := b.MeetingContent(); ok {
		dto.MeetingTypes = m.Types
		dto.Playbooks = make(map[string]actionsDTO, len(m.Playbooks))
		for t, pb := range m.Playbooks {
			dto.Playbooks[t] = toActionsDTO(pb)
		}
		return dto
	}
	a := toActionsDTO(b.Playbook(""))
	dto.Actions = &a
	return dto
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
