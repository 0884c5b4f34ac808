// Package outage exposes the risk engine over HTTP.
package outage

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/outagewatch/core/alerts"
	"github.com/kilianp07/outagewatch/core/equipment"
	"github.com/kilianp07/outagewatch/core/history"
	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/core/schedule"
	"github.com/kilianp07/outagewatch/infra/logger"
	"github.com/kilianp07/outagewatch/pkg/export"
)

// Engine is the subset of the risk engine served by the API.
type Engine interface {
	ResolveWindows(key model.AreaKey, from time.Time, horizon time.Duration) ([]model.OutageWindow, error)
	CurrentStage(key model.AreaKey, t time.Time) (model.Stage, error)
	Assess(facilityID string, now time.Time) (model.PowerRiskAssessment, error)
	AssessAll(now time.Time) []model.PowerRiskAssessment
	ActiveAlerts(now time.Time, limit int) alerts.AlertList
	Rank(list []model.CriticalEquipment) []model.CriticalEquipment
	Survivability(facilityID string, outage time.Duration) ([]equipment.ItemSurvival, error)
	Summary(now time.Time) alerts.Summary
	Reload(ctx context.Context) (*schedule.Snapshot, error)
}

// WindowsResponse is returned by the windows endpoint.
type WindowsResponse struct {
	Area    model.AreaKey        `json:"area"`
	Stage   model.Stage          `json:"current_stage"`
	Windows []model.OutageWindow `json:"windows"`
}

// ReloadResponse is returned by the reload endpoint.
type ReloadResponse struct {
	Version uint64   `json:"version"`
	Areas   int      `json:"areas"`
	Issues  []string `json:"issues"`
}

// Handler serves the outage API.
type Handler struct {
	eng        Engine
	token      string
	log        logger.Logger
	history    history.Store
	maxHorizon time.Duration
}

// DefaultMaxHorizon bounds the windows endpoint when WithMaxHorizon is not set.
const DefaultMaxHorizon = 7 * 24 * time.Hour

// Option customises the handler.
type Option func(*Handler)

// WithHistory serves past alert scans from store.
func WithHistory(store history.Store) Option {
	return func(h *Handler) { h.history = store }
}

// WithMaxHorizon sets the largest horizon the windows endpoint accepts. It
// is also the horizon used when the request does not name one.
func WithMaxHorizon(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.maxHorizon = d
		}
	}
}

// NewHandler returns the API routes. A non-empty token requires
// "Authorization: Bearer <token>" on every request.
func NewHandler(eng Engine, token string, log logger.Logger, opts ...Option) http.Handler {
	if log == nil {
		log = logger.NopLogger{}
	}
	h := &Handler{eng: eng, token: token, log: log, history: history.NopStore{}, maxHorizon: DefaultMaxHorizon}
	for _, o := range opts {
		o(h)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/areas/{municipality}/{area}/windows", h.windows)
	mux.HandleFunc("GET /api/facilities/{id}/assessment", h.assessment)
	mux.HandleFunc("GET /api/facilities/{id}/survivability", h.survivability)
	mux.HandleFunc("GET /api/assessments", h.assessments)
	mux.HandleFunc("GET /api/alerts", h.alerts)
	mux.HandleFunc("GET /api/alerts/history", h.alertHistory)
	mux.HandleFunc("POST /api/equipment/rank", h.rank)
	mux.HandleFunc("GET /api/summary", h.summary)
	mux.HandleFunc("POST /api/schedule/reload", h.reload)
	return h.auth(mux)
}

func (h *Handler) auth(next http.Handler) http.Handler {
	if h.token == "" {
		return next
	}
	want := []byte("Bearer " + h.token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) windows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := model.AreaKey{Municipality: r.PathValue("municipality"), Area: r.PathValue("area"), Block: q.Get("block")}
	from, err := parseTime(q.Get("from"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	horizon := h.maxHorizon
	if s := q.Get("horizon"); s != "" {
		if horizon, err = time.ParseDuration(s); err != nil {
			http.Error(w, "invalid horizon: "+err.Error(), http.StatusBadRequest)
			return
		}
		if horizon < 0 || horizon > h.maxHorizon {
			http.Error(w, fmt.Sprintf("horizon must be within 0 and %s", h.maxHorizon), http.StatusBadRequest)
			return
		}
	}
	windows, err := h.eng.ResolveWindows(key, from, horizon)
	if err != nil {
		h.fail(w, err)
		return
	}
	st, err := h.eng.CurrentStage(key, from)
	if err != nil {
		h.fail(w, err)
		return
	}
	if windows == nil {
		windows = []model.OutageWindow{}
	}
	writeJSON(w, WindowsResponse{Area: key.Normalize(), Stage: st, Windows: windows})
}

func (h *Handler) assessment(w http.ResponseWriter, r *http.Request) {
	at, err := parseTime(r.URL.Query().Get("at"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.eng.Assess(r.PathValue("id"), at)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) survivability(w http.ResponseWriter, r *http.Request) {
	d, err := time.ParseDuration(r.URL.Query().Get("outage"))
	if err != nil || d <= 0 {
		http.Error(w, "outage must be a positive duration", http.StatusBadRequest)
		return
	}
	items, err := h.eng.Survivability(r.PathValue("id"), d)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, items)
}

func (h *Handler) assessments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	at, err := parseTime(q.Get("at"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list := h.eng.AssessAll(at)
	h.export(w, format, list, export.AssessmentsTable(list), "assessments")
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	at, err := parseTime(q.Get("at"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit := 0
	if s := q.Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list := h.eng.ActiveAlerts(at, limit)
	h.export(w, format, list, export.AlertsTable(list), "alerts")
}

func (h *Handler) alertHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var query history.Query
	var err error
	if s := q.Get("from"); s != "" {
		if query.Start, err = time.Parse(time.RFC3339, s); err != nil {
			http.Error(w, "invalid from: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if s := q.Get("to"); s != "" {
		if query.End, err = time.Parse(time.RFC3339, s); err != nil {
			http.Error(w, "invalid to: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if s := q.Get("min_stage"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || !model.Stage(n).Valid() {
			http.Error(w, "invalid min_stage", http.StatusBadRequest)
			return
		}
		query.MinStage = model.Stage(n)
	}
	query.FacilityID = q.Get("facility")
	recs, err := h.history.Query(r.Context(), query)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, recs)
}

func (h *Handler) rank(w http.ResponseWriter, r *http.Request) {
	var in []model.CriticalEquipment
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid equipment list: "+err.Error(), http.StatusBadRequest)
		return
	}
	out := h.eng.Rank(in)
	if out == nil {
		out = []model.CriticalEquipment{}
	}
	writeJSON(w, out)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	at, err := parseTime(r.URL.Query().Get("at"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, h.eng.Summary(at))
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.eng.Reload(r.Context())
	if err != nil {
		h.log.Errorf("reload via api: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	resp := ReloadResponse{Version: snap.Version, Areas: len(snap.Areas()), Issues: []string{}}
	for _, is := range snap.Issues {
		resp.Issues = append(resp.Issues, is.String())
	}
	writeJSON(w, resp)
}

func (h *Handler) export(w http.ResponseWriter, f export.Format, v any, t export.Table, name string) {
	w.Header().Set("Content-Type", f.ContentType())
	if f != export.FormatJSON {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", name, f))
	}
	if err := export.Write(w, f, v, t); err != nil {
		h.log.Errorf("export %s: %v", name, err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.log.Errorf("api: %v", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC3339", s)
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
