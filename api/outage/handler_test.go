package outage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/outagewatch/core/alerts"
	"github.com/kilianp07/outagewatch/core/clock"
	"github.com/kilianp07/outagewatch/core/engine"
	"github.com/kilianp07/outagewatch/core/history"
	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/core/registry"
	"github.com/kilianp07/outagewatch/core/schedule"
)

// monday is 2025-03-03, a Monday.
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	reg := registry.NewMemoryStore()
	require.NoError(t, reg.Replace([]model.FacilityProfile{
		{Facility: model.Facility{ID: "f1", Name: "Centurion Clinic", Area: model.AreaKey{Municipality: "tshwane", Area: "centurion", Block: "b1"}},
			Equipment: []model.CriticalEquipment{{Name: "ventilator", RuntimeMinutes: 90, PowerDrawW: 400, Tier: model.TierLifeSupport}},
			Backup:    model.BackupPartial},
		{Facility: model.Facility{ID: "f2", Name: "Irene Hospital", Area: model.AreaKey{Municipality: "tshwane", Area: "centurion", Block: "b2"}},
			Backup: model.BackupFullyOperational},
	}))
	feed := schedule.FeedFunc(func(context.Context) (schedule.FeedData, error) {
		return schedule.FeedData{Entries: []model.ScheduleEntry{
			{Municipality: "tshwane", Area: "centurion", Block: "b1", Slots: []model.TimeSlot{
				{Day: 1, Start: model.NewClockTime(8, 0), End: model.NewClockTime(10, 0), Stage: 4}}},
			{Municipality: "tshwane", Area: "centurion", Block: "b2", Slots: []model.TimeSlot{
				{Day: 1, Start: model.NewClockTime(9, 0), End: model.NewClockTime(11, 0), Stage: 6}}},
		}}, nil
	})
	e, err := engine.New(engine.Options{
		Feed:     feed,
		Registry: reg,
		Location: time.UTC,
		Clock:    clock.Fixed{T: monday.Add(9*time.Hour + 30*time.Minute)},
	})
	require.NoError(t, err)
	_, err = e.Reload(context.Background())
	require.NoError(t, err)
	return e
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	h.ServeHTTP(rr, req)
	return rr
}

func TestWindowsEndpoint(t *testing.T) {
	h := NewHandler(newTestEngine(t), "", nil)
	rr := do(t, h, http.MethodGet, "/api/areas/Tshwane/Centurion/windows?block=b1&from=2025-03-03T00:00:00Z&horizon=24h", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out WindowsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "tshwane", out.Area.Municipality)
	require.Len(t, out.Windows, 1)
	assert.Equal(t, monday.Add(8*time.Hour), out.Windows[0].Start.UTC())
	assert.Equal(t, model.StageNone, out.Stage)

	rr = do(t, h, http.MethodGet, "/api/areas/joburg/soweto/windows", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/areas/tshwane/centurion/windows?horizon=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWindowsEndpointHorizonLimit(t *testing.T) {
	h := NewHandler(newTestEngine(t), "", nil, WithMaxHorizon(48*time.Hour))
	base := "/api/areas/tshwane/centurion/windows?block=b1&from=2025-03-03T00:00:00Z"

	for _, hz := range []string{"2562047h", "49h", "-1h"} {
		rr := do(t, h, http.MethodGet, base+"&horizon="+hz, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "horizon %s", hz)
	}

	rr := do(t, h, http.MethodGet, base+"&horizon=48h", nil)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out WindowsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Len(t, out.Windows, 1)
}

func TestAssessmentEndpoint(t *testing.T) {
	h := NewHandler(newTestEngine(t), "", nil)
	rr := do(t, h, http.MethodGet, "/api/facilities/f1/assessment", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res model.PowerRiskAssessment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, model.RiskCritical, res.Risk)
	assert.Equal(t, model.Stage(4), res.Stage)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/facilities/nope/assessment", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/facilities/f1/assessment?at=yesterday", nil).Code)
}

func TestAlertsEndpoint(t *testing.T) {
	h := NewHandler(newTestEngine(t), "", nil)
	rr := do(t, h, http.MethodGet, "/api/alerts?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var list alerts.AlertList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Alerts, 1)
	assert.Equal(t, "f2", list.Alerts[0].FacilityID, "stage 6 sorts first")
	assert.Equal(t, 1, list.Overflow)

	rr = do(t, h, http.MethodGet, "/api/alerts?format=csv", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	recs, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/alerts?limit=x", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/alerts?format=pdf", nil).Code)
}

func TestRankEndpoint(t *testing.T) {
	h := NewHandler(newTestEngine(t), "", nil)
	body := []byte(`[{"name":"fridge","power_draw_w":150,"tier":"SUPPORT"},{"name":"ventilator","power_draw_w":400,"tier":"LIFE_SUPPORT"}]`)
	rr := do(t, h, http.MethodPost, "/api/equipment/rank", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out []model.CriticalEquipment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "ventilator", out[0].Name)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/equipment/rank", []byte("{")).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/equipment/rank", nil).Code)
}

func TestSummaryAndSurvivability(t *testing.T) {
	h := NewHandler(newTestEngine(t), "", nil)
	rr := do(t, h, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var s alerts.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, 2, s.Facilities)
	assert.Equal(t, 2, s.InOutage)

	rr = do(t, h, http.MethodGet, "/api/facilities/f1/survivability?outage=2h", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/facilities/f1/survivability", nil).Code)
}

func TestReloadEndpoint(t *testing.T) {
	h := NewHandler(newTestEngine(t), "", nil)
	rr := do(t, h, http.MethodPost, "/api/schedule/reload", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var out ReloadResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, uint64(2), out.Version)
	assert.Equal(t, 1, out.Areas)
}

func TestAlertHistoryEndpoint(t *testing.T) {
	store, err := history.NewSQLiteStore(t.TempDir() + "/alerts.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, history.Record{Timestamp: monday.Add(8 * time.Hour), Total: 1,
		Alerts: []model.PowerOutageAlert{{FacilityID: "f1", Stage: 4}}}))
	require.NoError(t, store.Append(ctx, history.Record{Timestamp: monday.Add(9 * time.Hour), Total: 2,
		Alerts: []model.PowerOutageAlert{{FacilityID: "f1", Stage: 4}, {FacilityID: "f2", Stage: 6}}}))

	h := NewHandler(newTestEngine(t), "", nil, WithHistory(store))
	rr := do(t, h, http.MethodGet, "/api/alerts/history?facility=f2", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var recs []history.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].Total)

	rr = do(t, h, http.MethodGet, "/api/alerts/history?to=2025-03-03T08:30:00Z", nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	assert.Len(t, recs, 1)

	rr = do(t, h, http.MethodGet, "/api/alerts/history?min_stage=12", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, NewHandler(newTestEngine(t), "", nil), http.MethodGet, "/api/alerts/history", nil)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestBearerToken(t *testing.T) {
	h := NewHandler(newTestEngine(t), "s3cret", nil)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/summary", nil).Code)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
