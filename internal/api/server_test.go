package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hearthlabs/hearth-core/internal/infrastructure/config"
	"github.com/hearthlabs/hearth-core/internal/infrastructure/logging"
	"github.com/hearthlabs/hearth-core/internal/monitor"
	"github.com/hearthlabs/hearth-core/internal/value"
)

// stubRegistry serves a fixed device inventory to the binder.
type stubRegistry struct{}

var stubDevices = []monitor.DeviceInfo{
	{ID: "motion-01", Kind: "motion_sensor", Inputs: []monitor.InputCapability{"presence"}},
	{ID: "siren-01", Kind: "siren", Outputs: []monitor.OutputCapability{"play_sound", "stop_sound"}},
}

func (stubRegistry) DevicesByKind(kind monitor.DeviceKind) []monitor.DeviceInfo {
	var out []monitor.DeviceInfo
	for _, d := range stubDevices {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func (stubRegistry) Device(id monitor.DeviceID) (monitor.DeviceInfo, bool) {
	for _, d := range stubDevices {
		if d.ID == id {
			return d, true
		}
	}
	return monitor.DeviceInfo{}, false
}

// stubEnv accepts every watch and send without touching a broker.
type stubEnv struct {
	mu    sync.Mutex
	sends int
}

type stubWitness struct{}

func (stubWitness) Close() error { return nil }

func (e *stubEnv) Watch(monitor.DeviceID, monitor.InputCapability, value.Range, monitor.WatchCallback) (monitor.Witness, error) {
	return stubWitness{}, nil
}

func (e *stubEnv) Send(monitor.DeviceID, monitor.OutputCapability, map[string]value.Value) error {
	e.mu.Lock()
	e.sends++
	e.mu.Unlock()
	return nil
}

// stubFirings serves canned firing records.
type stubFirings struct {
	firings []monitor.TriggerFiring
	err     error
}

func (s *stubFirings) RecordFiring(_ context.Context, f *monitor.TriggerFiring) error {
	s.firings = append(s.firings, *f)
	return nil
}

func (s *stubFirings) ListFirings(_ context.Context, monitorName string, limit int) ([]monitor.TriggerFiring, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []monitor.TriggerFiring
	for _, f := range s.firings {
		if f.Monitor == monitorName && len(out) < limit {
			out = append(out, f)
		}
	}
	return out, nil
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
}

// setupServer builds a server over a real manager with stubbed device I/O
// and returns the router for httptest-driven requests.
func setupServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	logger := testLogger()
	manager := monitor.NewManager(
		monitor.NewEnvBinder(stubRegistry{}),
		&stubEnv{},
		monitor.Hooks{},
	)
	t.Cleanup(func() { manager.Close() })

	srv, err := New(Deps{
		Config:  config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:  logger,
		Manager: manager,
		Firings: &stubFirings{},
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.hub = NewHub(config.WebSocketConfig{MaxMessageSize: 4096, PingInterval: 30, PongTimeout: 60}, logger)
	return srv, srv.buildRouter()
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func alarmScript() *monitor.Script {
	return &monitor.Script{
		Requirements: []monitor.Requirement{
			{Kind: "motion_sensor", Inputs: []monitor.InputCapability{"presence"}},
			{Kind: "siren", Outputs: []monitor.OutputCapability{"play_sound"}},
		},
		Allocations: []monitor.Resource{
			{Devices: []monitor.DeviceID{"motion-01"}},
			{Devices: []monitor.DeviceID{"siren-01"}},
		},
		Rules: []monitor.Trigger{
			{
				Condition: monitor.Conjunction{All: []monitor.Condition{
					{Source: 0, Capability: "presence", Range: value.EqBool(true)},
				}},
				Execute: []monitor.Statement{
					{Destination: 1, Action: "play_sound", Arguments: map[string]monitor.Expression{
						"volume": monitor.ValueExpr(value.Num(80)),
					}},
				},
			},
		},
	}
}

func registerAlarm(t *testing.T, router http.Handler, name string) {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/api/v1/monitors", registerMonitorRequest{
		Name:   name,
		Script: alarmScript(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	_, router := setupServer(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestRegisterMonitor(t *testing.T) {
	_, router := setupServer(t)

	registerAlarm(t, router, "night-alarm")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/monitors/night-alarm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var info monitor.MonitorInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("unmarshal info: %v", err)
	}
	if info.Name != "night-alarm" || info.Requirements != 2 || info.Rules != 1 || info.Running {
		t.Errorf("info = %+v", info)
	}
}

func TestRegisterMonitor_Validation(t *testing.T) {
	_, router := setupServer(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"bad json", "{not json", http.StatusBadRequest},
		{"missing name", registerMonitorRequest{Script: alarmScript()}, http.StatusBadRequest},
		{"uppercase name", registerMonitorRequest{Name: "NightAlarm", Script: alarmScript()}, http.StatusBadRequest},
		{"missing script", registerMonitorRequest{Name: "night-alarm"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/v1/monitors", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRegisterMonitor_InvalidScript(t *testing.T) {
	_, router := setupServer(t)

	script := alarmScript()
	script.Rules[0].Condition.All[0].Source = 9

	rec := doRequest(t, router, http.MethodPost, "/api/v1/monitors", registerMonitorRequest{
		Name:   "broken",
		Script: script,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestRegisterMonitor_Duplicate(t *testing.T) {
	_, router := setupServer(t)

	registerAlarm(t, router, "night-alarm")
	rec := doRequest(t, router, http.MethodPost, "/api/v1/monitors", registerMonitorRequest{
		Name:   "night-alarm",
		Script: alarmScript(),
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestListMonitors(t *testing.T) {
	_, router := setupServer(t)

	registerAlarm(t, router, "zulu")
	registerAlarm(t, router, "alpha")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/monitors", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Monitors []monitor.MonitorInfo `json:"monitors"`
		Count    int                   `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Count != 2 || len(body.Monitors) != 2 {
		t.Fatalf("count = %d, monitors = %d", body.Count, len(body.Monitors))
	}
	if body.Monitors[0].Name != "alpha" || body.Monitors[1].Name != "zulu" {
		t.Errorf("monitors not sorted: %s, %s", body.Monitors[0].Name, body.Monitors[1].Name)
	}
}

func TestStartStopMonitor(t *testing.T) {
	_, router := setupServer(t)

	registerAlarm(t, router, "night-alarm")

	rec := doRequest(t, router, http.MethodPost, "/api/v1/monitors/night-alarm/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Second start conflicts.
	rec = doRequest(t, router, http.MethodPost, "/api/v1/monitors/night-alarm/start", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/v1/monitors/night-alarm/stop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Second stop conflicts.
	rec = doRequest(t, router, http.MethodPost, "/api/v1/monitors/night-alarm/stop", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second stop status = %d, want 409", rec.Code)
	}
}

func TestStartMonitor_CompileFailure(t *testing.T) {
	_, router := setupServer(t)

	script := alarmScript()
	script.Allocations[0].Devices = []monitor.DeviceID{"ghost-99"}
	rec := doRequest(t, router, http.MethodPost, "/api/v1/monitors", registerMonitorRequest{
		Name:   "ghost-watch",
		Script: script,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/v1/monitors/ghost-watch/start", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("start status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestMonitor_NotFound(t *testing.T) {
	_, router := setupServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/monitors/ghost"},
		{http.MethodDelete, "/api/v1/monitors/ghost"},
		{http.MethodPost, "/api/v1/monitors/ghost/start"},
		{http.MethodPost, "/api/v1/monitors/ghost/stop"},
		{http.MethodGet, "/api/v1/monitors/ghost/firings"},
	}
	for _, p := range paths {
		rec := doRequest(t, router, p.method, p.path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", p.method, p.path, rec.Code)
		}
	}
}

func TestDeregisterMonitor(t *testing.T) {
	_, router := setupServer(t)

	registerAlarm(t, router, "night-alarm")

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/monitors/night-alarm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deregister status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/monitors/night-alarm", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after deregister status = %d, want 404", rec.Code)
	}
}

func TestListFirings(t *testing.T) {
	srv, router := setupServer(t)

	registerAlarm(t, router, "night-alarm")

	store := srv.firings.(*stubFirings)
	now := time.Now()
	for i := 0; i < 3; i++ {
		store.firings = append(store.firings, monitor.TriggerFiring{
			ID:      fmt.Sprintf("f-%d", i),
			Monitor: "night-alarm",
			FiredAt: now,
			EventAt: now,
		})
	}

	rec := doRequest(t, router, http.MethodGet, "/api/v1/monitors/night-alarm/firings?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Firings []monitor.TriggerFiring `json:"firings"`
		Count   int                     `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
}

func TestListFirings_BadLimit(t *testing.T) {
	_, router := setupServer(t)

	registerAlarm(t, router, "night-alarm")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/monitors/night-alarm/firings?limit=zero", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestNew_MissingDeps(t *testing.T) {
	if _, err := New(Deps{Manager: nil, Logger: testLogger()}); err == nil {
		t.Error("New() without manager should fail")
	}
	if _, err := New(Deps{Manager: &monitor.Manager{}}); err == nil {
		t.Error("New() without logger should fail")
	}
}
