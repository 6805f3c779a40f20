package thinq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/joshp123/thinqhome/internal/oauth"
	"github.com/joshp123/thinqhome/internal/rate"
)

type memoryBlobStore struct {
	data map[string][]byte
}

func (m *memoryBlobStore) Load(_ context.Context, provider string) ([]byte, error) {
	if m.data != nil {
		if data, ok := m.data[provider]; ok {
			return data, nil
		}
	}
	return nil, oauth.ErrBlobNotFound
}

func (m *memoryBlobStore) Save(_ context.Context, provider string, data []byte) error {
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[provider] = data
	return nil
}

const (
	devicesResponse = `{"messageId":"m1","timestamp":"2024-08-04T09:20:08Z","response":[
		{"deviceId":"ac-1","deviceInfo":{"deviceType":"DEVICE_AIR_CONDITIONER","modelName":"RAC_056905_WW","alias":"Living Room","reportable":true}},
		{"deviceId":"wm-1","deviceInfo":{"deviceType":"DEVICE_WASHER","modelName":"F_V","alias":"Washer","reportable":true}}
	]}`
	profileResponse = `{"messageId":"m2","timestamp":"2024-08-04T09:20:08Z","response":{"property":{
		"airConJobMode":{"currentJobMode":{"type":"enum","value":{"r":["COOL","AIR_DRY","FAN","AUTO"],"w":["COOL","AIR_DRY","FAN","AUTO"]}}},
		"airFlow":{"windStrength":{"type":"enum","value":{"r":["LOW","MID","HIGH"],"w":["LOW","MID","HIGH"]}}},
		"temperature":{"targetTemperature":{"type":"range","value":{"w":{"min":18,"max":30,"step":0.5}}},"unit":{"type":"enum","value":{"r":["C"]}}},
		"windDirection":{"rotateUpDown":{"type":"boolean","value":{"w":[false,true]}}}
	}}}`
	stateResponse = `{"messageId":"m3","timestamp":"2024-08-04T09:20:08Z","response":{
		"airConJobMode":{"currentJobMode":"AIR_DRY"},
		"operation":{"airConOperationMode":"POWER_ON"},
		"temperature":{"currentTemperature":24,"targetTemperature":21,"unit":"C"},
		"airFlow":{"windStrength":"MID"},
		"windDirection":{"rotateUpDown":true}
	}}`
)

type fakeCloud struct {
	t *testing.T

	mu            sync.Mutex
	tokenRequests int
	controls      []string
	stateStatus   int
	devicesStatus int
}

func (f *fakeCloud) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/token" {
		f.mu.Lock()
		f.tokenRequests++
		f.mu.Unlock()
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "refresh_token=refresh-token") {
			f.t.Errorf("expected refresh_token in request, got %s", string(body))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"test-token","refresh_token":"new-refresh","expires_in":3600,"token_type":"Bearer"}`)
		return
	}

	if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.Header.Get("x-country") != "NL" || r.Header.Get("x-api-key") != "api-key" || r.Header.Get("x-message-id") == "" {
		f.t.Errorf("missing ThinQ headers: %v", r.Header)
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/devices":
		f.mu.Lock()
		code := f.devicesStatus
		f.mu.Unlock()
		if code != 0 {
			w.WriteHeader(code)
			_, _ = io.WriteString(w, `{"messageId":"m0","timestamp":"2024-08-04T09:20:08Z","error":{"code":"2000","message":"Service unavailable"}}`)
			return
		}
		_, _ = io.WriteString(w, devicesResponse)
	case "/devices/ac-1/profile":
		_, _ = io.WriteString(w, profileResponse)
	case "/devices/ac-1/state":
		f.mu.Lock()
		code := f.stateStatus
		f.mu.Unlock()
		if code != 0 {
			w.WriteHeader(code)
			_, _ = io.WriteString(w, `{"messageId":"m4","timestamp":"2024-08-04T09:20:08Z","error":{"code":"1222","message":"Not connected device"}}`)
			return
		}
		_, _ = io.WriteString(w, stateResponse)
	case "/devices/ac-1/control":
		if r.Method != http.MethodPost {
			f.t.Errorf("expected POST to control, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.controls = append(f.controls, string(body))
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"messageId":"m5","timestamp":"2024-08-04T09:20:08Z","response":{}}`)
	default:
		f.t.Errorf("unexpected path: %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeCloud) {
	t.Helper()

	cloud := &fakeCloud{t: t}
	server := httptest.NewServer(cloud)
	t.Cleanup(server.Close)

	tempDir := t.TempDir()
	bootstrapPath := filepath.Join(tempDir, "bootstrap.json")
	statePath := filepath.Join(tempDir, "state.json")

	bootstrap := oauth.State{
		SchemaVersion: oauth.SchemaVersion,
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
		RefreshToken:  "refresh-token",
		Scope:         "offline_access",
	}
	if err := oauth.WriteState(bootstrapPath, bootstrap); err != nil {
		t.Fatalf("write bootstrap: %v", err)
	}

	decl := oauth.Declaration{
		Provider:  "thinq",
		TokenURL:  server.URL + "/token",
		Scope:     "offline_access",
		StatePath: statePath,
	}
	cfg := Config{
		BaseURL:       server.URL,
		BootstrapFile: bootstrapPath,
		Country:       "NL",
		ClientID:      "thinqhome-test",
		APIKey:        "api-key",
	}
	rateDecl := rate.Provider("thinq").MaxRequestsPer(rate.Minute, 1000)

	client, err := NewClientWithStore(cfg, decl, rateDecl, &memoryBlobStore{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, cloud
}

func TestClientFlow(t *testing.T) {
	client, cloud := newTestClient(t)
	ctx := context.Background()

	devices, err := client.Devices(ctx)
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 2 || devices[0].DeviceID != "ac-1" || devices[0].DeviceInfo.Alias != "Living Room" {
		t.Fatalf("unexpected devices: %+v", devices)
	}

	profile, err := client.Profile(ctx, "ac-1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	remote := NewRemoteAC(client, "ac-1", profile)

	if got := strings.Join(remote.OpModes(), ","); got != "COOL,DRY,FAN,AI" {
		t.Fatalf("unexpected op modes: %s", got)
	}
	if got := strings.Join(remote.FanSpeeds(), ","); got != "LOW,MID,HIGH" {
		t.Fatalf("unexpected fan speeds: %s", got)
	}
	if len(remote.VertSwingModes()) != 2 {
		t.Fatalf("expected swing modes, got %v", remote.VertSwingModes())
	}
	if remote.TargetTemperatureMin() == nil || *remote.TargetTemperatureMin() != 18 || remote.TargetTemperatureStep() != 0.5 {
		t.Fatalf("unexpected temperature range")
	}

	state, err := remote.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !state.IsOn || state.OperationMode != "DRY" || state.FanSpeed != "MID" || state.VertSwingMode != SwingAll {
		t.Fatalf("unexpected state: %+v", state)
	}
	if state.CurrentTemp == nil || *state.CurrentTemp != 24 || state.TargetTemp == nil || *state.TargetTemp != 21 {
		t.Fatalf("unexpected temperatures: %+v", state)
	}

	if err := remote.Power(ctx, false); err != nil {
		t.Fatalf("Power: %v", err)
	}
	if err := remote.SetOpMode(ctx, "AI"); err != nil {
		t.Fatalf("SetOpMode: %v", err)
	}
	if err := remote.SetTargetTemp(ctx, 22.5); err != nil {
		t.Fatalf("SetTargetTemp: %v", err)
	}
	if err := remote.SetVertSwingMode(ctx, SwingOff); err != nil {
		t.Fatalf("SetVertSwingMode: %v", err)
	}
	if err := remote.SetVertSwingMode(ctx, "LEFT"); err == nil {
		t.Fatalf("expected error for unsupported swing mode")
	}

	want := []map[string]any{
		{"operation": map[string]any{"airConOperationMode": "POWER_OFF"}},
		{"airConJobMode": map[string]any{"currentJobMode": "AUTO"}},
		{"temperature": map[string]any{"targetTemperature": 22.5, "unit": "C"}},
		{"windDirection": map[string]any{"rotateUpDown": false}},
	}
	if len(cloud.controls) != len(want) {
		t.Fatalf("expected %d control calls, got %v", len(want), cloud.controls)
	}
	for i, body := range cloud.controls {
		var got map[string]any
		if err := json.Unmarshal([]byte(body), &got); err != nil {
			t.Fatalf("decode control %d: %v", i, err)
		}
		wantJSON, _ := json.Marshal(want[i])
		gotJSON, _ := json.Marshal(got)
		if string(wantJSON) != string(gotJSON) {
			t.Fatalf("control %d: expected %s, got %s", i, wantJSON, gotJSON)
		}
	}

	if cloud.tokenRequests != 1 {
		t.Fatalf("expected one token refresh, got %d", cloud.tokenRequests)
	}
}

func TestClientDecodesErrorEnvelope(t *testing.T) {
	client, cloud := newTestClient(t)
	cloud.stateStatus = http.StatusBadRequest

	_, err := client.State(context.Background(), "ac-1")
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != "1222" || apiErr.Message != "Not connected device" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestDiscoverBuildsClimateHandles(t *testing.T) {
	client, cloud := newTestClient(t)

	registry, err := Discover(context.Background(), client)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(registry[DeviceTypeAC]) != 1 || len(registry[DeviceTypeWasher]) != 0 {
		t.Fatalf("unexpected registry: %+v", registry)
	}

	handle := registry[DeviceTypeAC][0]
	if handle.Name() != "Living Room" || handle.DeviceInfo().Model != "RAC_056905_WW" {
		t.Fatalf("unexpected handle: %s %+v", handle.Name(), handle.DeviceInfo())
	}
	if !handle.Available() || handle.State().OperationMode != "DRY" {
		t.Fatalf("expected initial poll to populate state: %+v", handle.State())
	}

	cloud.mu.Lock()
	cloud.stateStatus = http.StatusBadRequest
	cloud.mu.Unlock()
	if err := handle.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}
	if handle.Available() {
		t.Fatalf("expected handle to be unavailable after a failed poll")
	}
	if handle.State().OperationMode != "DRY" {
		t.Fatalf("failed poll must keep the last state")
	}
}

func TestRemoteACInitialUnit(t *testing.T) {
	cases := []struct {
		units string
		want  TemperatureUnit
	}{
		{`[]`, UnitCelsius},
		{`["C"]`, UnitCelsius},
		{`["C","F"]`, UnitCelsius},
		{`["F","C"]`, UnitCelsius},
		{`["F"]`, UnitFahrenheit},
	}
	for _, tc := range cases {
		var profile Profile
		raw := `{"property":{"temperature":{"unit":{"type":"enum","value":{"r":` + tc.units + `}}}}}`
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			t.Fatalf("decode profile %s: %v", tc.units, err)
		}
		ac := NewRemoteAC(nil, "ac-1", profile)
		if got := ac.TemperatureUnit(); got != tc.want {
			t.Fatalf("units %s: expected %s, got %s", tc.units, tc.want, got)
		}
		if tc.want == UnitCelsius && ac.ConvTempUnit(7) != 7 {
			t.Fatalf("units %s: expected celsius fallback bounds", tc.units)
		}
	}
}
