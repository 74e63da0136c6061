package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MJE43/montyhall-sim-go/internal/engine"
	"github.com/MJE43/montyhall-sim-go/internal/games"
	"github.com/MJE43/montyhall-sim-go/internal/sweep"
)

var testSeeds = engine.Seeds{Server: "test_server_seed", Client: "test_client_seed"}

func newTestServer() *Server {
	return NewServer(Options{})
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) EngineError {
	t.Helper()

	var engineErr EngineError
	if err := json.NewDecoder(w.Body).Decode(&engineErr); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return engineErr
}

func TestHealthEndpoints(t *testing.T) {
	routes := newTestServer().Routes()

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/version"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()
			routes.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}
			if got := w.Header().Get("X-Engine-Version"); got != EngineVersion {
				t.Errorf("X-Engine-Version = %q, want %q", got, EngineVersion)
			}
		})
	}
}

func TestHealthChecksReported(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	newTestServer().Routes().ServeHTTP(w, req)

	var resp HealthCheckResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status == HealthStatusUnhealthy {
		t.Errorf("Status = %s, want healthy or degraded", resp.Status)
	}
	for _, name := range []string{"simulator", "sweeper"} {
		if _, ok := resp.Checks[name]; !ok {
			t.Errorf("missing %q check", name)
		}
	}
	if resp.System.NumCPU == 0 {
		t.Error("Expected system info")
	}
}

func TestSeedHashEndpoint(t *testing.T) {
	w := postJSON(t, newTestServer().Routes(), "/api/v1/seed/hash", SeedHashRequest{ServerSeed: "test_server_seed"})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp SeedHashResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	want := "41edd15aeaa5d9532b515a809e6aaa81f2cad2cd7937ef3e30ec0f908c5e0f45"
	if resp.Hash != want {
		t.Errorf("Hash = %s, want %s", resp.Hash, want)
	}
}

func TestSeedHashRequiresSeed(t *testing.T) {
	w := postJSON(t, newTestServer().Routes(), "/api/v1/seed/hash", SeedHashRequest{})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	if got := decodeError(t, w).Type; got != ErrTypeValidation {
		t.Errorf("error type = %s, want %s", got, ErrTypeValidation)
	}
}

func TestPlayEndpointSeeded(t *testing.T) {
	routes := newTestServer().Routes()

	tests := []struct {
		name     string
		switched bool
		workers  int
		wantWins int
	}{
		{"switch single worker", true, 0, 663},
		{"stay single worker", false, 0, 337},
		{"switch four workers", true, 4, 650},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, routes, "/api/v1/play", PlayRequest{
				Doors:      3,
				Switch:     tt.switched,
				Iterations: 1000,
				Seeds:      testSeeds,
				Nonce:      1,
				Workers:    tt.workers,
			})
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
			}

			var resp PlayResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Wins != tt.wantWins {
				t.Errorf("Wins = %d, want %d", resp.Wins, tt.wantWins)
			}
			if resp.WinFraction != float64(tt.wantWins)/1000 {
				t.Errorf("WinFraction = %v, want %v", resp.WinFraction, float64(tt.wantWins)/1000)
			}
			if resp.Percentage == "" || resp.RunID == "" {
				t.Errorf("missing percentage or run id: %+v", resp)
			}
			if resp.Expected != games.Expected(3, tt.switched) {
				t.Errorf("Expected = %v, want %v", resp.Expected, games.Expected(3, tt.switched))
			}
			if resp.ServerSeedHash != engine.HashServerSeed(testSeeds.Server) {
				t.Errorf("ServerSeedHash = %s", resp.ServerSeedHash)
			}
		})
	}
}

func TestPlayEndpointUnseeded(t *testing.T) {
	w := postJSON(t, newTestServer().Routes(), "/api/v1/play", PlayRequest{Doors: 3, Switch: true, Iterations: 20000})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp PlayResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.WinFraction < 0.62 || resp.WinFraction > 0.71 {
		t.Errorf("WinFraction = %v, want about 2/3", resp.WinFraction)
	}
	if resp.ServerSeedHash != "" {
		t.Errorf("unseeded run should not carry a seed hash, got %s", resp.ServerSeedHash)
	}
}

func TestPlayEndpointErrors(t *testing.T) {
	routes := newTestServer().Routes()

	tests := []struct {
		name     string
		req      PlayRequest
		wantType string
	}{
		{"zero doors", PlayRequest{Doors: 0, Iterations: 10}, ErrTypeInvalidDoorCount},
		{"negative doors", PlayRequest{Doors: -1, Iterations: 10}, ErrTypeInvalidDoorCount},
		{"zero iterations", PlayRequest{Doors: 3, Iterations: 0}, ErrTypeInvalidIterationCount},
		{"too many doors", PlayRequest{Doors: DefaultLimits.MaxDoors + 1, Iterations: 10}, ErrTypeValidation},
		{"too many iterations", PlayRequest{Doors: 3, Iterations: DefaultLimits.MaxPlayIterations + 1}, ErrTypeValidation},
		{"negative workers", PlayRequest{Doors: 3, Iterations: 10, Workers: -1}, ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, routes, "/api/v1/play", tt.req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", w.Code)
			}
			if got := w.Header().Get("X-Error-Category"); got != string(CategoryValidation) {
				t.Errorf("X-Error-Category = %q", got)
			}
			if got := decodeError(t, w).Type; got != tt.wantType {
				t.Errorf("error type = %s, want %s", got, tt.wantType)
			}
		})
	}
}

func TestMalformedBody(t *testing.T) {
	routes := newTestServer().Routes()

	for _, body := range []string{"{", `{"doors": "three"}`, `{"doors": 3, "unknown": true}`} {
		req := httptest.NewRequest("POST", "/api/v1/play", strings.NewReader(body))
		w := httptest.NewRecorder()
		routes.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: Expected status 400, got %d", body, w.Code)
		}
	}
}

func TestRoundEndpoint(t *testing.T) {
	w := postJSON(t, newTestServer().Routes(), "/api/v1/round", RoundRequest{Doors: 3, Seeds: testSeeds, Nonce: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp RoundResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	out := resp.Outcome
	wantLayout := games.Layout{games.Empty, games.Empty, games.Prize}
	if len(out.Layout) != len(wantLayout) {
		t.Fatalf("Layout = %v, want %v", out.Layout, wantLayout)
	}
	for i := range wantLayout {
		if out.Layout[i] != wantLayout[i] {
			t.Fatalf("Layout = %v, want %v", out.Layout, wantLayout)
		}
	}
	if out.ContestantIndex != 2 || out.RevealedIndex != 0 || out.AlternateIndex != 1 {
		t.Errorf("indices = contestant %d revealed %d alternate %d, want 2 0 1",
			out.ContestantIndex, out.RevealedIndex, out.AlternateIndex)
	}
	if !resp.StayWins || resp.SwitchWins {
		t.Errorf("StayWins=%t SwitchWins=%t, want true false", resp.StayWins, resp.SwitchWins)
	}
}

func TestRoundEndpointLayoutIsNamed(t *testing.T) {
	w := postJSON(t, newTestServer().Routes(), "/api/v1/round", RoundRequest{Doors: 3, Seeds: testSeeds, Nonce: 1})

	if !strings.Contains(w.Body.String(), `"layout":["zonk","zonk","car"]`) {
		t.Errorf("layout not encoded by name: %s", w.Body.String())
	}
}

func TestSweepEndpoint(t *testing.T) {
	w := postJSON(t, newTestServer().Routes(), "/api/v1/sweep", sweep.Request{
		Doors:      3,
		Iterations: 6,
		Seeds:      engine.Seeds{Server: "sweep_server", Client: "sweep_client"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp SweepResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Result == nil || len(resp.Records) != 6 {
		t.Fatalf("expected 6 records, got %+v", resp.Result)
	}
	if resp.Summary.TotalRounds != 21 {
		t.Errorf("TotalRounds = %d, want 21", resp.Summary.TotalRounds)
	}
	if resp.EngineVersion == "" {
		t.Error("Expected engine version in response")
	}
}

func TestSweepEndpointScriptLogs(t *testing.T) {
	w := postJSON(t, newTestServer().Routes(), "/api/v1/sweep", sweep.Request{
		Doors:      3,
		Iterations: 4,
		Policy:     sweep.PolicyScript,
		Script:     "function policy(i) { log('step', i); return i % 2 === 0 }",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp SweepResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	want := []string{"step 1", "step 2", "step 3", "step 4"}
	if len(resp.ScriptLogs) != len(want) {
		t.Fatalf("ScriptLogs = %q, want %q", resp.ScriptLogs, want)
	}
	for i := range want {
		if resp.ScriptLogs[i] != want[i] {
			t.Errorf("ScriptLogs[%d] = %q, want %q", i, resp.ScriptLogs[i], want[i])
		}
	}
}

func TestSweepEndpointErrors(t *testing.T) {
	routes := newTestServer().Routes()

	tests := []struct {
		name     string
		req      sweep.Request
		wantType string
	}{
		{"zero doors", sweep.Request{Doors: 0, Iterations: 5}, ErrTypeInvalidDoorCount},
		{"zero iterations", sweep.Request{Doors: 3}, ErrTypeInvalidIterationCount},
		{"unknown policy", sweep.Request{Doors: 3, Iterations: 5, Policy: "sometimes"}, ErrTypeInvalidPolicy},
		{"script missing", sweep.Request{Doors: 3, Iterations: 5, Policy: sweep.PolicyScript}, ErrTypeValidation},
		{"bad script", sweep.Request{Doors: 3, Iterations: 5, Policy: sweep.PolicyScript, Script: "(("}, ErrTypeScript},
		{"too many iterations", sweep.Request{Doors: 3, Iterations: DefaultLimits.MaxSweepIterations + 1}, ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, routes, "/api/v1/sweep", tt.req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
			if got := decodeError(t, w).Type; got != tt.wantType {
				t.Errorf("error type = %s, want %s", got, tt.wantType)
			}
		})
	}
}

func TestSweepReportCSV(t *testing.T) {
	w := postJSON(t, newTestServer().Routes(), "/api/v1/sweep/report/csv", sweep.Request{
		Doors:      3,
		Iterations: 6,
		Seeds:      engine.Seeds{Server: "sweep_server", Client: "sweep_client"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="monty_hall_3_6.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Errorf("Content-Type = %q", got)
	}

	want := "iterations,percentage,doors,switched\n" +
		"1,0.000000,3,false\n" +
		"2,0.500000,3,true\n" +
		"3,0.333333,3,false\n" +
		"4,1.000000,3,true\n" +
		"5,0.400000,3,false\n" +
		"6,0.666667,3,true\n"
	if got := w.Body.String(); got != want {
		t.Errorf("body:\n%s\nwant:\n%s", got, want)
	}
}

func TestSweepReportSVG(t *testing.T) {
	w := postJSON(t, newTestServer().Routes(), "/api/v1/sweep/report/SVG", sweep.Request{Doors: 4, Iterations: 10})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "image/svg+xml" {
		t.Errorf("Content-Type = %q", got)
	}
	if !strings.HasPrefix(w.Body.String(), "<svg") && !strings.HasPrefix(w.Body.String(), "<?xml") {
		t.Errorf("body does not look like SVG: %.40s", w.Body.String())
	}
}

func TestSweepReportPNG(t *testing.T) {
	w := postJSON(t, newTestServer().Routes(), "/api/v1/sweep/report/png", sweep.Request{Doors: 3, Iterations: 8})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "monty_hall_3_8.png") {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !strings.HasPrefix(w.Body.String(), "\x89PNG\r\n\x1a\n") {
		t.Errorf("body does not look like PNG: %q", w.Body.String()[:min(8, w.Body.Len())])
	}
}

func TestSweepReportUnknownFormat(t *testing.T) {
	w := postJSON(t, newTestServer().Routes(), "/api/v1/sweep/report/bmp", sweep.Request{Doors: 3, Iterations: 5})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	if got := decodeError(t, w).Type; got != ErrTypeInvalidFormat {
		t.Errorf("error type = %s, want %s", got, ErrTypeInvalidFormat)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest("OPTIONS", "/api/v1/play", nil)
	w := httptest.NewRecorder()
	newTestServer().Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		errType string
		want    ErrorCategory
	}{
		{ErrTypeInvalidDoorCount, CategoryValidation},
		{ErrTypeScript, CategoryValidation},
		{ErrTypeTimeout, CategoryTimeout},
		{ErrTypeInternal, CategorySystem},
		{"something_else", CategorySystem},
	}
	for _, tt := range tests {
		if got := GetErrorCategory(tt.errType); got != tt.want {
			t.Errorf("GetErrorCategory(%s) = %s, want %s", tt.errType, got, tt.want)
		}
	}
}
