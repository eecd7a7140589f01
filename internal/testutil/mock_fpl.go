// Package testutil provides testing utilities for the FPL client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// BootstrapDocument is a small but structurally-complete
// bootstrap-static payload: three gameweeks (one current, one next), a
// phase with a null highest_score, two teams and two players.
const BootstrapDocument = `{
	"events": [
		{"id": 1, "name": "Gameweek 1", "is_previous": true, "is_current": false, "is_next": false, "finished": true},
		{"id": 2, "name": "Gameweek 2", "is_previous": false, "is_current": true, "is_next": false, "finished": false},
		{"id": 3, "name": "Gameweek 3", "is_previous": false, "is_current": false, "is_next": true, "finished": false}
	],
	"phases": [
		{"id": 1, "name": "Overall", "start_event": 1, "stop_event": 38, "highest_score": 89},
		{"id": 2, "name": "September", "start_event": 2, "stop_event": 5, "highest_score": null}
	],
	"teams": [
		{"id": 1, "name": "Arsenal", "short_name": "ARS"},
		{"id": 2, "name": "Liverpool", "short_name": "LIV"}
	],
	"elements": [
		{"id": 100, "web_name": "Salah", "team": 2, "element_type": 3, "now_cost": 130},
		{"id": 200, "web_name": "Saka", "team": 1, "element_type": 3, "now_cost": 100}
	],
	"element_types": [
		{"id": 3, "singular_name": "Midfielder", "plural_name": "Midfielders"}
	]
}`

// FixturesDocument is a minimal fixtures payload.
const FixturesDocument = `[
	{"id": 1, "event": 2, "team_h": 1, "team_a": 2, "finished": false}
]`

// MockResponse defines the behavior for a mock FPL endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockFPL is a configurable mock FPL API server for testing.
type MockFPL struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	PathCounts        map[string]int
	LastRequestHeader http.Header
}

// NewMockFPL creates a mock FPL API server with canned defaults for the
// bootstrap-static, fixtures and element-summary endpoints.
func NewMockFPL() *MockFPL {
	mock := &MockFPL{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockFPL) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockFPL) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockFPL) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockFPL) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockFPL) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPlayerSummaryResponse configures the element-summary endpoint for
// one player.
func (m *MockFPL) SetPlayerSummaryResponse(playerID int, resp MockResponse) {
	m.SetResponse(fmt.Sprintf("/element-summary/%d/", playerID), resp)
}

// FailFirst makes a path return the given status for the first n
// requests, then fall back to the default handler.
func (m *MockFPL) FailFirst(path string, n, statusCode int) {
	var mu sync.Mutex
	failed := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		shouldFail := failed < n
		if shouldFail {
			failed++
		}
		mu.Unlock()

		if shouldFail {
			w.WriteHeader(statusCode)
			w.Write([]byte(fmt.Sprintf(`{"error": "status %d"}`, statusCode)))
			return
		}
		m.defaultHandler(w, r)
	})
}

// GetRequestCount returns the total number of requests served.
func (m *MockFPL) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests served for one path.
func (m *MockFPL) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// defaultHandler serves the canned FPL documents.
func (m *MockFPL) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	path := r.URL.Path
	switch {
	case path == "/bootstrap-static/" || path == "/bootstrap-static":
		w.Write([]byte(BootstrapDocument))
	case path == "/fixtures/" || path == "/fixtures":
		w.Write([]byte(FixturesDocument))
	case len(path) > len("/element-summary/") && path[:len("/element-summary/")] == "/element-summary/":
		w.Write([]byte(`{"history": [], "history_past": [], "fixtures": []}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "not found"}`))
	}
}

// NewHealthyResponse creates a standard 200 OK JSON response.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewForbiddenResponse creates the 403 block page the FPL API serves to
// clients it has flagged.
func NewForbiddenResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `<html><body>Access Denied</body></html>`,
		Headers: map[string]string{
			"Content-Type": "text/html",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
