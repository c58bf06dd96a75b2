// Package testutil provides a recording HTTP mock for remote backend tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// RecordedRequest stores information about a request made to the mock server.
type RecordedRequest struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    []byte
}

// DecodeBody unmarshals the recorded JSON body into v.
func (r RecordedRequest) DecodeBody(v any) error {
	return json.Unmarshal(r.Body, v)
}

// MockResponse represents a configured response for the mock server.
type MockResponse struct {
	StatusCode int
	Body       any
	Headers    map[string]string
}

// MockTrackerServer records requests and answers them from configured routes.
// Routes are keyed by "METHOD /path"; a key of just "/path" matches any method.
type MockTrackerServer struct {
	Server *httptest.Server
	mu     sync.RWMutex

	requests  []RecordedRequest
	responses map[string]MockResponse
	handlers  map[string]http.HandlerFunc

	serverError bool
}

// NewMockTrackerServer starts a new mock server.
func NewMockTrackerServer() *MockTrackerServer {
	m := &MockTrackerServer{
		responses: make(map[string]MockResponse),
		handlers:  make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handleRequest))
	return m
}

func (m *MockTrackerServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
	}

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Headers: r.Header.Clone(),
		Body:    body,
	})
	serverError := m.serverError
	m.mu.Unlock()

	if serverError {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]string{"error": "Internal server error"})
		return
	}

	m.mu.RLock()
	handler, hok := m.handlers[r.Method+" "+r.URL.Path]
	resp, rok := m.responses[r.Method+" "+r.URL.Path]
	if !rok {
		resp, rok = m.responses[r.URL.Path]
	}
	m.mu.RUnlock()

	if hok {
		handler(w, r)
		return
	}
	if rok {
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "application/json")
		if resp.StatusCode != 0 {
			w.WriteHeader(resp.StatusCode)
		}
		if resp.Body != nil {
			writeJSON(w, resp.Body)
		}
		return
	}

	w.WriteHeader(http.StatusNotFound)
	writeJSON(w, map[string]string{"message": "Not Found"})
}

// URL returns the mock server URL.
func (m *MockTrackerServer) URL() string {
	return m.Server.URL
}

// Close shuts down the mock server.
func (m *MockTrackerServer) Close() {
	m.Server.Close()
}

// SetResponse configures a response for a route ("GET /path" or "/path").
func (m *MockTrackerServer) SetResponse(route string, statusCode int, body any) {
	m.SetResponseWithHeaders(route, statusCode, body, nil)
}

// SetResponseWithHeaders configures a response with custom headers.
func (m *MockTrackerServer) SetResponseWithHeaders(route string, statusCode int, body any, headers map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[route] = MockResponse{
		StatusCode: statusCode,
		Body:       body,
		Headers:    headers,
	}
}

// Handle installs a handler for "METHOD /path", taking precedence over responses.
func (m *MockTrackerServer) Handle(route string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[route] = h
}

// SetServerError enables/disables 500 Internal Server Error responses.
func (m *MockTrackerServer) SetServerError(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serverError = enabled
}

// GetRequests returns all recorded requests.
func (m *MockTrackerServer) GetRequests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]RecordedRequest, len(m.requests))
	copy(result, m.requests)
	return result
}

// GetRequestCount returns the number of recorded requests.
func (m *MockTrackerServer) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// RequestsTo returns the recorded requests for "METHOD /path".
func (m *MockTrackerServer) RequestsTo(method, path string) []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []RecordedRequest
	for _, r := range m.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}
