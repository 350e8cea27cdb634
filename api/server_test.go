package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/rag"
	"github.com/lectern-ai/lectern/internal/tools"
)

// mockSystem implements QueryService with scripted replies.
type mockSystem struct {
	reply         rag.Reply
	answerErr     error
	analytics     rag.Analytics
	analyticsErr  error
	lastQuery     string
	lastSessionID string
	panicOnAnswer bool
}

func (m *mockSystem) Answer(_ context.Context, query, sessionID string) (rag.Reply, error) {
	if m.panicOnAnswer {
		panic("boom")
	}
	m.lastQuery = query
	m.lastSessionID = sessionID
	return m.reply, m.answerErr
}

func (m *mockSystem) CourseAnalytics(_ context.Context) (rag.Analytics, error) {
	return m.analytics, m.analyticsErr
}

func intPtr(n int) *int { return &n }

func newTestServer(t *testing.T, system QueryService) http.Handler {
	t.Helper()
	srv, err := NewServer(ServerConfig{System: system})
	require.NoError(t, err)
	return srv.Handler()
}

func TestNewServerRequiresSystem(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	require.Error(t, err)
}

func TestQueryEndpoint(t *testing.T) {
	system := &mockSystem{reply: rag.Reply{
		Answer:    "Embeddings are vectors.",
		Sources:   []tools.Source{{CourseTitle: "Course", LessonNumber: intPtr(1), Link: "https://example.com/l1"}},
		SessionID: "session-123",
	}}
	handler := newTestServer(t, system)

	body := `{"query": "What are embeddings?", "session_id": "session-123"}`
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)

	var resp queryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Embeddings are vectors.", resp.Answer)
	assert.Equal(t, "session-123", resp.SessionID)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "Course", resp.Sources[0].CourseTitle)
	require.NotNil(t, resp.Sources[0].LessonNumber)
	assert.Equal(t, 1, *resp.Sources[0].LessonNumber)

	assert.Equal(t, "What are embeddings?", system.lastQuery)
	assert.Equal(t, "session-123", system.lastSessionID)
}

func TestQueryEndpointOmittedSession(t *testing.T) {
	system := &mockSystem{reply: rag.Reply{Answer: "ok", SessionID: "generated-id"}}
	handler := newTestServer(t, system)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query": "hi"}`)))

	require.Equal(t, http.StatusOK, w.Code)

	rawBody := w.Body.String()
	var resp queryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "generated-id", resp.SessionID)
	assert.Empty(t, system.lastSessionID)
	// Sources must serialize as [] rather than null.
	assert.Contains(t, rawBody, `"sources":[]`)
}

func TestQueryEndpointValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{not json`},
		{name: "missing query", body: `{"session_id": "x"}`},
		{name: "empty query", body: `{"query": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestServer(t, &mockSystem{})
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp errorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, "invalid_request", resp.Error)
		})
	}
}

func TestQueryEndpointSystemFailure(t *testing.T) {
	system := &mockSystem{answerErr: errors.New("model unavailable")}
	handler := newTestServer(t, system)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query": "hi"}`)))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "query_failed", resp.Error)
	// The backend error detail must not leak to the client.
	assert.NotContains(t, resp.Message, "model unavailable")
}

func TestQueryEndpointMethodNotAllowed(t *testing.T) {
	handler := newTestServer(t, &mockSystem{})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/query", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCoursesEndpoint(t *testing.T) {
	system := &mockSystem{analytics: rag.Analytics{
		TotalCourses: 2,
		CourseTitles: []string{"Course A", "Course B"},
	}}
	handler := newTestServer(t, system)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/courses", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp coursesResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.TotalCourses)
	assert.Equal(t, []string{"Course A", "Course B"}, resp.CourseTitles)
}

func TestCoursesEndpointEmptyStore(t *testing.T) {
	handler := newTestServer(t, &mockSystem{})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/courses", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"course_titles":[]`)
}

func TestCoursesEndpointFailure(t *testing.T) {
	system := &mockSystem{analyticsErr: errors.New("db down")}
	handler := newTestServer(t, system)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/courses", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t, &mockSystem{})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestReadyEndpointWithoutPool(t *testing.T) {
	handler := newTestServer(t, &mockSystem{})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	system := &mockSystem{panicOnAnswer: true}
	handler := newTestServer(t, system)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query": "hi"}`)))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "internal_error", resp.Error)
}
