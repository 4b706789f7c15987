package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/moodmate/moodgate/internal/auth"
	"github.com/moodmate/moodgate/internal/domain"
	"github.com/moodmate/moodgate/internal/recommend"
)

// =============================================================================
// Test Helpers
// =============================================================================

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// authedRequest builds a request whose context carries a verified user ID,
// the way the auth middleware would leave it.
func authedRequest(method, target, userID string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(auth.SetUserID(req.Context(), userID))
}

// passthrough stands in for the auth middleware in route registration tests.
func passthrough(next http.Handler) http.Handler {
	return next
}

type mockAnalysisService struct {
	result *domain.AnalysisResult
	err    error

	gotUserID  string
	gotText    string
	gotPersist bool

	mood      string
	playlists []recommend.Playlist
}

func (m *mockAnalysisService) Analyze(ctx context.Context, userID, text string, persist bool) (*domain.AnalysisResult, error) {
	m.gotUserID = userID
	m.gotText = text
	m.gotPersist = persist
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockAnalysisService) Recommendations(mood string) (string, []recommend.Playlist) {
	return m.mood, m.playlists
}

// =============================================================================
// Analyze Tests
// =============================================================================

func TestAnalyze_Success(t *testing.T) {
	svc := &mockAnalysisService{
		result: &domain.AnalysisResult{
			Label:     "joy",
			Score:     0.93,
			Intensity: 9,
			Advice:    "Ride the wave. Note what made today good.",
			MusicKeys: []string{"happy", "energetic"},
			Remaining: 4,
			Persisted: true,
		},
	}
	h := NewAnalyzeHandler(svc, newTestLogger())

	body := strings.NewReader(`{"text":"Today was wonderful","persist":true}`)
	req := authedRequest("POST", "/api/ai/analyze", "user-42", body)
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	if svc.gotUserID != "user-42" {
		t.Errorf("expected service called with user-42, got %q", svc.gotUserID)
	}
	if svc.gotText != "Today was wonderful" {
		t.Errorf("expected text passed through, got %q", svc.gotText)
	}
	if !svc.gotPersist {
		t.Error("expected persist flag passed through")
	}

	var resp analyzeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Label != "joy" {
		t.Errorf("expected label joy, got %q", resp.Label)
	}
	if resp.Intensity != 9 {
		t.Errorf("expected intensity 9, got %d", resp.Intensity)
	}
	if resp.Remaining != 4 {
		t.Errorf("expected remaining 4, got %d", resp.Remaining)
	}
	if !resp.Persisted {
		t.Error("expected persisted true")
	}
}

func TestAnalyze_NoUser_Returns401(t *testing.T) {
	h := NewAnalyzeHandler(&mockAnalysisService{}, newTestLogger())

	req := httptest.NewRequest("POST", "/api/ai/analyze", strings.NewReader(`{"text":"hi"}`))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestAnalyze_InvalidJSON_Returns400(t *testing.T) {
	h := NewAnalyzeHandler(&mockAnalysisService{}, newTestLogger())

	req := authedRequest("POST", "/api/ai/analyze", "user-1", strings.NewReader(`{"text": `))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "valid JSON") {
		t.Errorf("expected JSON parse message, got: %s", rec.Body.String())
	}
}

func TestAnalyze_QuotaExhausted_Returns402(t *testing.T) {
	svc := &mockAnalysisService{
		err: domain.QuotaExhausted("admission.admit", domain.PlanFree, 5, 2*time.Hour),
	}
	h := NewAnalyzeHandler(svc, newTestLogger())

	req := authedRequest("POST", "/api/ai/analyze", "user-1", strings.NewReader(`{"text":"hello"}`))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected status 402, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on quota denial")
	}
	if !strings.Contains(rec.Body.String(), "Upgrade to Premium") {
		t.Errorf("expected upgrade hint for free plan, got: %s", rec.Body.String())
	}
}

func TestAnalyze_RateLimited_Returns429(t *testing.T) {
	svc := &mockAnalysisService{
		err: domain.RateLimited("admission.admit", domain.PlanPremium, 60, 30*time.Second),
	}
	h := NewAnalyzeHandler(svc, newTestLogger())

	req := authedRequest("POST", "/api/ai/analyze", "user-1", strings.NewReader(`{"text":"hello"}`))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Errorf("expected Retry-After 30, got %q", got)
	}
}

func TestAnalyze_PersistWarningSurfaced(t *testing.T) {
	svc := &mockAnalysisService{
		result: &domain.AnalysisResult{
			Label:          "sadness",
			Score:          0.81,
			Intensity:      8,
			Remaining:      2,
			Persisted:      false,
			PersistWarning: "analysis succeeded but the mood entry could not be saved",
		},
	}
	h := NewAnalyzeHandler(svc, newTestLogger())

	req := authedRequest("POST", "/api/ai/analyze", "user-1", strings.NewReader(`{"text":"rough day","persist":true}`))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "persist_warning") {
		t.Errorf("expected persist_warning in response: %s", body)
	}
	if !strings.Contains(body, `"persisted":false`) {
		t.Errorf("expected persisted false: %s", body)
	}
}

func TestAnalyze_NoWarningKeyWhenPersistSucceeds(t *testing.T) {
	svc := &mockAnalysisService{
		result: &domain.AnalysisResult{Label: "neutral", Score: 0.5, Intensity: 5, Remaining: 1, Persisted: true},
	}
	h := NewAnalyzeHandler(svc, newTestLogger())

	req := authedRequest("POST", "/api/ai/analyze", "user-1", strings.NewReader(`{"text":"ok","persist":true}`))
	rec := httptest.NewRecorder()

	h.Analyze(rec, req)

	if strings.Contains(rec.Body.String(), "persist_warning") {
		t.Errorf("persist_warning should be omitted when empty: %s", rec.Body.String())
	}
}

// =============================================================================
// Recommendations Tests
// =============================================================================

func TestRecommendations_ReturnsPlaylists(t *testing.T) {
	svc := &mockAnalysisService{
		mood: "happy",
		playlists: []recommend.Playlist{
			{Key: "happy", Title: "Good Vibes", URL: "https://open.spotify.com/playlist/happy1"},
		},
	}
	h := NewAnalyzeHandler(svc, newTestLogger())

	req := authedRequest("GET", "/api/ai/recommendations?mood=joy", "user-1", nil)
	rec := httptest.NewRecorder()

	h.Recommendations(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp recommendationsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Mood != "happy" {
		t.Errorf("expected resolved mood happy, got %q", resp.Mood)
	}
	if len(resp.Playlists) != 1 || resp.Playlists[0].Title != "Good Vibes" {
		t.Errorf("unexpected playlists: %+v", resp.Playlists)
	}
}

func TestAnalyzeHandler_RegisterRoutes(t *testing.T) {
	svc := &mockAnalysisService{
		result: &domain.AnalysisResult{Label: "neutral", Score: 0.5, Intensity: 5},
	}
	h := NewAnalyzeHandler(svc, newTestLogger())

	mux := http.NewServeMux()
	h.RegisterRoutes(mux, passthrough)

	req := authedRequest("POST", "/api/ai/analyze", "user-1", strings.NewReader(`{"text":"hi"}`))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code == http.StatusNotFound {
		t.Error("POST /api/ai/analyze is not routed")
	}

	req = authedRequest("GET", "/api/ai/recommendations", "user-1", nil)
	rec = httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code == http.StatusNotFound {
		t.Error("GET /api/ai/recommendations is not routed")
	}
}
