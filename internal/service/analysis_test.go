package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodmate/moodgate/internal/billing"
	"github.com/moodmate/moodgate/internal/classifier"
	"github.com/moodmate/moodgate/internal/classifier/mock"
	"github.com/moodmate/moodgate/internal/clock"
	"github.com/moodmate/moodgate/internal/domain"
	"github.com/moodmate/moodgate/internal/moodlog"
	"github.com/moodmate/moodgate/internal/ratelimit"
	"github.com/moodmate/moodgate/internal/store"
)

type analysisEnv struct {
	svc        AnalysisService
	classifier *mock.Provider
	subs       SubscriptionService
	mem        *store.Memory
	clock      *clock.Fake
}

func newAnalysisEnv(t *testing.T) *analysisEnv {
	t.Helper()
	mem := store.NewMemory()
	fake := clock.NewFake(testNow)
	logger := testLogger()
	catalog := testCatalog()

	subs := NewSubscriptionService(mem, mem, billing.NewMock("whsec_test"), catalog, "https://moodmate.example", fake, logger)
	entitlements := NewEntitlementService(subs, catalog, fake)
	limiter := ratelimit.New(time.Minute, fake, logger)
	ledger := NewQuotaLedger(mem, testCalendar(), fake, logger)
	admission := NewAdmissionService(entitlements, limiter, ledger, logger)

	clf := mock.New(logger)
	recorder := moodlog.New(mem, fake, logger)
	svc := NewAnalysisService(admission, clf, recorder, time.Second, logger)

	return &analysisEnv{svc: svc, classifier: clf, subs: subs, mem: mem, clock: fake}
}

func (e *analysisEnv) consumed(t *testing.T, userID string) int {
	t.Helper()
	key := domain.CounterKey{UserID: userID, DayKey: testDayKey}
	consumed, err := e.mem.QuotaConsumed(context.Background(), key)
	require.NoError(t, err)
	return consumed
}

func TestAnalysisService_Analyze(t *testing.T) {
	env := newAnalysisEnv(t)

	// Mock verdict is joy at 0.92.
	result, err := env.svc.Analyze(context.Background(), "u1", "  I aced the interview today!  ", false)
	require.NoError(t, err)

	assert.Equal(t, "joy", result.Label)
	assert.Equal(t, 0.92, result.Score)
	assert.Equal(t, 9, result.Intensity)
	assert.Contains(t, result.Advice, "not a substitute for professional mental health support")
	assert.Equal(t, []string{"feel-good-hits", "happy-pop"}, result.MusicKeys)
	assert.Equal(t, 4, result.Remaining)
	assert.False(t, result.Persisted)
	assert.Empty(t, result.PersistWarning)

	// The classifier saw the trimmed text.
	assert.Equal(t, "I aced the interview today!", env.classifier.LastText)
}

func TestAnalysisService_RejectsBadInputBeforeAdmission(t *testing.T) {
	env := newAnalysisEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t  "},
		{"too long", strings.Repeat("a", 1001)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Analyze(ctx, "u1", tt.text, false)
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}

	// Rejected input never reached the classifier or the ledger.
	assert.Zero(t, env.classifier.ClassifyCalls)
	assert.Zero(t, env.consumed(t, "u1"))
}

func TestAnalysisService_AcceptsMaxLengthText(t *testing.T) {
	env := newAnalysisEnv(t)

	_, err := env.svc.Analyze(context.Background(), "u1", strings.Repeat("a", 1000), false)
	require.NoError(t, err)
}

func TestAnalysisService_LowercasesProviderLabel(t *testing.T) {
	env := newAnalysisEnv(t)
	env.classifier.ClassifyResponse = &classifier.Classification{Label: " SADNESS ", Score: 0.51}

	result, err := env.svc.Analyze(context.Background(), "u1", "rough day", false)
	require.NoError(t, err)

	assert.Equal(t, "sadness", result.Label)
	assert.Equal(t, 5, result.Intensity)
	assert.Equal(t, []string{"sad-songs", "melancholy-indie"}, result.MusicKeys)
}

// A classifier failure surfaces as unavailable and the consumed unit
// stays consumed. Quota pays for the attempt, not the outcome.
func TestAnalysisService_ClassifierFailureSpendsQuota(t *testing.T) {
	env := newAnalysisEnv(t)
	ctx := context.Background()

	env.classifier.ClassifyError = classifier.EUnavailable
	_, err := env.svc.Analyze(ctx, "u1", "hello", false)
	require.Error(t, err)
	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))
	assert.Equal(t, 1, env.consumed(t, "u1"))

	// Recovery: the remaining allowance reflects the spent unit.
	env.classifier.ClassifyError = nil
	result, err := env.svc.Analyze(ctx, "u1", "hello again", false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Remaining)
}

func TestAnalysisService_QuotaDenialSkipsClassifier(t *testing.T) {
	env := newAnalysisEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := env.svc.Analyze(ctx, "u1", "entry", false)
		require.NoError(t, err)
	}

	_, err := env.svc.Analyze(ctx, "u1", "one more", false)
	require.Error(t, err)

	var denial *domain.Denial
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, domain.EPAYMENT, denial.Code)
	assert.Equal(t, domain.PlanFree, denial.Plan)

	assert.Equal(t, 5, env.classifier.ClassifyCalls)
}

func TestAnalysisService_PersistStoresEntry(t *testing.T) {
	env := newAnalysisEnv(t)
	ctx := context.Background()

	result, err := env.svc.Analyze(ctx, "u1", "what a great morning", true)
	require.NoError(t, err)
	assert.True(t, result.Persisted)
	assert.Empty(t, result.PersistWarning)

	entries, err := env.mem.RecentMoodEntries(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "joy", entries[0].Label)
	assert.Equal(t, 0.92, entries[0].Score)
	assert.Equal(t, 9, entries[0].Intensity)
	assert.Equal(t, "what a great morning", entries[0].Note)
}

type failingMoodStore struct {
	store.MoodLogStore
}

func (f *failingMoodStore) InsertMoodEntry(ctx context.Context, entry *domain.MoodEntry) error {
	return errors.New("disk full")
}

// A persist failure degrades to a warning; the analysis and the spent
// quota unit both stand.
func TestAnalysisService_PersistFailureIsSoft(t *testing.T) {
	mem := store.NewMemory()
	fake := clock.NewFake(testNow)
	logger := testLogger()
	catalog := testCatalog()

	subs := NewSubscriptionService(mem, mem, billing.NewMock("whsec_test"), catalog, "https://moodmate.example", fake, logger)
	entitlements := NewEntitlementService(subs, catalog, fake)
	limiter := ratelimit.New(time.Minute, fake, logger)
	ledger := NewQuotaLedger(mem, testCalendar(), fake, logger)
	admission := NewAdmissionService(entitlements, limiter, ledger, logger)
	recorder := moodlog.New(&failingMoodStore{MoodLogStore: mem}, fake, logger)
	svc := NewAnalysisService(admission, mock.New(logger), recorder, time.Second, logger)

	result, err := svc.Analyze(context.Background(), "u1", "noting this down", true)
	require.NoError(t, err)
	assert.False(t, result.Persisted)
	assert.NotEmpty(t, result.PersistWarning)
	assert.Equal(t, "joy", result.Label)
}

func TestAnalysisService_Recommendations(t *testing.T) {
	env := newAnalysisEnv(t)

	tests := []struct {
		name     string
		input    string
		wantMood string
		wantKeys []string
	}{
		{"direct mood", "sad", "sad", []string{"sad-songs", "melancholy-indie"}},
		{"classifier label", "JOY", "happy", []string{"feel-good-hits", "happy-pop"}},
		{"unknown falls back", "zzz", "calm", []string{"peaceful-piano", "nature-sounds"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mood, playlists := env.svc.Recommendations(tt.input)
			assert.Equal(t, tt.wantMood, mood)
			keys := make([]string, len(playlists))
			for i, p := range playlists {
				keys[i] = p.Key
			}
			assert.Equal(t, tt.wantKeys, keys)
		})
	}
}
