package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/moodmate/moodgate/internal/classifier"
	"github.com/moodmate/moodgate/internal/domain"
	"github.com/moodmate/moodgate/internal/metrics"
	"github.com/moodmate/moodgate/internal/moodlog"
	"github.com/moodmate/moodgate/internal/recommend"
)

// maxAnalysisTextLen bounds the text accepted for a single analysis.
const maxAnalysisTextLen = 1000

// =============================================================================
// Interface Definition
// =============================================================================

// AnalysisService runs the mood analysis pipeline: admission, the classifier
// call, and the advice and playlist lookups.
type AnalysisService interface {
	// Analyze admits the request, scores the text, and assembles the result.
	// The quota unit is spent once admission grants; a classifier failure
	// after that point does not hand it back.
	Analyze(ctx context.Context, userID, text string, persist bool) (*domain.AnalysisResult, error)

	// Recommendations resolves a mood name to its playlists. It does not
	// touch admission or quota.
	Recommendations(mood string) (string, []recommend.Playlist)
}

// =============================================================================
// Implementation
// =============================================================================

type analysisService struct {
	admission      AdmissionService
	classifier     classifier.Classifier
	recorder       moodlog.Recorder
	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(admission AdmissionService, clf classifier.Classifier, recorder moodlog.Recorder, requestTimeout time.Duration, logger *slog.Logger) AnalysisService {
	return &analysisService{
		admission:      admission,
		classifier:     clf,
		recorder:       recorder,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

func (s *analysisService) Analyze(ctx context.Context, userID, text string, persist bool) (*domain.AnalysisResult, error) {
	const op = "analysis.analyze"

	// Validation runs before admission so malformed requests never consume
	// quota or a rate-limit slot.
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, domain.Invalid(op, "text is required")
	}
	if len(trimmed) > maxAnalysisTextLen {
		return nil, domain.Invalid(op, "text must be at most 1000 characters")
	}

	admission, err := s.admission.Admit(ctx, userID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	verdict, err := s.classifier.Classify(callCtx, trimmed)
	if err != nil {
		metrics.ClassifierCallsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Classifier call failed",
			"user_id", userID,
			"error", err)
		return nil, domain.Unavailable(err, op, "mood analysis is temporarily unavailable")
	}
	metrics.ClassifierCallsTotal.WithLabelValues("success").Inc()

	label := strings.ToLower(strings.TrimSpace(verdict.Label))
	result := &domain.AnalysisResult{
		Label:     label,
		Score:     verdict.Score,
		Intensity: domain.IntensityFromScore(verdict.Score),
		Advice:    recommend.AdviceFor(label),
		MusicKeys: recommend.KeysFor(label),
		Remaining: admission.Remaining,
	}

	if persist {
		if _, err := s.recorder.Record(ctx, userID, label, verdict.Score, trimmed); err != nil {
			metrics.MoodLogsPersistedTotal.WithLabelValues("error").Inc()
			s.logger.Warn("Mood entry persist failed; returning analysis anyway",
				"user_id", userID,
				"error", err)
			result.PersistWarning = "analysis succeeded but the mood entry could not be saved"
		} else {
			metrics.MoodLogsPersistedTotal.WithLabelValues("success").Inc()
			result.Persisted = true
		}
	}

	s.logger.Debug("Analysis completed",
		"user_id", userID,
		"label", label,
		"intensity", result.Intensity,
		"remaining", result.Remaining)

	return result, nil
}

func (s *analysisService) Recommendations(mood string) (string, []recommend.Playlist) {
	return recommend.MusicMood(mood), recommend.PlaylistsFor(mood)
}
