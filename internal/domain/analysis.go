// Package domain contains core business types and interfaces.
//
// This file defines the mood analysis result returned to clients after
// an admitted, classified request.
package domain

// AnalysisResult is the outcome of one admitted mood analysis.
type AnalysisResult struct {
	Label     string   // Normalized emotion label (lowercase)
	Score     float64  // Classifier confidence in [0, 1]
	Intensity int      // Score mapped onto a 1..10 scale
	Advice    string   // Supportive guidance for the detected mood
	MusicKeys []string // Ordered playlist keys for the detected mood
	Remaining int      // Quota remaining after this analysis
	Persisted bool     // Whether a mood record was written
	// PersistWarning carries a client-facing message when persistence was
	// requested but failed. The analysis itself is unaffected; the quota
	// unit stays spent.
	PersistWarning string
}

// IntensityFromScore maps a classifier confidence onto the product's
// 1..10 intensity scale.
func IntensityFromScore(score float64) int {
	n := int(score * 10)
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
