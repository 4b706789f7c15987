// Package recommend holds the static advice templates and playlist
// catalog used to turn a detected emotion into supportive guidance and
// music suggestions. Lookups are pure and never fail; unknown labels
// fall into a default bucket.
package recommend

import "strings"

// adviceTemplates maps canonical advice moods to guidance text.
var adviceTemplates = map[string]string{
	"joy":      "You're feeling great! Consider sharing this positive energy with others or engaging in activities you love.",
	"sadness":  "It's okay to feel sad sometimes. Try gentle activities like listening to music, taking a walk, or talking to someone you trust.",
	"anger":    "Take a moment to breathe deeply. Consider what's causing this feeling and whether there's a constructive way to address it.",
	"fear":     "Fear is natural. Break down what's worrying you into smaller, manageable steps. You're stronger than you think.",
	"surprise": "Unexpected moments can be opportunities for growth. Take time to process what happened and how you feel about it.",
	"disgust":  "Strong negative feelings can be signals. Consider what boundaries you might need to set or changes you want to make.",
	"anxious":  "Try the 4-7-8 breathing technique: breathe in for 4, hold for 7, exhale for 8. Grounding exercises can also help.",
	"stressed": "Take a 5-minute break. Try progressive muscle relaxation or a short walk. Remember that stress is temporary.",
	"calm":     "You're in a peaceful state. This is a great time for reflection, planning, or enjoying the present moment.",
	"excited":  "Channel this positive energy into something meaningful. Consider activities that align with your goals and values.",
	"tired":    "Rest is important for your wellbeing. Consider what your body and mind need - sleep, nutrition, or a mental break.",
	"content":  "Contentment is a beautiful state. Take a moment to appreciate what's going well in your life right now.",
}

// labelAliases collapses the classifier's wider label set onto the
// canonical advice moods above. Labels already in adviceTemplates pass
// through unchanged.
var labelAliases = map[string]string{
	"admiration":     "joy",
	"amusement":      "joy",
	"approval":       "content",
	"caring":         "joy",
	"curiosity":      "excited",
	"desire":         "excited",
	"disappointment": "sadness",
	"disapproval":    "anger",
	"embarrassment":  "anxious",
	"excitement":     "excited",
	"gratitude":      "content",
	"grief":          "sadness",
	"love":           "joy",
	"nervousness":    "anxious",
	"optimism":       "joy",
	"pride":          "content",
	"realization":    "surprise",
	"relief":         "calm",
	"remorse":        "sadness",
	"confusion":      "anxious",
}

// defaultAdvice covers labels with no template of their own.
const defaultAdvice = "Take a moment to acknowledge your feelings. Remember that all emotions are valid and temporary."

const adviceSuffix = " Remember, this is general wellness advice and not a substitute for professional mental health support."

// AdviceMood returns the canonical advice mood for a raw classifier
// label, case-insensitively. Labels outside the known set map to "".
func AdviceMood(label string) string {
	key := strings.ToLower(strings.TrimSpace(label))
	if alias, ok := labelAliases[key]; ok {
		key = alias
	}
	if _, ok := adviceTemplates[key]; ok {
		return key
	}
	return ""
}

// AdviceFor returns the guidance text for a raw classifier label with
// the wellness disclaimer appended. Unknown labels receive the default
// advice.
func AdviceFor(label string) string {
	advice := defaultAdvice
	if mood := AdviceMood(label); mood != "" {
		advice = adviceTemplates[mood]
	}
	return advice + adviceSuffix
}
