package recommend

import "strings"

// Playlist is one curated music suggestion. Key is the stable
// identifier clients use; Title and URL are display data.
type Playlist struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DefaultMood receives lookups for moods with no playlists of their own.
const DefaultMood = "calm"

// moodPlaylists maps mood keys to ordered playlist suggestions.
var moodPlaylists = map[string][]Playlist{
	"happy": {
		{Key: "feel-good-hits", Title: "Feel Good Hits", URL: "https://open.spotify.com/playlist/37i9dQZF1DX3rxVfibe1L0"},
		{Key: "happy-pop", Title: "Happy Pop", URL: "https://open.spotify.com/playlist/37i9dQZF1DXdPec7aLTmlC"},
	},
	"sad": {
		{Key: "sad-songs", Title: "Sad Songs", URL: "https://open.spotify.com/playlist/37i9dQZF1DX7qK8ma5wgG1"},
		{Key: "melancholy-indie", Title: "Melancholy Indie", URL: "https://open.spotify.com/playlist/37i9dQZF1DWX83CujKHHOn"},
	},
	"anxious": {
		{Key: "calm-and-peaceful", Title: "Calm & Peaceful", URL: "https://open.spotify.com/playlist/37i9dQZF1DWU0ScTcjJBdj"},
		{Key: "focus-flow", Title: "Focus Flow", URL: "https://open.spotify.com/playlist/37i9dQZF1DWZeKCadgRdKQ"},
	},
	"stressed": {
		{Key: "stress-relief", Title: "Stress Relief", URL: "https://open.spotify.com/playlist/37i9dQZF1DX4sWSpwq3LiO"},
		{Key: "ambient-relaxation", Title: "Ambient Relaxation", URL: "https://open.spotify.com/playlist/37i9dQZF1DX0SM0LYsmbMT"},
	},
	"calm": {
		{Key: "peaceful-piano", Title: "Peaceful Piano", URL: "https://open.spotify.com/playlist/37i9dQZF1DX4sWSpwq3LiO"},
		{Key: "nature-sounds", Title: "Nature Sounds", URL: "https://open.spotify.com/playlist/37i9dQZF1DWU0ScTcjJBdj"},
	},
	"excited": {
		{Key: "energy-boost", Title: "Energy Boost", URL: "https://open.spotify.com/playlist/37i9dQZF1DX76Wlfdnj7AP"},
		{Key: "upbeat-pop", Title: "Upbeat Pop", URL: "https://open.spotify.com/playlist/37i9dQZF1DXdPec7aLTmlC"},
	},
	"angry": {
		{Key: "anger-management", Title: "Anger Management", URL: "https://open.spotify.com/playlist/37i9dQZF1DX4sWSpwq3LiO"},
		{Key: "calming-classical", Title: "Calming Classical", URL: "https://open.spotify.com/playlist/37i9dQZF1DWU0ScTcjJBdj"},
	},
	"energetic": {
		{Key: "workout-hits", Title: "Workout Hits", URL: "https://open.spotify.com/playlist/37i9dQZF1DX76Wlfdnj7AP"},
		{Key: "high-energy", Title: "High Energy", URL: "https://open.spotify.com/playlist/37i9dQZF1DXdxcBWuJkbcy"},
	},
	"tired": {
		{Key: "gentle-acoustic", Title: "Gentle Acoustic", URL: "https://open.spotify.com/playlist/37i9dQZF1DX0XUsuxWHRQd"},
		{Key: "soft-rock", Title: "Soft Rock", URL: "https://open.spotify.com/playlist/37i9dQZF1DWXRqgorJj26U"},
	},
	"content": {
		{Key: "chill-vibes", Title: "Chill Vibes", URL: "https://open.spotify.com/playlist/37i9dQZF1DX0XUsuxWHRQd"},
		{Key: "sunday-morning", Title: "Sunday Morning", URL: "https://open.spotify.com/playlist/37i9dQZF1DWU0ScTcjJBdj"},
	},
}

// emotionToMood bridges classifier labels to playlist moods where the
// names differ.
var emotionToMood = map[string]string{
	"joy":      "happy",
	"sadness":  "sad",
	"fear":     "anxious",
	"anger":    "angry",
	"surprise": "excited",
	"disgust":  "angry",
}

// MusicMood resolves a raw label or mood to the playlist mood that will
// serve it, case-insensitively. Unknown inputs resolve to DefaultMood.
func MusicMood(label string) string {
	key := strings.ToLower(strings.TrimSpace(label))
	if mood, ok := emotionToMood[key]; ok {
		key = mood
	}
	if _, ok := moodPlaylists[key]; ok {
		return key
	}
	return DefaultMood
}

// PlaylistsFor returns the ordered playlists for a raw label or mood.
// The returned slice is a copy; callers may not mutate the catalog.
func PlaylistsFor(label string) []Playlist {
	src := moodPlaylists[MusicMood(label)]
	out := make([]Playlist, len(src))
	copy(out, src)
	return out
}

// KeysFor returns the ordered playlist keys for a raw label or mood.
func KeysFor(label string) []string {
	src := moodPlaylists[MusicMood(label)]
	keys := make([]string, len(src))
	for i, p := range src {
		keys[i] = p.Key
	}
	return keys
}
