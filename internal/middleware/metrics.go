package middleware

import (
	"crypto/subtle"
	"net/http"
)

// metricsRealm is advertised in the WWW-Authenticate challenge.
const metricsRealm = `Basic realm="metrics"`

// MetricsAuthMiddleware guards the Prometheus scrape endpoint with HTTP
// basic auth. If both username and password are empty, authentication
// is disabled and requests pass through.
type MetricsAuthMiddleware struct {
	username []byte
	password []byte
	enabled  bool
}

// NewMetricsAuthMiddleware creates a new metrics auth middleware.
func NewMetricsAuthMiddleware(username, password string) *MetricsAuthMiddleware {
	return &MetricsAuthMiddleware{
		username: []byte(username),
		password: []byte(password),
		enabled:  username != "" || password != "",
	}
}

// Handler returns middleware that requires basic authentication.
func (m *MetricsAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If auth is disabled, pass through
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			m.unauthorized(w)
			return
		}

		// Both comparisons always run so the response time does not
		// reveal which credential mismatched.
		userMatch := subtle.ConstantTimeCompare([]byte(user), m.username)
		passMatch := subtle.ConstantTimeCompare([]byte(pass), m.password)

		if userMatch&passMatch != 1 {
			m.unauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// unauthorized sends a 401 response with WWW-Authenticate header.
func (m *MetricsAuthMiddleware) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", metricsRealm)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
