// Package identity resolves API bearer tokens to user ids.
// Tokens are static service credentials loaded at startup; user-facing
// authentication lives in the upstream product, not here.
package identity

import (
	"crypto/subtle"
	"strings"
)

// Verifier resolves a bearer token to the user it acts for.
type Verifier interface {
	Verify(token string) (userID string, ok bool)
}

type credential struct {
	token  []byte
	userID string
}

// StaticVerifier checks tokens against an in-memory credential set.
type StaticVerifier struct {
	creds []credential
}

// NewStatic builds a verifier from "token:user_id" pairs. Pairs with a
// missing side, and repeats of an already-bound token, are dropped.
func NewStatic(pairs []string) *StaticVerifier {
	seen := make(map[string]bool)
	creds := make([]credential, 0, len(pairs))
	for _, pair := range pairs {
		token, userID, ok := strings.Cut(strings.TrimSpace(pair), ":")
		token = strings.TrimSpace(token)
		userID = strings.TrimSpace(userID)
		if !ok || token == "" || userID == "" || seen[token] {
			continue
		}
		seen[token] = true
		creds = append(creds, credential{token: []byte(token), userID: userID})
	}
	return &StaticVerifier{creds: creds}
}

// Tokens returns how many credentials are loaded.
func (v *StaticVerifier) Tokens() int {
	return len(v.creds)
}

// Verify checks the token against every stored credential and
// accumulates the result, so rejection timing does not reveal how close
// a guess came.
func (v *StaticVerifier) Verify(token string) (string, bool) {
	presented := []byte(strings.TrimSpace(token))
	if len(presented) == 0 {
		return "", false
	}

	found := 0
	userID := ""
	for _, cred := range v.creds {
		match := 0
		// subtle.ConstantTimeCompare requires equal lengths; gate on a
		// constant-time length check.
		if subtle.ConstantTimeEq(int32(len(presented)), int32(len(cred.token))) == 1 {
			match = subtle.ConstantTimeCompare(presented, cred.token)
		}
		if match == 1 {
			userID = cred.userID
		}
		found |= match
	}

	return userID, found == 1
}
