package gateway

import "crypto/subtle"

const bearerPrefix = "Bearer "

// Authorize reports whether an Authorization header value carries the shared token.
// The match is exact: no trimming and no case folding of the scheme.
// An empty configured token never authorizes.
func Authorize(header, token string) bool {
	if header == "" || token == "" {
		return false
	}
	expected := bearerPrefix + token
	return subtle.ConstantTimeCompare([]byte(header), []byte(expected)) == 1
}
