package passbook

// auth.go implements the authentication token check.
//
// Every pass has its own random token. Devices present it in an "Authorization: ApplePass <token>" header;
// browsers downloading a pass present it as a request value.

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthorizationScheme is the scheme Wallet sends in the Authorization header
const AuthorizationScheme = "ApplePass"

// Authorize checks the presented token against the pass's token.
// An empty presented token never matches.
func Authorize(pass *Pass, presented string) error {
	if pass == nil || presented == "" || pass.AuthenticationToken == "" {
		return NewUnauthorizedError("authentication token missing")
	}
	if subtle.ConstantTimeCompare([]byte(pass.AuthenticationToken), []byte(presented)) != 1 {
		return NewUnauthorizedError("authentication token does not match")
	}
	return nil
}

// ParseAuthorizationHeader extracts the token from an "ApplePass <token>" header value.
// The header must have exactly two space separated parts. The scheme word is not checked.
func ParseAuthorizationHeader(header string) (string, error) {
	if header == "" {
		return "", NewUnauthorizedError("authorization header missing")
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", NewUnauthorizedError("malformed authorization header")
	}
	return parts[1], nil
}

// AuthorizeRequest checks the Authorization header of a device request against the pass
func AuthorizeRequest(pass *Pass, r *http.Request) error {
	token, err := ParseAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return err
	}
	return Authorize(pass, token)
}
