// Package jwtclaims reads the claim set of a bearer token without verifying
// its signature.
package jwtclaims

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quickpim/internal/domain"
)

var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode returns the payload claims of a three-segment token. It reports false
// when the token does not have exactly three segments or the payload is not
// base64url-encoded JSON object.
func Decode(token string) (jwt.MapClaims, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, false
	}
	raw, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}
	var claims jwt.MapClaims
	if err := json.Unmarshal(raw, &claims); err != nil || claims == nil {
		return nil, false
	}
	return claims, true
}

// ExtractPrincipalID returns the object id (oid claim) of the caller.
func ExtractPrincipalID(token string) (string, bool) {
	claims, ok := Decode(token)
	if !ok {
		return "", false
	}
	oid := stringClaim(claims, "oid")
	return oid, oid != ""
}

// UserInfo maps the identity claims onto domain.Identity. Claims that are
// absent come back empty.
func UserInfo(token string) (*domain.Identity, bool) {
	claims, ok := Decode(token)
	if !ok {
		return nil, false
	}
	username := stringClaim(claims, "upn")
	if username == "" {
		username = stringClaim(claims, "email")
	}
	return &domain.Identity{
		PrincipalID:       stringClaim(claims, "oid"),
		DisplayName:       stringClaim(claims, "name"),
		Username:          username,
		PreferredUsername: stringClaim(claims, "preferred_username"),
	}, true
}

// ExpiresAt returns the exp claim for display. It is never used to accept or
// reject a token.
func ExpiresAt(token string) (time.Time, bool) {
	claims, ok := Decode(token)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func stringClaim(claims jwt.MapClaims, name string) string {
	v, _ := claims[name].(string)
	return v
}
