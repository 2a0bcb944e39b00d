// Package common contains shared constants, error kinds and small helpers
// used across the useradmin components.
package common

// AuthorizationHeaderName is the HTTP header that carries the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the authorization scheme prefix expected before the token.
const BearerScheme = "Bearer"

// OpaqueTokenSize is the number of random bytes behind verification and
// password reset tokens (hex encoded, so the string is twice as long).
const OpaqueTokenSize = 32
