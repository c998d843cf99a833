// Package jwt issues and parses HS256 access tokens.
//
// Tokens carry sub (user ID), email, jti (random UUID) and roles, plus iat and
// exp. Issuer and audience are set and enforced only when configured.
package jwt
