// Package token issues and verifies the signed bearer tokens that carry
// session and authorization claims.
//
// Verification is pure computation: it touches no store and can run fully
// in parallel across requests. Early revocation of unexpired tokens is
// handled by the Blacklist, which the authentication pipeline consults
// alongside the stateful session check.
package token
