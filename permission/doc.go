// Package permission resolves role memberships into effective authority
// sets and derives required permissions from HTTP verb and resource path.
//
// The role -> permission graph is read-mostly and resolved in one pass as a
// pure set union, never walked lazily per field.
package permission
