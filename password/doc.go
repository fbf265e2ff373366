// Package password hashes and verifies user credentials with argon2id in
// PHC string format.
package password
