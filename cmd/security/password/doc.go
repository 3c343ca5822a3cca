// Package password hashes and verifies owner-account passwords with
// Argon2id, using the PHC encoded string format. Stored hashes are treated
// as untrusted input on verify: malformed strings and cost parameters
// beyond the configured bounds are rejected.
package password
