// Package auth provides authentication for the web API and for device
// provisioning.
//
// It implements a 2-tier role model (user → admin) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Signed JWT access tokens carrying role and company scope
//   - Per-source-address rate limiting on login over a rolling window
//   - A legacy single-password-file fallback for pre-migration installs
//
// Company scoping is enforced downstream: the token carries (role,
// company) and the cylinder store checks them explicitly per operation.
package auth
