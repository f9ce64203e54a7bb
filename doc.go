// Package identity authenticates principals, issues and validates stateless
// session tokens, runs the password reset lifecycle and gates requests by role.
//
// Session invalidation:
//   - Session tokens are never stored. A token is rejected as stale when the
//     principal's PasswordChangedAt is after the token's issued-at second, so
//     every password change (reset or update) logs out older sessions.
//
// Password reset:
//   - Only the SHA-256 digest of a reset secret is persisted. Consumption is a
//     conditional update keyed on that digest, so concurrent confirmations for
//     the same secret race in the store and exactly one wins.
//   - A failed delivery rolls the stored digest back before returning.
//
// Activity sinks:
//   - ActivitySink receives signup, login, reset and password change events.
//     Sinks run best-effort (errors are logged) so you can forward to a
//     database or queue without blocking authentication.
package identity
