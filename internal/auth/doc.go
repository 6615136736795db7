// Package auth issues and verifies the bearer tokens that guard the lot's
// administrative routes.
//
// Tokens are HS256 JWTs carrying a role. There are two roles:
//   - operator: may read the audit trail
//   - admin: may also create slots
//
// Reservation routes (register, check-in, check-out, status) are not
// guarded; visitors prove ownership with their licence plate and one-time code.
package auth
