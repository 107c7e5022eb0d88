// Package auth implements credential verification for the API.
//
// The primary verifier validates HS256-signed JWTs issued by the login
// flow. Deployments that delegate credential issuance to an identity
// provider can swap in the OIDC verifier; both satisfy the Verifier
// interface consumed by the auth middleware.
//
// Verification is a pure check: it has no side effects and touches no
// store. The three failure classes are distinct so the middleware can
// report them precisely:
//
//   - ErrMissingAuthHeader: no usable "Bearer ..." header, detected
//     before any verification is attempted
//   - ErrInvalidToken: bad signature or expired token
//   - ErrInvalidTokenPayload: verified, but the subject claim is empty
//
// The package also carries the password facility (bcrypt hash-and-compare)
// used by the signup/login handlers.
package auth
