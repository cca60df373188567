// Package client talks to the alarmlock custody service over gRPC.
//
// GRPCClient signs in with an owner's ed25519 key (challenge, signature,
// access token), injects the token into every call through an interceptor,
// and signs in again transparently when the token has expired.
//
// Custody failures come back as the registered common errors, so callers
// can match them with errors.Is (common.ErrVaultStillLocked and so on).
// Transport conditions map to ErrUnavailable and ErrUnauthorized.
//
// InitDatabase opens the local receipt journal kept next to the keystore.
package client
