// Package common contains shared constants and sentinel errors used across
// alarmlock components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// UnitsPerNative is the number of base units in one native unit of value.
// All balances and amounts travel as base units.
const UnitsPerNative = 1_000_000_000

// LoginMessagePrefix is prepended to a challenge nonce to form the message
// an owner signs at login.
const LoginMessagePrefix = "alarmlock-login:"
