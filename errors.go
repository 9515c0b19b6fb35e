package sdk

import (
	"errors"

	"github.com/pddlkit/sdk/planerr"
)

// Sentinel errors for common SDK error conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrNoServiceConfigured indicates the client was built without any
	// planning service endpoint.
	ErrNoServiceConfigured = errors.New("no planning service configured")

	// ErrInvalidConfig indicates the provided configuration is invalid or
	// incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsAuthenticationError reports whether err stems from rejected credentials,
// either a failed authentication or an invalid token.
func IsAuthenticationError(err error) bool {
	return planerr.HasCode(err, planerr.ErrCodeAuthFailed) ||
		planerr.HasCode(err, planerr.ErrCodeInvalidToken)
}

// IsContractViolation reports whether err was raised because a service
// response matched none of the recognized shapes.
func IsContractViolation(err error) bool {
	return planerr.HasCode(err, planerr.ErrCodeContractViolation)
}
