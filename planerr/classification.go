package planerr

// ErrorClass categorizes errors by their nature so callers can decide whether
// a retry, a configuration change, or a different service is the right
// response.
type ErrorClass string

const (
	// ErrorClassTransient indicates temporary failures that may resolve
	// on retry: network timeouts, connection resets, service overload.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassSemantic indicates input or configuration issues: bad
	// credentials, unsolvable problems, unsupported plan formats.
	ErrorClassSemantic ErrorClass = "semantic"

	// ErrorClassProtocol indicates the service and client disagree on the
	// response contract. Retrying will not help; the drift must be seen.
	ErrorClassProtocol ErrorClass = "protocol"

	// ErrorClassPermanent indicates non-recoverable failures.
	ErrorClassPermanent ErrorClass = "permanent"
)

// DefaultClassForCode returns the default error class for a given error code.
func DefaultClassForCode(code string) ErrorClass {
	switch code {
	case ErrCodeTransport, ErrCodeTimeout:
		return ErrorClassTransient
	case ErrCodeAuthFailed, ErrCodeInvalidToken, ErrCodeUnsupportedFormat:
		return ErrorClassSemantic
	case ErrCodeContractViolation, ErrCodeParseError:
		return ErrorClassProtocol
	case ErrCodeServiceFailed:
		return ErrorClassPermanent
	default:
		return ErrorClassPermanent
	}
}
