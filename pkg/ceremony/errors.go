package ceremony

import "errors"

var (
	// ErrInvalidCredentialType is returned when an authenticator hands back
	// a credential whose type is not "public-key". This is a contract
	// violation, not a retryable refusal.
	ErrInvalidCredentialType = errors.New("ceremony: credential type is not public-key")

	// ErrNoResponse is returned when an authenticator resolves a ceremony
	// without producing a response payload for its direction.
	ErrNoResponse = errors.New("ceremony: authenticator returned no response")
)

// CeremonyError is a platform refusal, shaped like the DOMException a
// browser would raise: user dismissal, timeout, or no eligible
// authenticator. Callers recover by returning to device selection instead
// of retrying the same ceremony.
type CeremonyError struct {
	Name    string
	Message string
}

func (e *CeremonyError) Error() string {
	return "ceremony: " + e.Name + ": " + e.Message
}

// NewCeremonyError builds a CeremonyError with a DOMException-style name
// such as "NotAllowedError" or "AbortError".
func NewCeremonyError(name, message string) *CeremonyError {
	return &CeremonyError{Name: name, Message: message}
}
