// Package ceremony sits between the flow executor and a platform WebAuthn
// authenticator. It decodes server-issued ceremony options into the raw-byte
// shapes an authenticator consumes, and encodes ceremony results back into
// the JSON-safe structures the server verifies. The ceremony itself is
// delegated to an Authenticator implementation.
package ceremony

import (
	"context"

	"github.com/goauthentik/authentik-sub006/pkg/webauthntypes"
)

// Authenticator abstracts credentials.create()/credentials.get(). The
// zero-value capability probe is Available; a nil Authenticator means the
// host has no WebAuthn support at all.
type Authenticator interface {
	// Available reports whether the authenticator can run ceremonies right
	// now. Checked once per stage render to filter device pickers.
	Available() bool

	// Create runs a registration ceremony. A refusal (user cancel, timeout,
	// no eligible authenticator) is returned as *CeremonyError.
	Create(ctx context.Context, options *webauthntypes.PublicKeyCredentialCreationOptions) (*webauthntypes.PublicKeyCredential, error)

	// Get runs an authentication ceremony against one of the allowed
	// credentials. Refusals are returned as *CeremonyError.
	Get(ctx context.Context, options *webauthntypes.PublicKeyCredentialRequestOptions) (*webauthntypes.PublicKeyCredential, error)
}
