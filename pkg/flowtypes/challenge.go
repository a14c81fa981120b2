// Package flowtypes models the discriminated challenge union the flow
// executor API returns on every request. The server is the sole authority on
// flow topology; a challenge only describes the next step and the data needed
// to render it.
package flowtypes

import (
	"encoding/json"
	"fmt"
)

// Component tags the server is known to emit. The set is open-ended: tags
// outside it parse into UnsupportedChallenge instead of failing.
const (
	ComponentIdentification        = "ak-stage-identification"
	ComponentPassword              = "ak-stage-password"
	ComponentRedirect              = "xak-flow-redirect"
	ComponentAutosubmit            = "ak-stage-autosubmit"
	ComponentAuthenticatorValidate = "ak-stage-authenticator-validate"
	ComponentWebAuthnRegister      = "ak-stage-authenticator-webauthn"
)

// NonFieldErrorsKey is the sentinel field name the server uses for errors
// that do not belong to a single input.
const NonFieldErrorsKey = "non_field_errors"

// DeviceClass identifies the kind of device behind a DeviceChallenge.
// Open set; unknown classes are skipped by the device picker.
type DeviceClass string

const (
	DeviceClassStatic   DeviceClass = "static"
	DeviceClassTOTP     DeviceClass = "totp"
	DeviceClassWebAuthn DeviceClass = "webauthn"
)

// ErrorDetail is a single human-readable validation message.
type ErrorDetail struct {
	String string `json:"string"`
	Code   string `json:"code"`
}

// ContextualFlowInfo carries flow-level metadata shared by all challenges of
// one flow execution.
type ContextualFlowInfo struct {
	Title      string `json:"title"`
	Background string `json:"background,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
	Layout     string `json:"layout,omitempty"`
}

// Challenge is one server-issued authentication step. Exactly one challenge
// is current at any time; a newly parsed challenge supersedes the previous
// one unconditionally.
type Challenge interface {
	Component() string
	Info() *ContextualFlowInfo
	// FieldErrors returns the validation errors for one field. Absence of an
	// entry means "no errors for that field"; the result is never nil-unsafe.
	FieldErrors(name string) []ErrorDetail
	NonFieldErrors() []ErrorDetail
}

// ChallengeBase holds the fields common to every challenge variant.
type ChallengeBase struct {
	ComponentTag   string                   `json:"component"`
	FlowInfo       *ContextualFlowInfo      `json:"flow_info,omitempty"`
	ResponseErrors map[string][]ErrorDetail `json:"response_errors,omitempty"`
}

func (c *ChallengeBase) Component() string {
	return c.ComponentTag
}

func (c *ChallengeBase) Info() *ContextualFlowInfo {
	return c.FlowInfo
}

func (c *ChallengeBase) FieldErrors(name string) []ErrorDetail {
	if c.ResponseErrors == nil {
		return nil
	}
	return c.ResponseErrors[name]
}

func (c *ChallengeBase) NonFieldErrors() []ErrorDetail {
	return c.FieldErrors(NonFieldErrorsKey)
}

// IdentificationChallenge asks for a user identifier, optionally together
// with a password.
type IdentificationChallenge struct {
	ChallengeBase

	UserFields     []string `json:"user_fields,omitempty"`
	PasswordFields bool     `json:"password_fields"`
	ApplicationPre string   `json:"application_pre,omitempty"`
	PrimaryAction  string   `json:"primary_action"`
}

// PasswordChallenge asks for the password of an already identified user.
type PasswordChallenge struct {
	ChallengeBase

	PendingUser       string `json:"pending_user"`
	PendingUserAvatar string `json:"pending_user_avatar,omitempty"`
}

// RedirectChallenge ends the client-side loop by navigating away.
type RedirectChallenge struct {
	ChallengeBase

	To string `json:"to"`
}

// AutosubmitChallenge carries a form the client posts to an external URL
// without user interaction.
type AutosubmitChallenge struct {
	ChallengeBase

	URL   string            `json:"url"`
	Attrs map[string]string `json:"attrs"`
}

// DeviceChallenge is one selectable verification option within an
// AuthenticatorValidateChallenge. The payload is opaque at this layer; for
// webauthn devices it holds ceremony request options.
type DeviceChallenge struct {
	DeviceClass DeviceClass     `json:"device_class"`
	DeviceUID   string          `json:"device_uid"`
	Challenge   json.RawMessage `json:"challenge,omitempty"`
}

// AuthenticatorValidateChallenge asks the user to prove possession of one of
// several registered devices. DeviceChallenges is immutable once received;
// selecting an entry never mutates the list.
type AuthenticatorValidateChallenge struct {
	ChallengeBase

	DeviceChallenges []DeviceChallenge `json:"device_challenges"`
}

// WebAuthnRegisterChallenge asks the client to run a WebAuthn registration
// ceremony. The nested creation options are kept as sent by the server, with
// binary members still base64-encoded.
type WebAuthnRegisterChallenge struct {
	ChallengeBase

	Registration struct {
		PublicKey json.RawMessage `json:"publicKey"`
	} `json:"registration"`
}

// UnsupportedChallenge stands in for any component tag this client does not
// know. It keeps the flow from crashing on server-side version skew; the
// raw tag is preserved for diagnostics.
type UnsupportedChallenge struct {
	ChallengeBase
}

// Parse deserializes one response body into its challenge variant, keyed on
// the component tag. Unknown tags yield an UnsupportedChallenge; only
// malformed JSON is an error.
func Parse(data []byte) (Challenge, error) {
	var base ChallengeBase
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("flowtypes: parse challenge: %w", err)
	}

	var ch Challenge
	switch base.ComponentTag {
	case ComponentIdentification:
		ch = &IdentificationChallenge{}
	case ComponentPassword:
		ch = &PasswordChallenge{}
	case ComponentRedirect:
		ch = &RedirectChallenge{}
	case ComponentAutosubmit:
		ch = &AutosubmitChallenge{}
	case ComponentAuthenticatorValidate:
		ch = &AuthenticatorValidateChallenge{}
	case ComponentWebAuthnRegister:
		ch = &WebAuthnRegisterChallenge{}
	default:
		return &UnsupportedChallenge{ChallengeBase: base}, nil
	}

	if err := json.Unmarshal(data, ch); err != nil {
		return nil, fmt.Errorf("flowtypes: parse %s challenge: %w", base.ComponentTag, err)
	}

	return ch, nil
}
