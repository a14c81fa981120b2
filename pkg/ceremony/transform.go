package ceremony

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/goauthentik/authentik-sub006/pkg/b64"
	"github.com/goauthentik/authentik-sub006/pkg/webauthntypes"
	"github.com/samber/lo"
)

// Wire shapes of the ceremony options as the server serializes them: every
// binary member is a base64 string.
type (
	wireDescriptor struct {
		Type       string   `json:"type"`
		ID         string   `json:"id"`
		Transports []string `json:"transports,omitempty"`
	}

	wireCredParam struct {
		Type string `json:"type"`
		Alg  int64  `json:"alg"`
	}

	wireRpEntity struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	wireUserEntity struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	}

	wireAuthenticatorSelection struct {
		AuthenticatorAttachment string `json:"authenticatorAttachment,omitempty"`
		ResidentKey             string `json:"residentKey,omitempty"`
		RequireResidentKey      bool   `json:"requireResidentKey,omitempty"`
		UserVerification        string `json:"userVerification,omitempty"`
	}

	wireCreationOptions struct {
		RP                     wireRpEntity                `json:"rp"`
		User                   wireUserEntity              `json:"user"`
		Challenge              string                      `json:"challenge"`
		PubKeyCredParams       []wireCredParam             `json:"pubKeyCredParams"`
		Timeout                int64                       `json:"timeout,omitempty"`
		ExcludeCredentials     []wireDescriptor            `json:"excludeCredentials,omitempty"`
		AuthenticatorSelection *wireAuthenticatorSelection `json:"authenticatorSelection,omitempty"`
		Attestation            string                      `json:"attestation,omitempty"`
	}

	wireRequestOptions struct {
		Challenge        string           `json:"challenge"`
		RPID             string           `json:"rpId"`
		Timeout          int64            `json:"timeout,omitempty"`
		AllowCredentials []wireDescriptor `json:"allowCredentials,omitempty"`
		UserVerification string           `json:"userVerification,omitempty"`
	}
)

// RegistrationResult is the JSON-safe form of a registration ceremony
// result, as the flow executor POSTs it.
type RegistrationResult struct {
	ID                           string                   `json:"id"`
	RawID                        string                   `json:"rawId"`
	Type                         string                   `json:"type"`
	RegistrationClientExtensions string                   `json:"registrationClientExtensions"`
	Response                     RegistrationResponseData `json:"response"`
}

type RegistrationResponseData struct {
	ClientDataJSON    string `json:"clientDataJSON"`
	AttestationObject string `json:"attestationObject"`
}

// AssertionResult is the JSON-safe form of an authentication ceremony
// result.
type AssertionResult struct {
	ID                        string                `json:"id"`
	RawID                     string                `json:"rawId"`
	Type                      string                `json:"type"`
	AssertionClientExtensions string                `json:"assertionClientExtensions"`
	Response                  AssertionResponseData `json:"response"`
}

type AssertionResponseData struct {
	ClientDataJSON    string  `json:"clientDataJSON"`
	AuthenticatorData string  `json:"authenticatorData"`
	Signature         string  `json:"signature"`
	UserHandle        *string `json:"userHandle"`
}

func decodeDescriptors(ww []wireDescriptor) ([]webauthntypes.PublicKeyCredentialDescriptor, error) {
	descriptors := make([]webauthntypes.PublicKeyCredentialDescriptor, 0, len(ww))
	for _, w := range ww {
		id, err := b64.Decode(w.ID)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, webauthntypes.PublicKeyCredentialDescriptor{
			Type: webauthntypes.PublicKeyCredentialType(w.Type),
			ID:   id,
			Transports: lo.Map(w.Transports, func(t string, _ int) webauthntypes.AuthenticatorTransport {
				return webauthntypes.AuthenticatorTransport(t)
			}),
		})
	}

	return descriptors, nil
}

// ParseRequestOptions decodes server-issued authentication ceremony options
// into their raw-byte form: the challenge and every allowed credential ID.
func ParseRequestOptions(data []byte) (*webauthntypes.PublicKeyCredentialRequestOptions, error) {
	var w wireRequestOptions
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("ceremony: parse request options: %w", err)
	}

	challenge, err := b64.Decode(w.Challenge)
	if err != nil {
		return nil, err
	}

	allowed, err := decodeDescriptors(w.AllowCredentials)
	if err != nil {
		return nil, err
	}

	return &webauthntypes.PublicKeyCredentialRequestOptions{
		Challenge:        challenge,
		RPID:             w.RPID,
		Timeout:          w.Timeout,
		AllowCredentials: allowed,
		UserVerification: webauthntypes.UserVerificationRequirement(w.UserVerification),
	}, nil
}

// ParseCreationOptions decodes server-issued registration ceremony options.
// The server delivers the user ID base64-encoded twice (an opaque string
// that itself holds base64, percent-escaped); both layers are removed here
// so server and client agree bit-for-bit on the user handle.
func ParseCreationOptions(data []byte) (*webauthntypes.PublicKeyCredentialCreationOptions, error) {
	var w wireCreationOptions
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("ceremony: parse creation options: %w", err)
	}

	challenge, err := b64.Decode(w.Challenge)
	if err != nil {
		return nil, err
	}

	outer, err := b64.Decode(w.User.ID)
	if err != nil {
		return nil, err
	}
	unescaped, err := url.PathUnescape(string(outer))
	if err != nil {
		return nil, fmt.Errorf("ceremony: unescape user handle: %w", err)
	}
	handle, err := b64.Decode(unescaped)
	if err != nil {
		return nil, err
	}

	exclude, err := decodeDescriptors(w.ExcludeCredentials)
	if err != nil {
		return nil, err
	}

	opts := &webauthntypes.PublicKeyCredentialCreationOptions{
		RP: webauthntypes.PublicKeyCredentialRpEntity{
			ID:   w.RP.ID,
			Name: w.RP.Name,
		},
		User: webauthntypes.PublicKeyCredentialUserEntity{
			ID:          handle,
			Name:        w.User.Name,
			DisplayName: w.User.DisplayName,
		},
		Challenge: challenge,
		PubKeyCredParams: lo.Map(w.PubKeyCredParams, func(p wireCredParam, _ int) webauthntypes.PublicKeyCredentialParameters {
			return webauthntypes.PublicKeyCredentialParameters{
				Type:      webauthntypes.PublicKeyCredentialType(p.Type),
				Algorithm: p.Alg,
			}
		}),
		Timeout:            w.Timeout,
		ExcludeCredentials: exclude,
		Attestation:        webauthntypes.AttestationConveyancePreference(w.Attestation),
	}
	if w.AuthenticatorSelection != nil {
		opts.AuthenticatorSelection = &webauthntypes.AuthenticatorSelectionCriteria{
			AuthenticatorAttachment: w.AuthenticatorSelection.AuthenticatorAttachment,
			ResidentKey:             w.AuthenticatorSelection.ResidentKey,
			RequireResidentKey:      w.AuthenticatorSelection.RequireResidentKey,
			UserVerification:        webauthntypes.UserVerificationRequirement(w.AuthenticatorSelection.UserVerification),
		}
	}

	return opts, nil
}

func marshalExtensions(results map[string]any) (string, error) {
	if results == nil {
		results = map[string]any{}
	}
	ext, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("ceremony: marshal client extension results: %w", err)
	}

	// The wire format treats extension results as an opaque string.
	return string(ext), nil
}

// EncodeRegistration re-encodes a registration ceremony result for JSON
// transport. The per-field encoding variants are fixed: the verifier stores
// identifiers and registration payloads without padding.
func EncodeRegistration(cred *webauthntypes.PublicKeyCredential) (*RegistrationResult, error) {
	if cred.Type != webauthntypes.PublicKeyCredentialTypePublicKey {
		return nil, ErrInvalidCredentialType
	}
	if cred.AttestationResponse == nil {
		return nil, ErrNoResponse
	}

	ext, err := marshalExtensions(cred.ClientExtensionResults)
	if err != nil {
		return nil, err
	}

	return &RegistrationResult{
		ID:                           cred.ID,
		RawID:                        b64.EncodeUnpadded(cred.RawID),
		Type:                         string(cred.Type),
		RegistrationClientExtensions: ext,
		Response: RegistrationResponseData{
			ClientDataJSON:    b64.EncodeUnpadded(cred.AttestationResponse.ClientDataJSON),
			AttestationObject: b64.EncodeUnpadded(cred.AttestationResponse.AttestationObject),
		},
	}, nil
}

// EncodeAssertion re-encodes an authentication ceremony result for JSON
// transport. Identifiers stay unpadded; the cryptographic material is
// padded, which is what the server-side assertion verifier consumes. The
// user handle is never forwarded.
func EncodeAssertion(cred *webauthntypes.PublicKeyCredential) (*AssertionResult, error) {
	if cred.Type != webauthntypes.PublicKeyCredentialTypePublicKey {
		return nil, ErrInvalidCredentialType
	}
	if cred.AssertionResponse == nil {
		return nil, ErrNoResponse
	}

	ext, err := marshalExtensions(cred.ClientExtensionResults)
	if err != nil {
		return nil, err
	}

	return &AssertionResult{
		ID:                        cred.ID,
		RawID:                     b64.EncodeUnpadded(cred.RawID),
		Type:                      string(cred.Type),
		AssertionClientExtensions: ext,
		Response: AssertionResponseData{
			ClientDataJSON:    b64.Encode(cred.AssertionResponse.ClientDataJSON),
			AuthenticatorData: b64.Encode(cred.AssertionResponse.AuthenticatorData),
			Signature:         b64.Encode(cred.AssertionResponse.Signature),
			UserHandle:        nil,
		},
	}, nil
}
