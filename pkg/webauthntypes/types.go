// Package webauthntypes holds the W3C WebAuthn shapes exchanged with a
// platform authenticator. Binary members are raw bytes here; the base64
// transport encoding is applied and removed by the ceremony package.
package webauthntypes

type (
	// PublicKeyCredentialType defines the valid credential types.
	// https://www.w3.org/TR/webauthn-3/#enumdef-publickeycredentialtype
	PublicKeyCredentialType string
	// AuthenticatorTransport defines hints as to how clients might communicate
	// with a particular authenticator in order to obtain an assertion for a specific credential.
	// https://www.w3.org/TR/webauthn-3/#enumdef-authenticatortransport
	AuthenticatorTransport string
	// UserVerificationRequirement describes how strongly a relying party
	// wants user verification during a ceremony.
	// https://www.w3.org/TR/webauthn-3/#enumdef-userverificationrequirement
	UserVerificationRequirement string
	// AttestationConveyancePreference expresses the relying party's interest
	// in receiving an attestation statement.
	// https://www.w3.org/TR/webauthn-3/#enumdef-attestationconveyancepreference
	AttestationConveyancePreference string
)

const (
	PublicKeyCredentialTypePublicKey PublicKeyCredentialType = "public-key"
)

const (
	AuthenticatorTransportUSB       AuthenticatorTransport = "usb"
	AuthenticatorTransportNFC       AuthenticatorTransport = "nfc"
	AuthenticatorTransportBLE       AuthenticatorTransport = "ble"
	AuthenticatorTransportSmartCard AuthenticatorTransport = "smart-card"
	AuthenticatorTransportHybrid    AuthenticatorTransport = "hybrid"
	AuthenticatorTransportInternal  AuthenticatorTransport = "internal"
)

const (
	UserVerificationRequired    UserVerificationRequirement = "required"
	UserVerificationPreferred   UserVerificationRequirement = "preferred"
	UserVerificationDiscouraged UserVerificationRequirement = "discouraged"
)

const (
	AttestationConveyanceNone     AttestationConveyancePreference = "none"
	AttestationConveyanceIndirect AttestationConveyancePreference = "indirect"
	AttestationConveyanceDirect   AttestationConveyancePreference = "direct"
)

// PublicKeyCredentialRpEntity is used to supply additional Relying Party attributes when creating a new credential.
// https://www.w3.org/TR/webauthn-3/#dictdef-publickeycredentialrpentity
type PublicKeyCredentialRpEntity struct {
	ID   string
	Name string
}

// PublicKeyCredentialUserEntity is used to supply additional user account attributes when creating a new credential.
// https://www.w3.org/TR/webauthn-3/#dictdef-publickeycredentialuserentity
type PublicKeyCredentialUserEntity struct {
	ID          []byte
	Name        string
	DisplayName string
}

// PublicKeyCredentialDescriptor identifies a specific public key credential.
// https://www.w3.org/TR/webauthn-3/#dictdef-publickeycredentialdescriptor
type PublicKeyCredentialDescriptor struct {
	Type       PublicKeyCredentialType
	ID         []byte
	Transports []AuthenticatorTransport
}

// PublicKeyCredentialParameters is used to supply additional parameters when creating a new credential.
// https://www.w3.org/TR/webauthn-3/#dictdef-publickeycredentialparameters
type PublicKeyCredentialParameters struct {
	Type      PublicKeyCredentialType
	Algorithm int64
}

// AuthenticatorSelectionCriteria lets a relying party restrict the
// authenticators eligible for a registration ceremony.
// https://www.w3.org/TR/webauthn-3/#dictdef-authenticatorselectioncriteria
type AuthenticatorSelectionCriteria struct {
	AuthenticatorAttachment string
	ResidentKey             string
	RequireResidentKey      bool
	UserVerification        UserVerificationRequirement
}

// PublicKeyCredentialCreationOptions parameterizes credentials.create().
// https://www.w3.org/TR/webauthn-3/#dictdef-publickeycredentialcreationoptions
type PublicKeyCredentialCreationOptions struct {
	RP                     PublicKeyCredentialRpEntity
	User                   PublicKeyCredentialUserEntity
	Challenge              []byte
	PubKeyCredParams       []PublicKeyCredentialParameters
	Timeout                int64
	ExcludeCredentials     []PublicKeyCredentialDescriptor
	AuthenticatorSelection *AuthenticatorSelectionCriteria
	Attestation            AttestationConveyancePreference
}

// PublicKeyCredentialRequestOptions parameterizes credentials.get().
// https://www.w3.org/TR/webauthn-3/#dictdef-publickeycredentialrequestoptions
type PublicKeyCredentialRequestOptions struct {
	Challenge        []byte
	RPID             string
	Timeout          int64
	AllowCredentials []PublicKeyCredentialDescriptor
	UserVerification UserVerificationRequirement
}

// AuthenticatorAttestationResponse is the authenticator's answer to a
// registration ceremony.
// https://www.w3.org/TR/webauthn-3/#authenticatorattestationresponse
type AuthenticatorAttestationResponse struct {
	ClientDataJSON    []byte
	AttestationObject []byte
	Transports        []AuthenticatorTransport
}

// AuthenticatorAssertionResponse is the authenticator's answer to an
// authentication ceremony. UserHandle may be nil.
// https://www.w3.org/TR/webauthn-3/#authenticatorassertionresponse
type AuthenticatorAssertionResponse struct {
	ClientDataJSON    []byte
	AuthenticatorData []byte
	Signature         []byte
	UserHandle        []byte
}

// PublicKeyCredential is the result of a ceremony. Exactly one of
// AttestationResponse and AssertionResponse is set, depending on direction.
// https://www.w3.org/TR/webauthn-3/#publickeycredential
type PublicKeyCredential struct {
	ID                     string
	RawID                  []byte
	Type                   PublicKeyCredentialType
	AttestationResponse    *AuthenticatorAttestationResponse
	AssertionResponse      *AuthenticatorAssertionResponse
	ClientExtensionResults map[string]any
}
