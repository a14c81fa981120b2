// Package softtoken is an in-memory WebAuthn authenticator holding
// resident ES256 credentials. It implements ceremony.Authenticator without
// any hardware or I/O, which makes it suitable for tests, demos and flow
// development against a server that registered its credentials.
package softtoken

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/goauthentik/authentik-sub006/pkg/b64"
	"github.com/goauthentik/authentik-sub006/pkg/ceremony"
	"github.com/goauthentik/authentik-sub006/pkg/options"
	"github.com/goauthentik/authentik-sub006/pkg/webauthntypes"
)

const es256 = -7

// Credential is one resident key held by the token.
type Credential struct {
	ID         []byte
	RPID       string
	UserHandle []byte
	Key        *ecdsa.PrivateKey
	SignCount  uint32
}

type Token struct {
	origin  string
	aaguid  uuid.UUID
	logger  *slog.Logger
	encMode cbor.EncMode
	creds   []*Credential
}

// New returns an empty token bound to one web origin. The origin is embedded
// in every clientDataJSON the token produces.
func New(origin string, opts ...options.Option) *Token {
	oo := options.NewOptions(opts...)
	encMode, _ := cbor.CTAP2EncOptions().EncMode()

	return &Token{
		origin:  origin,
		aaguid:  uuid.New(),
		logger:  oo.Logger,
		encMode: encMode,
	}
}

var _ ceremony.Authenticator = (*Token)(nil)

// AddCredential mints a resident credential for a relying party and user
// handle, as if a registration ceremony had stored it earlier.
func (t *Token) AddCredential(rpID string, userHandle []byte) (*Credential, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("softtoken: generate key: %w", err)
	}

	id := make([]byte, 32)
	if _, err := rand.Read(id); err != nil {
		return nil, fmt.Errorf("softtoken: generate credential id: %w", err)
	}

	cred := &Credential{
		ID:         id,
		RPID:       rpID,
		UserHandle: userHandle,
		Key:        priv,
	}
	t.creds = append(t.creds, cred)

	return cred, nil
}

func (t *Token) Available() bool {
	return true
}

func (t *Token) clientDataJSON(ceremonyType string, challenge []byte) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":        ceremonyType,
		"challenge":   b64.EncodeUnpadded(challenge),
		"origin":      t.origin,
		"crossOrigin": false,
	})
}

// Create runs a registration ceremony and returns a "none"-format
// attestation.
func (t *Token) Create(ctx context.Context, opts *webauthntypes.PublicKeyCredentialCreationOptions) (*webauthntypes.PublicKeyCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, ceremony.NewCeremonyError("AbortError", err.Error())
	}

	supported := lo.ContainsBy(opts.PubKeyCredParams, func(p webauthntypes.PublicKeyCredentialParameters) bool {
		return p.Type == webauthntypes.PublicKeyCredentialTypePublicKey && p.Algorithm == es256
	})
	if !supported {
		return nil, ceremony.NewCeremonyError("NotSupportedError", "no supported algorithm in pubKeyCredParams")
	}

	for _, excluded := range opts.ExcludeCredentials {
		if t.lookup(opts.RP.ID, excluded.ID) != nil {
			return nil, ceremony.NewCeremonyError("InvalidStateError", "credential already registered")
		}
	}

	cred, err := t.AddCredential(opts.RP.ID, opts.User.ID)
	if err != nil {
		return nil, err
	}

	clientData, err := t.clientDataJSON("webauthn.create", opts.Challenge)
	if err != nil {
		return nil, err
	}

	attested, err := buildAttestedCredentialData(t.encMode, t.aaguid, cred.ID, &cred.Key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("softtoken: encode attested credential data: %w", err)
	}
	authData := buildAuthData(opts.RP.ID, flagUserPresent|flagUserVerified|flagAttestedCredentialData, cred.SignCount, attested)

	attObj, err := t.encMode.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": authData,
	})
	if err != nil {
		return nil, fmt.Errorf("softtoken: encode attestation object: %w", err)
	}

	t.logger.Debug("softtoken: created credential", "rpId", opts.RP.ID, "credentialId", b64.EncodeUnpadded(cred.ID))

	return &webauthntypes.PublicKeyCredential{
		ID:    b64.EncodeUnpadded(cred.ID),
		RawID: cred.ID,
		Type:  webauthntypes.PublicKeyCredentialTypePublicKey,
		AttestationResponse: &webauthntypes.AuthenticatorAttestationResponse{
			ClientDataJSON:    clientData,
			AttestationObject: attObj,
			Transports:        []webauthntypes.AuthenticatorTransport{webauthntypes.AuthenticatorTransportInternal},
		},
		ClientExtensionResults: map[string]any{},
	}, nil
}

// Get runs an authentication ceremony against one of the allowed
// credentials, or any resident credential for the relying party when the
// allow list is empty.
func (t *Token) Get(ctx context.Context, opts *webauthntypes.PublicKeyCredentialRequestOptions) (*webauthntypes.PublicKeyCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, ceremony.NewCeremonyError("AbortError", err.Error())
	}

	var cred *Credential
	if len(opts.AllowCredentials) == 0 {
		for _, c := range t.creds {
			if c.RPID == opts.RPID {
				cred = c
				break
			}
		}
	} else {
		for _, allowed := range opts.AllowCredentials {
			if c := t.lookup(opts.RPID, allowed.ID); c != nil {
				cred = c
				break
			}
		}
	}
	if cred == nil {
		return nil, ceremony.NewCeremonyError("NotAllowedError", "no eligible credential for "+opts.RPID)
	}

	clientData, err := t.clientDataJSON("webauthn.get", opts.Challenge)
	if err != nil {
		return nil, err
	}

	cred.SignCount++
	authData := buildAuthData(cred.RPID, flagUserPresent|flagUserVerified, cred.SignCount, nil)

	clientDataHash := sha256.Sum256(clientData)
	digest := sha256.Sum256(append(authData, clientDataHash[:]...))
	sig, err := ecdsa.SignASN1(rand.Reader, cred.Key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("softtoken: sign assertion: %w", err)
	}

	return &webauthntypes.PublicKeyCredential{
		ID:    b64.EncodeUnpadded(cred.ID),
		RawID: cred.ID,
		Type:  webauthntypes.PublicKeyCredentialTypePublicKey,
		AssertionResponse: &webauthntypes.AuthenticatorAssertionResponse{
			ClientDataJSON:    clientData,
			AuthenticatorData: authData,
			Signature:         sig,
			UserHandle:        cred.UserHandle,
		},
		ClientExtensionResults: map[string]any{},
	}, nil
}

func (t *Token) lookup(rpID string, id []byte) *Credential {
	for _, c := range t.creds {
		if c.RPID == rpID && string(c.ID) == string(id) {
			return c
		}
	}

	return nil
}
