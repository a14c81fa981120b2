package executor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goauthentik/authentik-sub006/pkg/ceremony"
	"github.com/goauthentik/authentik-sub006/pkg/options"
	"github.com/goauthentik/authentik-sub006/pkg/webauthntypes"
)

func TestRegisterStage(t *testing.T) {
	var posts [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// user.id is base64 over a percent-escapable base64 string.
			_, _ = w.Write([]byte(`{
				"component": "ak-stage-authenticator-webauthn",
				"registration": {
					"publicKey": {
						"rp": {"id": "example.com", "name": "Example"},
						"user": {"id": "QVFJRA==", "name": "alice", "displayName": "Alice"},
						"challenge": "AQIDBAU",
						"pubKeyCredParams": [{"type": "public-key", "alg": -7}]
					}
				}
			}`))
			return
		}
		body, _ := io.ReadAll(r.Body)
		posts = append(posts, body)
		_, _ = w.Write([]byte(`{"component": "xak-flow-redirect", "to": "/done"}`))
	}))
	defer srv.Close()

	authn := &fakeAuthn{
		available: true,
		create: func() (*webauthntypes.PublicKeyCredential, error) {
			return &webauthntypes.PublicKeyCredential{
				ID:    "CgsMDQ",
				RawID: []byte{0x0a, 0x0b, 0x0c, 0x0d},
				Type:  webauthntypes.PublicKeyCredentialTypePublicKey,
				AttestationResponse: &webauthntypes.AuthenticatorAttestationResponse{
					ClientDataJSON:    []byte{0x28, 0x29, 0x2a, 0x2b},
					AttestationObject: []byte{0x32, 0x33, 0x34, 0x35},
				},
			}, nil
		},
	}
	surface := &scriptSurface{}
	e := New(testConfig(srv.URL), surface, options.WithAuthenticator(authn))

	require.NoError(t, e.Run(context.Background()))

	// The ceremony saw the decoded creation options, user handle included.
	require.Len(t, authn.gotCreation, 1)
	opts := authn.gotCreation[0]
	assert.Equal(t, "example.com", opts.RP.ID)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, opts.Challenge)
	assert.Equal(t, []byte{1, 2, 3}, opts.User.ID)
	require.Len(t, opts.PubKeyCredParams, 1)
	assert.EqualValues(t, -7, opts.PubKeyCredParams[0].Algorithm)

	require.Len(t, posts, 1)
	var posted struct {
		Response ceremony.RegistrationResult `json:"response"`
	}
	require.NoError(t, json.Unmarshal(posts[0], &posted))
	assert.Equal(t, "CgsMDQ", posted.Response.RawID)
	assert.Equal(t, "KCkqKw", posted.Response.Response.ClientDataJSON)
	assert.Equal(t, "MjM0NQ", posted.Response.Response.AttestationObject)
	assert.Equal(t, "{}", posted.Response.RegistrationClientExtensions)
}

func TestRegisterStageCeremonyRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"component": "ak-stage-authenticator-webauthn",
			"registration": {
				"publicKey": {
					"rp": {"id": "example.com", "name": "Example"},
					"user": {"id": "QVFJRA==", "name": "alice", "displayName": "Alice"},
					"challenge": "AQIDBAU",
					"pubKeyCredParams": [{"type": "public-key", "alg": -7}]
				}
			}
		}`))
	}))
	defer srv.Close()

	authn := &fakeAuthn{
		available: true,
		create: func() (*webauthntypes.PublicKeyCredential, error) {
			return nil, ceremony.NewCeremonyError("AbortError", "ceremony aborted")
		},
	}
	surface := &scriptSurface{}
	e := New(testConfig(srv.URL), surface, options.WithAuthenticator(authn))

	err := e.Run(context.Background())
	var cerr *ceremony.CeremonyError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "AbortError", cerr.Name)

	require.NotEmpty(t, surface.displayed)
	assert.Equal(t, []string{"Registration failed. Please try again."}, surface.displayed[len(surface.displayed)-1].Banner)
}
