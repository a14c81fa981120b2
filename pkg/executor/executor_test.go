package executor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goauthentik/authentik-sub006/pkg/flowtypes"
)

type postedForm struct {
	action string
	attrs  map[string]string
}

// scriptSurface replays canned user input and records everything rendered.
type scriptSurface struct {
	inputs []url.Values

	presented   []*Screen
	displayed   []*Screen
	navigations []string
	posts       []postedForm
}

func (s *scriptSurface) Present(_ context.Context, screen *Screen) (url.Values, error) {
	s.presented = append(s.presented, screen)
	if len(s.inputs) == 0 {
		return url.Values{}, nil
	}
	next := s.inputs[0]
	s.inputs = s.inputs[1:]
	return next, nil
}

func (s *scriptSurface) Display(screen *Screen) {
	s.displayed = append(s.displayed, screen)
}

func (s *scriptSurface) Navigate(_ context.Context, to string) error {
	s.navigations = append(s.navigations, to)
	return nil
}

func (s *scriptSurface) PostForm(_ context.Context, action string, attrs map[string]string) error {
	s.posts = append(s.posts, postedForm{action: action, attrs: attrs})
	return nil
}

func testConfig(serverURL string) Config {
	return Config{
		URL:   serverURL,
		Flow:  "default-authentication-flow",
		Query: "next=%2Fapp",
		Brand: Brand{Logo: "/static/logo.png"},
	}
}

func TestRunIdentificationToRedirect(t *testing.T) {
	var posts [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/flows/executor/default-authentication-flow/", r.URL.Path)
		assert.Equal(t, "next=%2Fapp", r.URL.Query().Get("query"))

		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{
				"component": "ak-stage-identification",
				"flow_info": {"title": "Log in"},
				"password_fields": true,
				"primary_action": "Log in"
			}`))
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			posts = append(posts, body)
			_, _ = w.Write([]byte(`{"component": "xak-flow-redirect", "to": "https://example.com/done"}`))
		}
	}))
	defer srv.Close()

	surface := &scriptSurface{
		inputs: []url.Values{
			{"uid_field": {"alice"}, "password": {"secret"}},
		},
	}
	e := New(testConfig(srv.URL), surface)

	require.NoError(t, e.Run(context.Background()))

	// One POST, with exactly the submitted fields.
	require.Len(t, posts, 1)
	assert.JSONEq(t, `{"uid_field": "alice", "password": "secret"}`, string(posts[0]))

	// The rendered stage exposed both inputs.
	require.Len(t, surface.presented, 1)
	screen := surface.presented[0]
	assert.Equal(t, "Log in", screen.Title)
	assert.Equal(t, "Log in", screen.Submit)
	require.Len(t, screen.Fields, 2)
	assert.Equal(t, "uid_field", screen.Fields[0].Name)
	assert.Equal(t, "password", screen.Fields[1].Name)
	assert.True(t, screen.Fields[1].Secret)

	// Redirect ended the loop with a navigation and no further requests.
	assert.Equal(t, []string{"https://example.com/done"}, surface.navigations)
}

func TestRunUnsupportedStage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"component": "ak-stage-access-denied"}`))
	}))
	defer srv.Close()

	surface := &scriptSurface{}
	e := New(testConfig(srv.URL), surface)

	err := e.Run(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedStage)
	assert.ErrorContains(t, err, "ak-stage-access-denied")

	// The raw tag shows up on the surface for diagnosability.
	var banners []string
	for _, screen := range surface.displayed {
		banners = append(banners, screen.Banner...)
	}
	assert.Contains(t, banners, "Unsupported stage: ak-stage-access-denied")
}

func TestRunAutosubmit(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		_, _ = w.Write([]byte(`{
			"component": "ak-stage-autosubmit",
			"url": "https://idp.example.com/saml",
			"attrs": {"SAMLResponse": "dGVzdA=="}
		}`))
	}))
	defer srv.Close()

	surface := &scriptSurface{}
	e := New(testConfig(srv.URL), surface)

	require.NoError(t, e.Run(context.Background()))

	// The form posts to the external endpoint, not back to the executor.
	assert.Equal(t, 1, requests)
	require.Len(t, surface.posts, 1)
	assert.Equal(t, "https://idp.example.com/saml", surface.posts[0].action)
	assert.Equal(t, map[string]string{"SAMLResponse": "dGVzdA=="}, surface.posts[0].attrs)
}

func TestSubmitReplacesChallenge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"component": "ak-stage-identification", "primary_action": "Log in"}`))
			return
		}
		_, _ = w.Write([]byte(`{"component": "ak-stage-password", "pending_user": "alice"}`))
	}))
	defer srv.Close()

	e := New(testConfig(srv.URL), &scriptSurface{})

	first, err := e.Start(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, e.Current())

	second, err := e.Submit(context.Background(), map[string]any{"uid_field": "alice"})
	require.NoError(t, err)
	assert.Same(t, second, e.Current())
	assert.NotSame(t, first, e.Current())
	assert.Equal(t, flowtypes.ComponentPassword, e.Current().Component())
}

func TestSubmitFailureKeepsChallenge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"component": "ak-stage-identification", "primary_action": "Log in"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	e := New(testConfig(srv.URL), &scriptSurface{})

	first, err := e.Start(context.Background())
	require.NoError(t, err)

	_, err = e.Submit(context.Background(), map[string]any{"uid_field": "alice"})
	require.Error(t, err)
	assert.Same(t, first, e.Current())
}

func TestFlatten(t *testing.T) {
	flat, err := flatten(url.Values{
		"uid_field": {"alice"},
		"code":      {"111111", "222222"},
		"empty":     {},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"uid_field": "alice", "code": "222222"}, flat)

	passthrough := map[string]any{"webauthn": map[string]any{"id": "x"}}
	flat, err = flatten(passthrough)
	require.NoError(t, err)
	assert.Equal(t, passthrough, flat)

	_, err = flatten(42)
	assert.Error(t, err)
}

func TestPasswordStageScreen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{
				"component": "ak-stage-password",
				"flow_info": {"title": "Log in"},
				"pending_user": "alice",
				"response_errors": {
					"password": [{"string": "Invalid password", "code": "invalid"}],
					"non_field_errors": [{"string": "Try again", "code": "invalid"}]
				}
			}`))
			return
		}
		_, _ = w.Write([]byte(`{"component": "xak-flow-redirect", "to": "/done"}`))
	}))
	defer srv.Close()

	surface := &scriptSurface{inputs: []url.Values{{"password": {"hunter2"}}}}
	e := New(testConfig(srv.URL), surface)

	require.NoError(t, e.Run(context.Background()))

	require.Len(t, surface.presented, 1)
	screen := surface.presented[0]
	assert.Equal(t, "Welcome, alice.", screen.Intro)
	assert.Equal(t, []string{"Try again"}, screen.Banner)
	require.Len(t, screen.Fields, 1)
	assert.Equal(t, []string{"Invalid password"}, screen.Fields[0].Errors)
}

func TestRegisterStageWithoutAuthenticator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"component": "ak-stage-authenticator-webauthn", "registration": {"publicKey": {}}}`))
	}))
	defer srv.Close()

	e := New(testConfig(srv.URL), &scriptSurface{})

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "NotSupportedError")
}

func TestSubmitBodyIsJSON(t *testing.T) {
	var contentType string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			contentType = r.Header.Get("Content-Type")
			body, _ = io.ReadAll(r.Body)
		}
		_, _ = w.Write([]byte(`{"component": "ak-stage-password", "pending_user": "alice"}`))
	}))
	defer srv.Close()

	e := New(testConfig(srv.URL), &scriptSurface{})
	_, err := e.Submit(context.Background(), map[string]any{"code": "123456"})
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, map[string]any{"code": "123456"}, decoded)
}
