// Package executor drives a server-defined authentication flow: it fetches
// challenges from the flow executor API, dispatches each one to a stage for
// rendering, and posts the collected response back until the server ends
// the flow. The client never knows the flow graph in advance; it is a
// mechanical executor of server instructions.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/goauthentik/authentik-sub006/pkg/ceremony"
	"github.com/goauthentik/authentik-sub006/pkg/flowtypes"
	"github.com/goauthentik/authentik-sub006/pkg/options"
)

var (
	// ErrUnsupportedStage marks a component tag this client has no stage
	// for. The flow cannot continue; retrying will not help, the raw tag is
	// included for diagnosing version skew.
	ErrUnsupportedStage = errors.New("executor: unsupported stage")

	// ErrNoCompatibleDevice is returned when a device-validation challenge
	// offers no device class this host can answer.
	ErrNoCompatibleDevice = errors.New("executor: no compatible authentication method available")
)

// Brand is the display configuration resolved once per flow run.
type Brand struct {
	Logo string
}

// Config locates the flow executor API. It is passed explicitly at
// construction; the executor reads no ambient globals.
type Config struct {
	// URL is the base API URL, e.g. "https://auth.example.com/api/v3".
	URL string
	// Flow is the flow slug.
	Flow string
	// Query is the original query string to forward to the server,
	// without leading "?".
	Query string
	Brand Brand
}

// Stage renders one challenge and collects the response to submit.
type Stage interface {
	// Run blocks until the stage outcome is known. It returns the payload
	// for the next POST, or nil when the stage is terminal.
	Run(ctx context.Context) (any, error)
}

// StageFactory builds the stage for one received challenge. Factories are
// registered per component tag; each dispatch constructs a fresh instance,
// so stages never retain state across challenges.
type StageFactory func(e *Executor, ch flowtypes.Challenge) Stage

// Executor owns the single current-challenge slot and the render surface.
// One request is outstanding at a time; all methods are driven from a
// single goroutine.
type Executor struct {
	cfg     Config
	surface Surface
	hc      *http.Client
	logger  *slog.Logger
	authn   ceremony.Authenticator

	current flowtypes.Challenge
	stages  map[string]StageFactory
}

func New(cfg Config, surface Surface, opts ...options.Option) *Executor {
	oo := options.NewOptions(opts...)

	e := &Executor{
		cfg:     cfg,
		surface: surface,
		hc:      oo.HTTPClient,
		logger:  oo.Logger,
		authn:   oo.Authenticator,
	}
	e.stages = map[string]StageFactory{
		flowtypes.ComponentIdentification: func(e *Executor, ch flowtypes.Challenge) Stage {
			return &identificationStage{e: e, ch: ch.(*flowtypes.IdentificationChallenge)}
		},
		flowtypes.ComponentPassword: func(e *Executor, ch flowtypes.Challenge) Stage {
			return &passwordStage{e: e, ch: ch.(*flowtypes.PasswordChallenge)}
		},
		flowtypes.ComponentRedirect: func(e *Executor, ch flowtypes.Challenge) Stage {
			return &redirectStage{e: e, ch: ch.(*flowtypes.RedirectChallenge)}
		},
		flowtypes.ComponentAutosubmit: func(e *Executor, ch flowtypes.Challenge) Stage {
			return &autosubmitStage{e: e, ch: ch.(*flowtypes.AutosubmitChallenge)}
		},
		flowtypes.ComponentAuthenticatorValidate: func(e *Executor, ch flowtypes.Challenge) Stage {
			return &validateStage{e: e, ch: ch.(*flowtypes.AuthenticatorValidateChallenge)}
		},
		flowtypes.ComponentWebAuthnRegister: func(e *Executor, ch flowtypes.Challenge) Stage {
			return &registerStage{e: e, ch: ch.(*flowtypes.WebAuthnRegisterChallenge)}
		},
	}

	return e
}

// RegisterStage binds a component tag to a stage factory, replacing any
// existing binding. New stage kinds plug in here without touching the run
// loop.
func (e *Executor) RegisterStage(component string, factory StageFactory) {
	e.stages[component] = factory
}

// Current returns the challenge currently owned by the executor, nil before
// Start.
func (e *Executor) Current() flowtypes.Challenge {
	return e.current
}

func (e *Executor) apiURL() string {
	return strings.TrimSuffix(e.cfg.URL, "/") +
		"/flows/executor/" + e.cfg.Flow + "/?query=" + url.QueryEscape(e.cfg.Query)
}

// Start issues the initial GET and installs the first challenge.
func (e *Executor) Start(ctx context.Context) (flowtypes.Challenge, error) {
	e.surface.Display(&Screen{Logo: e.cfg.Brand.Logo, Busy: true})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("executor: build request: %w", err)
	}

	return e.exchange(req)
}

// Submit flattens the given data into a flat field map, POSTs it, and
// installs the returned challenge. FormLike values collapse to their last
// entry per field, matching browser form submission.
func (e *Executor) Submit(ctx context.Context, data any) (flowtypes.Challenge, error) {
	payload, err := flatten(data)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("executor: marshal submission: %w", err)
	}

	// Submit controls stay visually disabled for the round-trip.
	e.surface.Display(&Screen{Logo: e.cfg.Brand.Logo, Busy: true})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("executor: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return e.exchange(req)
}

// exchange performs one request/response cycle. The current-challenge slot
// only advances on success; any failure leaves the last rendered stage in
// place.
func (e *Executor) exchange(req *http.Request) (flowtypes.Challenge, error) {
	res, err := e.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executor: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("executor: %s %s: unexpected status %s", req.Method, req.URL.Path, res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("executor: read response: %w", err)
	}

	ch, err := flowtypes.Parse(body)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("executor: received challenge", "component", ch.Component())
	e.current = ch

	return ch, nil
}

// Run drives the flow to termination: fetch, dispatch, submit, repeat. It
// returns nil when a terminal stage (redirect, autosubmit) ends the flow.
func (e *Executor) Run(ctx context.Context) error {
	ch, err := e.Start(ctx)
	if err != nil {
		return err
	}

	for {
		factory, ok := e.stages[ch.Component()]
		if !ok {
			factory = func(e *Executor, ch flowtypes.Challenge) Stage {
				return &unsupportedStage{e: e, ch: ch}
			}
		}

		payload, err := factory(e, ch).Run(ctx)
		if err != nil {
			return err
		}
		if payload == nil {
			return nil
		}

		ch, err = e.Submit(ctx, payload)
		if err != nil {
			return err
		}
	}
}

func flatten(data any) (map[string]any, error) {
	switch v := data.(type) {
	case map[string]any:
		return v, nil
	case url.Values:
		flat := make(map[string]any, len(v))
		for name, entries := range v {
			if len(entries) == 0 {
				continue
			}
			flat[name] = entries[len(entries)-1]
		}
		return flat, nil
	default:
		return nil, fmt.Errorf("executor: cannot submit %T", data)
	}
}

func (e *Executor) title(ch flowtypes.Challenge) string {
	if info := ch.Info(); info != nil {
		return info.Title
	}
	return ""
}

func (e *Executor) webAuthnSupported() bool {
	return e.authn != nil && e.authn.Available()
}

func errorStrings(details []flowtypes.ErrorDetail) []string {
	strs := make([]string, 0, len(details))
	for _, d := range details {
		strs = append(strs, d.String)
	}
	return strs
}
