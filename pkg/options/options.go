package options

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/goauthentik/authentik-sub006/pkg/ceremony"
)

type Options struct {
	Logger        *slog.Logger
	HTTPClient    *http.Client
	Authenticator ceremony.Authenticator
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}

// WithAuthenticator injects the platform WebAuthn implementation. Without
// one, webauthn device challenges are filtered from pickers.
func WithAuthenticator(authn ceremony.Authenticator) Option {
	return func(opts *Options) {
		opts.Authenticator = authn
	}
}

func NewOptions(opts ...Option) *Options {
	oo := &Options{
		Logger: slog.Default(),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(oo)
	}

	return oo
}
