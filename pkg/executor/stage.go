package executor

import (
	"context"
	"fmt"

	"github.com/goauthentik/authentik-sub006/pkg/ceremony"
	"github.com/goauthentik/authentik-sub006/pkg/flowtypes"
)

type identificationStage struct {
	e  *Executor
	ch *flowtypes.IdentificationChallenge
}

func (s *identificationStage) Run(ctx context.Context) (any, error) {
	screen := &Screen{
		Title:  s.e.title(s.ch),
		Logo:   s.e.cfg.Brand.Logo,
		Banner: errorStrings(s.ch.NonFieldErrors()),
		Fields: []Field{
			{Name: "uid_field", Label: "Email / Username"},
		},
		Submit: s.ch.PrimaryAction,
	}
	if s.ch.ApplicationPre != "" {
		screen.Intro = fmt.Sprintf("Log in to continue to %s.", s.ch.ApplicationPre)
	}
	if s.ch.PasswordFields {
		screen.Fields = append(screen.Fields, Field{
			Name:   "password",
			Label:  "Password",
			Secret: true,
			Errors: errorStrings(s.ch.FieldErrors("password")),
		})
	}

	values, err := s.e.surface.Present(ctx, screen)
	if err != nil {
		return nil, err
	}

	return values, nil
}

type passwordStage struct {
	e  *Executor
	ch *flowtypes.PasswordChallenge
}

func (s *passwordStage) Run(ctx context.Context) (any, error) {
	values, err := s.e.surface.Present(ctx, &Screen{
		Title:  s.e.title(s.ch),
		Logo:   s.e.cfg.Brand.Logo,
		Intro:  fmt.Sprintf("Welcome, %s.", s.ch.PendingUser),
		Banner: errorStrings(s.ch.NonFieldErrors()),
		Fields: []Field{
			{
				Name:   "password",
				Label:  "Password",
				Secret: true,
				Errors: errorStrings(s.ch.FieldErrors("password")),
			},
		},
		Submit: "Continue",
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}

type redirectStage struct {
	e  *Executor
	ch *flowtypes.RedirectChallenge
}

func (s *redirectStage) Run(ctx context.Context) (any, error) {
	s.e.logger.Debug("executor: redirecting", "to", s.ch.To)

	return nil, s.e.surface.Navigate(ctx, s.ch.To)
}

type autosubmitStage struct {
	e  *Executor
	ch *flowtypes.AutosubmitChallenge
}

func (s *autosubmitStage) Run(ctx context.Context) (any, error) {
	// No user action is solicited; the server-supplied form is posted
	// immediately, which leaves the flow the way a browser navigation
	// would.
	s.e.surface.Display(&Screen{
		Title: s.e.title(s.ch),
		Logo:  s.e.cfg.Brand.Logo,
		Busy:  true,
	})

	return nil, s.e.surface.PostForm(ctx, s.ch.URL, s.ch.Attrs)
}

type unsupportedStage struct {
	e  *Executor
	ch flowtypes.Challenge
}

func (s *unsupportedStage) Run(ctx context.Context) (any, error) {
	s.e.logger.Warn("executor: unsupported stage", "component", s.ch.Component())
	s.e.surface.Display(&Screen{
		Title:  s.e.title(s.ch),
		Logo:   s.e.cfg.Brand.Logo,
		Banner: []string{"Unsupported stage: " + s.ch.Component()},
	})

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedStage, s.ch.Component())
}

type registerStage struct {
	e  *Executor
	ch *flowtypes.WebAuthnRegisterChallenge
}

func (s *registerStage) Run(ctx context.Context) (any, error) {
	if !s.e.webAuthnSupported() {
		s.e.surface.Display(&Screen{
			Title:  s.e.title(s.ch),
			Logo:   s.e.cfg.Brand.Logo,
			Banner: []string{"WebAuthn is not supported on this device."},
		})
		return nil, ceremony.NewCeremonyError("NotSupportedError", "no authenticator available")
	}

	s.e.surface.Display(&Screen{
		Title: s.e.title(s.ch),
		Logo:  s.e.cfg.Brand.Logo,
		Intro: "Follow the prompts on your authenticator.",
		Busy:  true,
	})

	opts, err := ceremony.ParseCreationOptions(s.ch.Registration.PublicKey)
	if err != nil {
		return nil, s.fail(err)
	}

	cred, err := s.e.authn.Create(ctx, opts)
	if err != nil {
		return nil, s.fail(err)
	}

	result, err := ceremony.EncodeRegistration(cred)
	if err != nil {
		return nil, s.fail(err)
	}

	return map[string]any{"response": result}, nil
}

func (s *registerStage) fail(err error) error {
	s.e.logger.Warn("executor: registration ceremony failed", "error", err)
	s.e.surface.Display(&Screen{
		Title:  s.e.title(s.ch),
		Logo:   s.e.cfg.Brand.Logo,
		Banner: []string{"Registration failed. Please try again."},
	})

	return err
}
