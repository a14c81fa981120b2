package executor

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/goauthentik/authentik-sub006/pkg/ceremony"
	"github.com/goauthentik/authentik-sub006/pkg/flowtypes"
)

// deviceLabel maps a device class to its picker label. Unrecognized classes
// have no action to offer and are omitted from pickers entirely.
func deviceLabel(class flowtypes.DeviceClass) (string, bool) {
	switch class {
	case flowtypes.DeviceClassStatic:
		return "Recovery keys", true
	case flowtypes.DeviceClassTOTP:
		return "Traditional authenticator", true
	case flowtypes.DeviceClassWebAuthn:
		return "Security key", true
	default:
		return "", false
	}
}

// validateStage runs the nested device-verification machine: a picker over
// the challenge's devices, then either a code prompt or a WebAuthn
// ceremony. A failed ceremony resets to the picker; the device list itself
// is never mutated.
type validateStage struct {
	e  *Executor
	ch *flowtypes.AuthenticatorValidateChallenge

	selected mo.Option[flowtypes.DeviceChallenge]
	banner   []string
}

func (s *validateStage) Run(ctx context.Context) (any, error) {
	for {
		device, ok := s.selected.Get()
		if !ok {
			if err := s.pick(ctx); err != nil {
				return nil, err
			}
			continue
		}

		switch device.DeviceClass {
		case flowtypes.DeviceClassStatic, flowtypes.DeviceClassTOTP:
			return s.promptCode(ctx)
		case flowtypes.DeviceClassWebAuthn:
			payload, err := s.assert(ctx, device)
			if err != nil {
				var cerr *ceremony.CeremonyError
				if errors.As(err, &cerr) {
					// Platform refusal: back to the picker, the user must
					// re-pick before another attempt.
					s.e.logger.Warn("executor: webauthn ceremony failed", "error", err)
					s.selected = mo.None[flowtypes.DeviceChallenge]()
					s.banner = []string{"Authenticator verification failed."}
					continue
				}
				return nil, s.fatal(err)
			}
			return payload, nil
		default:
			// Unknown classes never reach selection; recover to the picker
			// if one does.
			s.selected = mo.None[flowtypes.DeviceChallenge]()
		}
	}
}

// pick renders the device picker over the supported subset of the device
// challenges. Display filter only: the underlying sequence stays untouched.
func (s *validateStage) pick(ctx context.Context) error {
	supported := lo.Filter(s.ch.DeviceChallenges, func(dc flowtypes.DeviceChallenge, _ int) bool {
		if dc.DeviceClass == flowtypes.DeviceClassWebAuthn && !s.e.webAuthnSupported() {
			return false
		}
		_, ok := deviceLabel(dc.DeviceClass)
		return ok
	})

	if len(supported) == 0 {
		s.e.surface.Display(&Screen{
			Title:  s.e.title(s.ch),
			Logo:   s.e.cfg.Brand.Logo,
			Banner: s.banner,
			Intro:  "No compatible authentication method available",
		})
		return ErrNoCompatibleDevice
	}

	values, err := s.e.surface.Present(ctx, &Screen{
		Title:  s.e.title(s.ch),
		Logo:   s.e.cfg.Brand.Logo,
		Intro:  "Select an authentication method.",
		Banner: s.banner,
		Choices: lo.Map(supported, func(dc flowtypes.DeviceChallenge, _ int) Choice {
			label, _ := deviceLabel(dc.DeviceClass)
			return Choice{ID: dc.DeviceUID, Label: label}
		}),
	})
	if err != nil {
		return err
	}

	picked, found := lo.Find(supported, func(dc flowtypes.DeviceChallenge) bool {
		return dc.DeviceUID == values.Get(ChoiceField)
	})
	if !found {
		// Not one of the offered devices; show the picker again.
		return nil
	}

	s.selected = mo.Some(picked)
	s.banner = nil

	return nil
}

func (s *validateStage) promptCode(ctx context.Context) (any, error) {
	values, err := s.e.surface.Present(ctx, &Screen{
		Title:  s.e.title(s.ch),
		Logo:   s.e.cfg.Brand.Logo,
		Banner: append(s.banner, errorStrings(s.ch.NonFieldErrors())...),
		Fields: []Field{
			{
				Name:         "code",
				Label:        "Please enter your code",
				Autocomplete: "one-time-code",
				Errors:       errorStrings(s.ch.FieldErrors("code")),
			},
		},
		Submit: "Continue",
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}

// assert runs the WebAuthn authentication ceremony for one device
// challenge and encodes the assertion for submission.
func (s *validateStage) assert(ctx context.Context, device flowtypes.DeviceChallenge) (any, error) {
	s.e.surface.Display(&Screen{
		Title: s.e.title(s.ch),
		Logo:  s.e.cfg.Brand.Logo,
		Intro: "Follow the prompts on your security key.",
		Busy:  true,
	})

	opts, err := ceremony.ParseRequestOptions(device.Challenge)
	if err != nil {
		return nil, err
	}

	cred, err := s.e.authn.Get(ctx, opts)
	if err != nil {
		return nil, err
	}

	result, err := ceremony.EncodeAssertion(cred)
	if err != nil {
		return nil, err
	}

	return map[string]any{"webauthn": result}, nil
}

// fatal reports a non-recoverable ceremony failure: corrupted credential
// material or an incompatible response. Retrying cannot fix either, so the
// stage surfaces a generic message and stops.
func (s *validateStage) fatal(err error) error {
	s.e.logger.Warn("executor: device validation aborted", "error", err)
	s.e.surface.Display(&Screen{
		Title:  s.e.title(s.ch),
		Logo:   s.e.cfg.Brand.Logo,
		Banner: []string{"Authenticator error."},
	})

	return err
}
