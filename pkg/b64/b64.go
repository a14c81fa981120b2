// Package b64 implements the URL-safe base64 dialects used on the flow
// executor wire. Credential material crosses the JSON boundary in two
// variants: padded and unpadded. Decoding is tolerant of both variants and
// of the standard (+/) alphabet, since some payloads arrive already
// URL-decoded.
package b64

import (
	"encoding/base64"
	"strings"
)

// DecodeError indicates that a payload was not valid base64 in any accepted
// variant. Callers handling credential material must treat it as fatal for
// the current ceremony attempt rather than submitting partial bytes.
type DecodeError struct {
	Input string
	err   error
}

func (e *DecodeError) Error() string {
	return "b64: malformed base64 input"
}

func (e *DecodeError) Unwrap() error {
	return e.err
}

// Encode returns the padded base64url encoding of b.
func Encode(b []byte) string {
	return base64.URLEncoding.EncodeToString(b)
}

// EncodeUnpadded returns the base64url encoding of b without trailing
// padding. Some server-side verifiers reject trailing '='.
func EncodeUnpadded(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode reverses Encode and EncodeUnpadded. It accepts both the base64url
// (-_) and standard (+/) alphabets, padded or not, so it is idempotent with
// respect to the URL-substitution a payload may already have gone through.
func Decode(s string) ([]byte, error) {
	normalized := strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if n := len(normalized) % 4; n != 0 {
		normalized += strings.Repeat("=", 4-n)
	}

	b, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, &DecodeError{Input: s, err: err}
	}

	return b, nil
}
