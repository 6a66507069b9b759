package application

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// SignatureHeader carries the provider's hex HMAC-SHA256 of the payload.
const SignatureHeader = "x-webhook-signature"

// ErrSignatureMismatch is returned when a signed delivery fails verification.
var ErrSignatureMismatch = errors.New("signature mismatch")

// CompactBody strips insignificant whitespace from a JSON body. Key order and
// number literals are kept as the provider sent them, so the result is the
// serialized form providers sign.
func CompactBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, bytes.TrimSpace(body)); err != nil {
		return nil, fmt.Errorf("compact payload: %w", err)
	}
	return buf.Bytes(), nil
}

// Sign returns the lowercase hex HMAC-SHA256 of the compacted body.
func Sign(secret string, body []byte) (string, error) {
	compact, err := CompactBody(body)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(compact)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature checks signature against the raw body. It reports whether
// a verification actually took place: with no secret or no signature the
// delivery is accepted unverified.
func VerifySignature(body []byte, signature, secret string) (bool, error) {
	if secret == "" || signature == "" {
		return false, nil
	}
	expected, err := Sign(secret, body)
	if err != nil {
		return false, err
	}
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return false, ErrSignatureMismatch
	}
	return true, nil
}
