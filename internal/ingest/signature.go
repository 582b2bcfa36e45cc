package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Signature validation errors, surfaced to devices as structured 401s.
var (
	ErrMissingHeader    = errors.New("missing signature header")
	ErrStaleTimestamp   = errors.New("timestamp outside replay window")
	ErrBadTimestamp     = errors.New("malformed timestamp")
	ErrInvalidSignature = errors.New("signature mismatch")
)

// SignatureValidator checks device-request HMAC signatures.
type SignatureValidator struct {
	secret       []byte
	replayWindow time.Duration
}

// NewSignatureValidator creates a validator with the shared device secret.
func NewSignatureValidator(secret string, replayWindow time.Duration) *SignatureValidator {
	return &SignatureValidator{
		secret:       []byte(secret),
		replayWindow: replayWindow,
	}
}

// Compute returns the hex HMAC-SHA256 over body + timestamp + deviceID.
// Matches the signing scheme burned into device firmware.
func (v *SignatureValidator) Compute(body []byte, timestamp, deviceID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	mac.Write([]byte(timestamp))
	mac.Write([]byte(deviceID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate checks the supplied signature and timestamp. The timestamp must
// parse as RFC 3339 and sit within ±replayWindow of now; the signature is
// compared in constant time.
func (v *SignatureValidator) Validate(body []byte, timestamp, deviceID, signature string) error {
	if timestamp == "" || deviceID == "" || signature == "" {
		return ErrMissingHeader
	}

	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return ErrBadTimestamp
	}

	skew := time.Since(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > v.replayWindow {
		return ErrStaleTimestamp
	}

	expected := v.Compute(body, timestamp, deviceID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}

	return nil
}
