package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testSecret = "unit-test-secret"

func TestSignatureRoundTrip(t *testing.T) {
	v := NewSignatureValidator(testSecret, 5*time.Minute)

	body := []byte(`{"readings":[{"ts":"2026-08-25T10:00:00Z","sensor_id":"s1","value":-18.5}]}`)
	ts := time.Now().UTC().Format(time.RFC3339)
	sig := v.Compute(body, ts, "device-1")

	assert.NoError(t, v.Validate(body, ts, "device-1", sig))
}

func TestSignatureRejectsTampering(t *testing.T) {
	v := NewSignatureValidator(testSecret, 5*time.Minute)

	body := []byte(`{"readings":[]}`)
	ts := time.Now().UTC().Format(time.RFC3339)
	sig := v.Compute(body, ts, "device-1")

	// Tampered body.
	err := v.Validate([]byte(`{"readings":[{"value":99}]}`), ts, "device-1", sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// Signature minted for another device.
	err = v.Validate(body, ts, "device-2", sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// Signature minted with another secret.
	other := NewSignatureValidator("other-secret", 5*time.Minute)
	err = v.Validate(body, ts, "device-1", other.Compute(body, ts, "device-1"))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSignatureReplayWindow(t *testing.T) {
	v := NewSignatureValidator(testSecret, 5*time.Minute)
	body := []byte(`{}`)

	stale := time.Now().Add(-10 * time.Minute).UTC().Format(time.RFC3339)
	err := v.Validate(body, stale, "device-1", v.Compute(body, stale, "device-1"))
	assert.ErrorIs(t, err, ErrStaleTimestamp)

	// Future timestamps beyond the window are just as stale.
	future := time.Now().Add(10 * time.Minute).UTC().Format(time.RFC3339)
	err = v.Validate(body, future, "device-1", v.Compute(body, future, "device-1"))
	assert.ErrorIs(t, err, ErrStaleTimestamp)

	// Small skew inside the window passes.
	skewed := time.Now().Add(-2 * time.Minute).UTC().Format(time.RFC3339)
	assert.NoError(t, v.Validate(body, skewed, "device-1", v.Compute(body, skewed, "device-1")))
}

func TestSignatureMissingAndMalformedHeaders(t *testing.T) {
	v := NewSignatureValidator(testSecret, 5*time.Minute)
	body := []byte(`{}`)
	ts := time.Now().UTC().Format(time.RFC3339)
	sig := v.Compute(body, ts, "device-1")

	assert.ErrorIs(t, v.Validate(body, "", "device-1", sig), ErrMissingHeader)
	assert.ErrorIs(t, v.Validate(body, ts, "", sig), ErrMissingHeader)
	assert.ErrorIs(t, v.Validate(body, ts, "device-1", ""), ErrMissingHeader)
	assert.ErrorIs(t, v.Validate(body, "not-a-time", "device-1", sig), ErrBadTimestamp)
}
