package application

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hmacHex(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCompactBody_KeepsKeyOrderAndNumbers(t *testing.T) {
	compact, err := CompactBody([]byte("{\n  \"b\": 1.50,\n  \"a\": {\"z\": \"<x>\", \"y\": [3, 2]}\n}\n"))
	require.NoError(t, err)
	assert.Equal(t, `{"b":1.50,"a":{"z":"<x>","y":[3,2]}}`, string(compact))
}

func TestSign_MatchesHMACOfBodyAsSent(t *testing.T) {
	body := `{"event":"product created","productId":"p1","name":"Widget","price":9.99,"quantity":3}`

	sig, err := Sign(testSecret, []byte(body))
	require.NoError(t, err)
	assert.Equal(t, hmacHex(testSecret, body), sig)
}

func TestVerifySignature(t *testing.T) {
	body := `{"event":"product created","productId":"p1","name":"Widget","price":9.99,"quantity":3}`
	pretty := "{\n  \"event\": \"product created\",\n  \"productId\": \"p1\",\n  \"name\": \"Widget\",\n  \"price\": 9.99,\n  \"quantity\": 3\n}"
	reordered := `{"productId":"p1","event":"product created","name":"Widget","price":9.99,"quantity":3}`
	valid := hmacHex(testSecret, body)

	tests := []struct {
		name      string
		body      string
		signature string
		secret    string
		verified  bool
		err       error
	}{
		{"valid signature", body, valid, testSecret, true, nil},
		{"whitespace is not significant", pretty, valid, testSecret, true, nil},
		{"key order is significant", reordered, valid, testSecret, false, ErrSignatureMismatch},
		{"wrong secret", body, hmacHex("other", body), testSecret, false, ErrSignatureMismatch},
		{"wrong signature", body, "deadbeef", testSecret, false, ErrSignatureMismatch},
		{"uppercase hex is not an exact match", body, toUpper(valid), testSecret, false, ErrSignatureMismatch},
		{"no secret configured", body, "anything", "", false, nil},
		{"no signature sent", body, "", testSecret, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verified, err := VerifySignature([]byte(tt.body), tt.signature, tt.secret)
			assert.Equal(t, tt.verified, verified)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerifySignature_MalformedBody(t *testing.T) {
	_, err := VerifySignature([]byte(`{"event":`), "abc", testSecret)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSignatureMismatch)
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 32
		}
	}
	return string(b)
}
