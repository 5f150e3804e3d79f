package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"reference":"SOW_ABC_12345678"}}`)

	t.Run("valid signature", func(t *testing.T) {
		if err := VerifySignature(body, sign(body, secret), secret); err != nil {
			t.Errorf("VerifySignature() error = %v, want nil", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		if err := VerifySignature(body, sign(body, "other-secret"), secret); err != ErrInvalidSignature {
			t.Errorf("VerifySignature() error = %v, want ErrInvalidSignature", err)
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		signature := sign(body, secret)
		tampered := append([]byte(nil), body...)
		tampered[len(tampered)-2] = 'X'
		if err := VerifySignature(tampered, signature, secret); err != ErrInvalidSignature {
			t.Errorf("VerifySignature() error = %v, want ErrInvalidSignature", err)
		}
	})

	t.Run("reserialized body breaks verification", func(t *testing.T) {
		// Same JSON value, different bytes. The signature only matches the
		// exact bytes the provider sent.
		reserialized := []byte(`{"event": "charge.success", "data": {"reference": "SOW_ABC_12345678"}}`)
		if err := VerifySignature(reserialized, sign(body, secret), secret); err != ErrInvalidSignature {
			t.Errorf("VerifySignature() error = %v, want ErrInvalidSignature", err)
		}
	})

	t.Run("empty signature", func(t *testing.T) {
		if err := VerifySignature(body, "", secret); err != ErrInvalidSignature {
			t.Errorf("VerifySignature() error = %v, want ErrInvalidSignature", err)
		}
	})
}
