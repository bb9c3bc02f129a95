package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
)

// Verifier checks the upstream provider's HMAC-SHA256 signature over the
// raw request body. With no secret configured it only admits requests in
// non-production environments, loudly.
type Verifier struct {
	secret     []byte
	production bool
}

func NewVerifier(secret string, production bool) Verifier {
	return Verifier{secret: []byte(secret), production: production}
}

// Verify reports whether the delivery is authentic. signature is the value
// of the provider's signature header, hex-encoded.
func (v Verifier) Verify(body []byte, signature string) bool {
	if len(v.secret) == 0 {
		if v.production {
			return false
		}
		log.Printf("[WARN] webhook secret not configured, accepting unsigned request")
		return true
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
