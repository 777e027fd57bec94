package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer computes the HMAC-SHA256 login digest for the websocket session.
type Signer struct {
	key    string
	secret []byte
}

// NewSigner creates a signer from the client key and the hex-encoded shared
// secret.
func NewSigner(key, secretHex string) (*Signer, error) {
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("client secret is not valid hex: %w", err)
	}
	return &Signer{key: key, secret: secret}, nil
}

// Sign produces the hex digest over "key=<clientKey>;time=<unixSeconds>".
func (s *Signer) Sign(unixSeconds int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "key=%s;time=%d", s.key, unixSeconds)
	return hex.EncodeToString(mac.Sum(nil))
}

// Key returns the client key carried in the login payload.
func (s *Signer) Key() string {
	return s.key
}
