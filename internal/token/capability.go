package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// capabilityGrant is the wire payload of a capability token. It carries no
// subject binding: any holder of the token may redeem it until expiry.
type capabilityGrant struct {
	ObjectKey string `json:"objectKey"`
	ExpiresAt int64  `json:"expiresAt"` // unix seconds
}

// CapabilityService mints and redeems short-lived tokens that grant access
// to exactly one object-store key. The token is the credential — the stream
// endpoint accepts it without an Authorization header. Tokens are MAC-signed
// with a secret independent of the identity scheme, so holders cannot mint
// grants for other keys.
type CapabilityService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCapabilityService creates a CapabilityService with the given default TTL.
func NewCapabilityService(secret string, ttl time.Duration) (*CapabilityService, error) {
	if secret == "" {
		return nil, fmt.Errorf("capability secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("capability ttl must be positive")
	}
	return &CapabilityService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the default grant lifetime.
func (s *CapabilityService) TTL() time.Duration { return s.ttl }

// Grant mints a token for the object key, valid for the service's TTL.
func (s *CapabilityService) Grant(objectKey string) (string, error) {
	if objectKey == "" {
		return "", fmt.Errorf("object key is required")
	}
	payload, err := json.Marshal(capabilityGrant{
		ObjectKey: objectKey,
		ExpiresAt: s.now().Add(s.ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("encode capability grant: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + s.mac(body), nil
}

// Redeem validates the token and returns the object key it grants. It fails
// closed: parse failures, MAC mismatches, and expired grants all return
// ("", false).
func (s *CapabilityService) Redeem(raw string) (string, bool) {
	body, sig, ok := strings.Cut(raw, ".")
	if !ok || body == "" || sig == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(s.mac(body))) {
		return "", false
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", false
	}
	var grant capabilityGrant
	if err := json.Unmarshal(payload, &grant); err != nil {
		return "", false
	}
	if grant.ObjectKey == "" || s.now().Unix() > grant.ExpiresAt {
		return "", false
	}
	return grant.ObjectKey, true
}

func (s *CapabilityService) mac(body string) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}
