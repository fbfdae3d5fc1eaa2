// Package token implements the two credential schemes: signed identity
// tokens carrying a principal, and short-lived capability tokens scoped to a
// single object-store key.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"expertmarket/internal/domain"
)

// IdentityService issues and verifies HS256-signed bearer credentials.
// Operations are pure functions of the inputs and wall-clock time; there is
// no revocation — a credential stays valid until exp elapses.
type IdentityService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIdentityService creates an IdentityService. The secret comes from
// configuration; it is never read from a process-wide global.
func NewIdentityService(secret string, ttl time.Duration) (*IdentityService, error) {
	if secret == "" {
		return nil, fmt.Errorf("identity secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("identity ttl must be positive")
	}
	return &IdentityService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a credential for the principal. The payload carries the
// principal fields plus iat and exp (unix seconds); the result is the
// standard three-segment base64url encoding.
func (s *IdentityService) Issue(p domain.Principal) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"userId": p.UserID,
		"email":  p.Email,
		"name":   p.Name,
		"role":   string(p.Role),
		"iat":    now.Unix(),
		"exp":    now.Add(s.ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded principal.
// It fails closed: any malformed, tampered, or expired token yields
// (zero, false), never an error that leaks parse detail to callers.
func (s *IdentityService) Verify(raw string) (domain.Principal, bool) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return domain.Principal{}, false
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Principal{}, false
	}

	p := domain.Principal{}
	if v, ok := claims["userId"].(string); ok {
		p.UserID = v
	}
	if v, ok := claims["email"].(string); ok {
		p.Email = v
	}
	if v, ok := claims["name"].(string); ok {
		p.Name = v
	}
	if v, ok := claims["role"].(string); ok {
		p.Role = domain.Role(v)
	}
	if p.UserID == "" || !domain.ValidRole(p.Role) {
		return domain.Principal{}, false
	}
	return p, true
}
