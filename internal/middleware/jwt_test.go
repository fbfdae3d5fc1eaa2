package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeToken creates a signed HS256 JWT from the given secret and claims.
func makeToken(secret string, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString([]byte(secret))
	return signed
}

func TestNewHS256ValidatorRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewHS256Validator("")
	require.Error(t, err)

	v, err := NewHS256Validator("my-secret")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestHS256ValidatorValidate(t *testing.T) {
	t.Parallel()

	const secret = "shared-secret"

	tests := []struct {
		name    string
		token   string
		wantErr bool
		check   func(t *testing.T, c *JWTClaims)
	}{
		{
			name: "valid token with full claims",
			token: makeToken(secret, jwt.MapClaims{
				"sub":   "user-1",
				"iss":   "https://idp.example.com",
				"aud":   "expertmarket",
				"email": "user@example.com",
				"name":  "User One",
				"exp":   time.Now().Add(time.Hour).Unix(),
			}),
			check: func(t *testing.T, c *JWTClaims) {
				assert.Equal(t, "user-1", c.Subject)
				assert.Equal(t, "https://idp.example.com", c.Issuer)
				assert.Equal(t, []string{"expertmarket"}, c.Audience)
				require.NotNil(t, c.Email)
				assert.Equal(t, "user@example.com", *c.Email)
				require.NotNil(t, c.Name)
				assert.Equal(t, "User One", *c.Name)
			},
		},
		{
			name: "audience as list",
			token: makeToken(secret, jwt.MapClaims{
				"sub": "user-2",
				"aud": []string{"a", "b"},
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			check: func(t *testing.T, c *JWTClaims) {
				assert.Equal(t, []string{"a", "b"}, c.Audience)
			},
		},
		{
			name: "expired token",
			token: makeToken(secret, jwt.MapClaims{
				"sub": "user-3",
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
			wantErr: true,
		},
		{
			name: "wrong secret",
			token: makeToken("other-secret", jwt.MapClaims{
				"sub": "user-4",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantErr: true,
		},
		{
			name:    "garbage input",
			token:   "not-a-jwt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := NewHS256Validator(secret)
			require.NoError(t, err)

			claims, err := v.Validate(context.Background(), tt.token)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, claims)
			}
		})
	}
}

func TestHS256ValidatorRejectsUnsignedToken(t *testing.T) {
	t.Parallel()

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-5",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	v, err := NewHS256Validator("shared-secret")
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), raw)
	require.Error(t, err)
}
