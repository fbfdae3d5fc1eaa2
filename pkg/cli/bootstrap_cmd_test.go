//go:build integration

package cli

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expertmarket/internal/domain"
	"expertmarket/internal/token"
)

func TestBootstrapAndMintRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.sqlite")

	out, err := execute(t, "bootstrap-admin", "--db", dbPath,
		"--email", "root@example.com", "--name", "Root")
	require.NoError(t, err)
	assert.Contains(t, out, "created superadmin root@example.com")

	// Second run promotes instead of failing on the unique email.
	out, err = execute(t, "bootstrap-admin", "--db", dbPath,
		"--email", "root@example.com", "--role", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "to admin")

	out, err = execute(t, "mint-token", "--db", dbPath,
		"--email", "root@example.com", "--secret", "cli-test-secret", "--ttl", "1h")
	require.NoError(t, err)

	tokens, err := token.NewIdentityService("cli-test-secret", time.Hour)
	require.NoError(t, err)

	p, ok := tokens.Verify(strings.TrimSpace(out))
	require.True(t, ok)
	assert.Equal(t, "root@example.com", p.Email)
	assert.Equal(t, domain.RoleAdmin, p.Role)
}

func TestMintTokenUnknownUser(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.sqlite")

	_, err := execute(t, "bootstrap-admin", "--db", dbPath, "--email", "root@example.com")
	require.NoError(t, err)

	_, err = execute(t, "mint-token", "--db", dbPath,
		"--email", "ghost@example.com", "--secret", "cli-test-secret")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}
