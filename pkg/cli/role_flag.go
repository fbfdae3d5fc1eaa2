package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"expertmarket/internal/domain"
)

// roleValue is a pflag.Value restricted to a fixed set of roles.
type roleValue struct {
	role    domain.Role
	allowed []domain.Role
}

var _ pflag.Value = (*roleValue)(nil)

func newRoleValue(def domain.Role, allowed ...domain.Role) *roleValue {
	return &roleValue{role: def, allowed: allowed}
}

func (v *roleValue) String() string { return string(v.role) }

func (v *roleValue) Set(s string) error {
	r := domain.Role(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range v.allowed {
		if r == a {
			v.role = r
			return nil
		}
	}
	names := make([]string, len(v.allowed))
	for i, a := range v.allowed {
		names[i] = string(a)
	}
	return fmt.Errorf("invalid role %q: must be one of %s", s, strings.Join(names, ", "))
}

func (v *roleValue) Type() string { return "role" }
