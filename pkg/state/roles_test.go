package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		raw  string
		want Role
	}{
		{"", RoleStandard},
		{"user", RoleStandard},
		{"standard", RoleStandard},
		{"business", RoleBusiness},
		{"institute", RoleInstitute},
		{"admin", RoleOperator},
		{"operator", RoleOperator},
	}
	for _, tc := range cases {
		got, err := ParseRole(tc.raw)
		require.NoError(t, err, "role %q", tc.raw)
		assert.Equal(t, tc.want, got)
	}
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"superuser", "Admin", "ADMIN", "guest"} {
		_, err := ParseRole(raw)
		assert.Error(t, err, "role %q must be rejected, not defaulted", raw)
	}
}

func TestCapabilities(t *testing.T) {
	assert.True(t, RoleOperator.Capabilities().Has(CapMonitor))
	assert.True(t, RoleOperator.Capabilities().Has(CapBroadcast))

	for _, r := range []Role{RoleStandard, RoleBusiness, RoleInstitute} {
		caps := r.Capabilities()
		assert.False(t, caps.Has(CapMonitor), "role %s", r)
		assert.False(t, caps.Has(CapBroadcast), "role %s", r)
	}
}

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"online", "away", "busy", "offline"} {
		got, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, Status(raw), got)
	}
	_, err := ParseStatus("invisible")
	assert.Error(t, err)
}
