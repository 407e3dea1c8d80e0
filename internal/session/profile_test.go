package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
)

func TestNormalizeProfileShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"nested", `{"user":{"id":3,"username":"bob","role":"store_manager","permissions":["store:read","product:read"]}}`},
		{"flat", `{"id":"3","username":"bob","role":"store_manager","permissions":["store:read","product:read"]}`},
		{"objects", `{"id":3,"username":"bob","role":{"name":"store_manager"},"permissions":[{"code":"store:read"},{"name":"product:read"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			user, err := NormalizeProfile([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, "3", user.ID)
			assert.Equal(t, "bob", user.Username)
			assert.Equal(t, rbac.RoleStoreManager, user.Role)
			assert.Equal(t, []rbac.Permission{rbac.PermProductRead, rbac.PermStoreRead}, user.Permissions.Sorted())
		})
	}
}

func TestNormalizeProfileDropsMalformedPermissions(t *testing.T) {
	user, err := NormalizeProfile([]byte(`{"id":1,"username":"x","role":"sales_person","permissions":["store:read","Bad Code",""]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"store:read"}, user.Permissions.Strings())
}

func TestNormalizeProfileRejects(t *testing.T) {
	cases := map[string]string{
		"not json":         `nope`,
		"missing id":       `{"username":"x","role":"global_admin"}`,
		"missing username": `{"id":1,"role":"global_admin"}`,
		"unknown role":     `{"id":1,"username":"x","role":"superuser"}`,
		"permissions type": `{"id":1,"username":"x","role":"global_admin","permissions":"store:read"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeProfile([]byte(raw))
			assert.ErrorIs(t, err, ErrMalformedProfile)
		})
	}
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "", (*User)(nil).DisplayName())
	assert.Equal(t, "bob", (&User{Username: "bob"}).DisplayName())
	assert.Equal(t, "Bob B", (&User{Username: "bob", Name: "Bob B"}).DisplayName())
}
