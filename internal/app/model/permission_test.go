package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionBitsArePersistedValues(t *testing.T) {
	assert.EqualValues(t, 1, PermManage)
	assert.EqualValues(t, 2, PermLink)
	assert.EqualValues(t, 4, PermCode)
	assert.EqualValues(t, 8, PermFile)
	assert.EqualValues(t, 15, AllPermissions())
}

func TestPermissionsSet(t *testing.T) {
	s := NewPermissions(PermLink, PermFile)

	assert.True(t, s.Has(PermLink))
	assert.False(t, s.Has(PermCode))
	assert.Equal(t, []Permission{PermLink, PermFile}, s.List())

	s = s.With(PermCode).Without(PermLink)
	assert.Equal(t, []Permission{PermCode, PermFile}, s.List())
}

func TestPermissionsJSON(t *testing.T) {
	b, err := json.Marshal(NewPermissions(PermManage, PermCode))
	require.NoError(t, err)
	assert.JSONEq(t, `["Manage","Code"]`, string(b))

	var s Permissions
	require.NoError(t, json.Unmarshal([]byte(`["link","File"]`), &s))
	assert.Equal(t, NewPermissions(PermLink, PermFile), s)

	require.NoError(t, json.Unmarshal([]byte(`6`), &s))
	assert.Equal(t, NewPermissions(PermLink, PermCode), s)

	assert.Error(t, json.Unmarshal([]byte(`["Admin"]`), &s))
}

func TestUserCan(t *testing.T) {
	root := &User{ID: RootUserID}
	manager := &User{ID: "m", Descriptor: NewPermissions(PermManage)}
	linker := &User{ID: "l", Descriptor: NewPermissions(PermLink)}
	var guest *User

	assert.Equal(t, RoleRoot, root.Role())
	assert.Equal(t, RoleMember, linker.Role())
	assert.Equal(t, RoleGuest, guest.Role())

	for _, p := range []Permission{PermManage, PermLink, PermCode, PermFile} {
		assert.True(t, root.Can(p), "root should pass %s", p)
		assert.True(t, manager.Can(p), "manage should imply %s", p)
		assert.False(t, guest.Can(p))
	}

	assert.True(t, linker.Can(PermLink))
	assert.False(t, linker.Can(PermCode))
	assert.False(t, linker.Can(PermManage))
}

func TestRequiredPermission(t *testing.T) {
	assert.Equal(t, PermLink, RequiredPermission(ItemLink))
	assert.Equal(t, PermCode, RequiredPermission(ItemCode))
	assert.Equal(t, PermFile, RequiredPermission(ItemFile))
}
