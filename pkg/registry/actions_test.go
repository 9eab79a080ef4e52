package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_Code(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   string
	}{
		{
			name:   "basic",
			action: Action{Method: "POST", Kind: Write, Definition: "CreateRole", Route: "Role"},
			want:   "POST.Write.CreateRole",
		},
		{
			name:   "spaces stripped from definition",
			action: Action{Method: "POST", Kind: Write, Definition: "Create Role", Route: "Role"},
			want:   "POST.Write.CreateRole",
		},
		{
			name:   "empty method defaults to GET",
			action: Action{Kind: Read, Definition: "GetRoles", Route: "Role"},
			want:   "GET.Read.GetRoles",
		},
		{
			name:   "method normalized to upper case",
			action: Action{Method: "patch", Kind: Update, Definition: "UpdateRole", Route: "Role"},
			want:   "PATCH.Update.UpdateRole",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.Code())
		})
	}
}

func TestAction_CodeDeterministic(t *testing.T) {
	action := Action{Method: "DELETE", Kind: Delete, Definition: "Delete Role", Route: "Role"}
	assert.Equal(t, action.Code(), action.Code())
}

func TestNormalizeRoute(t *testing.T) {
	assert.Equal(t, "Role", NormalizeRoute("RoleController"))
	assert.Equal(t, "Role", NormalizeRoute("Role"))
	assert.Equal(t, "User", NormalizeRoute("UserController"))
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New()
	r.Register("role-create", Action{Method: "POST", Kind: Write, Definition: "Create Role", Route: "RoleController"})

	action, ok := r.Lookup("role-create")
	require.True(t, ok)
	assert.Equal(t, "Role", action.Route)
	assert.Equal(t, "POST.Write.CreateRole", action.Code())

	_, ok = r.Lookup("unknown")
	assert.False(t, ok)
}

func TestRegistry_MenusGroupAndOrder(t *testing.T) {
	r := New()
	r.Register("role-create", Action{Method: "POST", Kind: Write, Definition: "CreateRole", Route: "Role"})
	r.Register("user-roles", Action{Method: "GET", Kind: Read, Definition: "GetUserRoles", Route: "User"})
	r.Register("role-delete", Action{Method: "DELETE", Kind: Delete, Definition: "DeleteRole", Route: "Role"})
	r.Register("role-list", Action{Kind: Read, Definition: "GetRoles", Route: "Role"})

	menus := r.Menus()
	require.Len(t, menus, 2)

	assert.Equal(t, "Role", menus[0].Route)
	assert.Equal(t, []string{"POST.Write.CreateRole", "DELETE.Delete.DeleteRole", "GET.Read.GetRoles"}, menus[0].Codes)

	assert.Equal(t, "User", menus[1].Route)
	assert.Equal(t, []string{"GET.Read.GetUserRoles"}, menus[1].Codes)

	assert.Equal(t, 4, r.Len())
}

func TestRegistry_ReRegisterDoesNotDuplicate(t *testing.T) {
	r := New()
	action := Action{Method: "POST", Kind: Write, Definition: "CreateRole", Route: "Role"}
	r.Register("role-create", action)
	r.Register("role-create", action)

	menus := r.Menus()
	require.Len(t, menus, 1)
	assert.Len(t, menus[0].Codes, 1)
	assert.Equal(t, 1, r.Len())
}
