package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleAdmin, ActionAdmin, true},
		{RoleAdmin, ActionModerate, true},
		{RoleModerator, ActionModerate, true},
		{RoleModerator, ActionFeature, true},
		{RoleModerator, ActionAdmin, false},
		{RoleMember, ActionReport, true},
		{RoleMember, ActionModerate, false},
		{RoleMember, ActionFeature, false},
		{Role("ghost"), ActionRead, false},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.action); got != tc.want {
			t.Errorf("Can(%s, %s) = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("moderator") != RoleModerator {
		t.Error("moderator should survive normalization")
	}
	if Normalize("") != RoleMember {
		t.Error("empty role should normalize to member")
	}
	if Normalize("superuser") != RoleMember {
		t.Error("unknown role should normalize to member")
	}
}
