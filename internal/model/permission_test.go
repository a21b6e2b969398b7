package model

import "testing"

func TestPerm_Allows(t *testing.T) {
	testCases := []struct {
		name     string
		mask     Perm
		required Role
		want     bool
	}{
		{
			name:     "zero mask satisfies none",
			mask:     0,
			required: RoleNone,
			want:     true,
		},
		{
			name:     "zero mask rejected for user",
			mask:     0,
			required: RoleUser,
			want:     false,
		},
		{
			name:     "zero mask rejected for admin",
			mask:     0,
			required: RoleAdmin,
			want:     false,
		},
		{
			name:     "user flag satisfies user",
			mask:     PermUser,
			required: RoleUser,
			want:     true,
		},
		{
			name:     "user flag rejected for admin",
			mask:     PermUser,
			required: RoleAdmin,
			want:     false,
		},
		{
			name:     "admin flag satisfies admin",
			mask:     PermAdmin,
			required: RoleAdmin,
			want:     true,
		},
		{
			name:     "admin flag is a superset of user",
			mask:     PermAdmin,
			required: RoleUser,
			want:     true,
		},
		{
			name:     "combined mask satisfies admin",
			mask:     PermUser | PermAdmin,
			required: RoleAdmin,
			want:     true,
		},
		{
			name:     "combined mask satisfies user",
			mask:     PermUser | PermAdmin,
			required: RoleUser,
			want:     true,
		},
		{
			name:     "super flag satisfies admin",
			mask:     PermSuper,
			required: RoleAdmin,
			want:     true,
		},
		{
			name:     "super flag satisfies user",
			mask:     PermSuper,
			required: RoleUser,
			want:     true,
		},
		{
			name:     "any mask satisfies none",
			mask:     PermUser,
			required: RoleNone,
			want:     true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.mask.Allows(tc.required)
			if got != tc.want {
				t.Errorf("Perm(%d).Allows(%s) = %v, want %v", tc.mask, tc.required, got, tc.want)
			}
		})
	}
}

// TestPerm_Allows_NoAdminBit exhaustively checks that every mask without
// the admin or super bits fails admin-gated checks.
func TestPerm_Allows_NoAdminBit(t *testing.T) {
	for mask := Perm(0); mask < 1<<8; mask++ {
		if mask.Has(PermAdmin) || mask.Has(PermSuper) {
			continue
		}
		if mask.Allows(RoleAdmin) {
			t.Errorf("Perm(%d) without admin bit allowed admin role", mask)
		}
	}
}

func TestPerm_Has(t *testing.T) {
	mask := PermUser | PermAdmin
	if !mask.Has(PermUser) || !mask.Has(PermAdmin) {
		t.Errorf("combined mask missing expected flags")
	}
	if mask.Has(PermSuper) {
		t.Errorf("combined mask unexpectedly has super flag")
	}
}
