package models

import "testing"

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"admin", "master", "volunteer", "participant"} {
		if _, ok := ParseRole(valid); !ok {
			t.Errorf("ParseRole(%q) rejected a known role", valid)
		}
	}
	for _, invalid := range []string{"", "Admin", "root", "superuser"} {
		if role, ok := ParseRole(invalid); ok {
			t.Errorf("ParseRole(%q) accepted unknown role as %q", invalid, role)
		}
	}
}

func TestSessionCanManage(t *testing.T) {
	cases := []struct {
		name    string
		session *Session
		eventID string
		want    bool
	}{
		{"nil session", nil, "ev1", false},
		{"master unrestricted", &Session{Role: RoleMaster}, "ev1", true},
		{"registration team admin", &Session{Role: RoleAdmin, Team: RegistrationTeam}, "ev1", true},
		{"scoped admin in list", &Session{Role: RoleAdmin, Access: []string{"ev1", "ev2"}}, "ev2", true},
		{"scoped admin outside list", &Session{Role: RoleAdmin, Access: []string{"ev1"}}, "ev9", false},
		{"admin without access list", &Session{Role: RoleAdmin}, "ev1", false},
		{"volunteer never manages", &Session{Role: RoleVolunteer, Access: []string{"ev1"}}, "ev1", false},
		{"participant never manages", &Session{Role: RoleParticipant}, "ev1", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.session.CanManage(tc.eventID); got != tc.want {
				t.Errorf("CanManage(%q) = %v, want %v", tc.eventID, got, tc.want)
			}
		})
	}
}
