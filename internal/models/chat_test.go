package models

import "testing"

func TestChatKind_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		kind     ChatKind
		expected bool
	}{
		{name: "group", kind: ChatKindGroup, expected: true},
		{name: "direct", kind: ChatKindDirect, expected: true},
		{name: "unknown value", kind: ChatKind("channel"), expected: false},
		{name: "empty string", kind: ChatKind(""), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.IsValid(); got != tt.expected {
				t.Errorf("IsValid() for kind %q got = %v, want %v", tt.kind, got, tt.expected)
			}
		})
	}
}

func TestRole_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{name: "member", role: RoleMember, expected: true},
		{name: "admin", role: RoleAdmin, expected: true},
		{name: "unknown value", role: Role("owner"), expected: false},
		{name: "empty string", role: Role(""), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.IsValid(); got != tt.expected {
				t.Errorf("IsValid() for role %q got = %v, want %v", tt.role, got, tt.expected)
			}
		})
	}
}

func TestRole_Elevated(t *testing.T) {
	if RoleMember.Elevated() {
		t.Error("member role must not be elevated")
	}
	if !RoleAdmin.Elevated() {
		t.Error("admin role must be elevated")
	}
}
