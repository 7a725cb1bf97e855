package service

import (
	"testing"
)

func TestRolePolicy_DefaultAllowList(t *testing.T) {
	p := DefaultRolePolicy()

	for _, role := range []string{"CEO", "BU_HEAD", "RSM", "ASM", "SS", "TSM", "TDV", "ADMIN", "QL", " tdv ", "Admin"} {
		if !p.Allowed(role) {
			t.Errorf("role %q should be allowed", role)
		}
	}
	for _, role := range []string{"DRIVER", "KT", "IT", "WAREHOUSE", "FINANCE", ""} {
		if p.Allowed(role) {
			t.Errorf("role %q should be excluded", role)
		}
	}
}

func TestRolePolicy_PositionFor(t *testing.T) {
	p := DefaultRolePolicy()

	cases := map[string]string{
		"ADMIN":   PositionBUHead,
		"QL":      PositionASM,
		"TSM":     PositionSS,
		"CEO":     PositionCEO,
		"BU_HEAD": PositionBUHead,
		"RSM":     PositionRSM,
		"ASM":     PositionASM,
		"SS":      PositionSS,
		"TDV":     PositionTDV,
		"qL":      PositionASM,
	}
	for role, want := range cases {
		got, mapped := p.PositionFor(role)
		if got != want || !mapped {
			t.Errorf("PositionFor(%q) = %q (mapped=%v), want %q", role, got, mapped, want)
		}
	}
}

func TestRolePolicy_ExtraRoleFallsBackToTDV(t *testing.T) {
	base := DefaultRolePolicy()
	p := base.WithExtraRoles("kam", " ")

	if !p.Allowed("KAM") {
		t.Fatal("extra role should be allowed")
	}
	if base.Allowed("KAM") {
		t.Fatal("WithExtraRoles must not mutate the receiver")
	}
	got, mapped := p.PositionFor("KAM")
	if got != PositionTDV || mapped {
		t.Fatalf("PositionFor(KAM) = %q (mapped=%v), want fallback TDV", got, mapped)
	}
	if len(p.AllowedRoles()) != len(base.AllowedRoles())+1 {
		t.Fatalf("unexpected allow-list: %v", p.AllowedRoles())
	}
}
