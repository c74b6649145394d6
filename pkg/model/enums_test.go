package model

import (
	"encoding/json"
	"testing"
)

func TestParseSymmetry(t *testing.T) {
	tests := []struct {
		in      string
		want    Symmetry
		wantErr bool
	}{
		{"", SymmetryNone, false},
		{"C4", SymmetryCyclic4, false},
		{"c6", SymmetryCyclic6, false},
		{"D2", SymmetryDihedral2, false},
		{"C12", Symmetry("C12"), false},
		{"Tetrahedral", SymmetryTetrahedral, false},
		{"octahedral", SymmetryOctahedral, false},
		{"C0", SymmetryNone, true},
		{"helical", SymmetryNone, true},
	}
	for _, tt := range tests {
		got, err := ParseSymmetry(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSymmetry(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSymmetry(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseGuideDecay(t *testing.T) {
	for _, d := range GuideDecays {
		got, err := ParseGuideDecay(string(d))
		if err != nil || got != d {
			t.Errorf("ParseGuideDecay(%q) = %q, %v", d, got, err)
		}
	}
	if got, _ := ParseGuideDecay(""); got != GuideDecayConstant {
		t.Errorf("ParseGuideDecay(\"\") = %q, want constant", got)
	}
	if got, _ := ParseGuideDecay("CUBIC"); got != GuideDecayCubic {
		t.Errorf("ParseGuideDecay(CUBIC) = %q, want cubic", got)
	}
	if _, err := ParseGuideDecay("exponential"); err == nil {
		t.Error("expected error for unknown decay")
	}
}

func TestParameterSet_JSONEnums(t *testing.T) {
	ps := DefaultParameterSet()
	data := `{"run_name":"x","symmetry_gen":"c4","potentials_guide_decay":"quadratic"}`
	if err := json.Unmarshal([]byte(data), &ps); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if ps.SymmetryGen != SymmetryCyclic4 {
		t.Errorf("SymmetryGen = %q, want C4", ps.SymmetryGen)
	}
	if ps.PotentialsGuideDecay != GuideDecayQuadratic {
		t.Errorf("PotentialsGuideDecay = %q, want quadratic", ps.PotentialsGuideDecay)
	}
	if ps.FinalStep != DefaultFinalStep {
		t.Errorf("FinalStep = %d, want default %d", ps.FinalStep, DefaultFinalStep)
	}

	if err := json.Unmarshal([]byte(`{"potentials_guide_decay":"steep"}`), &ps); err == nil {
		t.Error("expected error for unknown decay")
	}
}

func TestParameterSet_Clone(t *testing.T) {
	ps := DefaultParameterSet()
	ps.PartialT = IntPtr(10)
	ps.GuidingPotentials = []string{"type:olig_contacts"}

	c := ps.Clone()
	*c.PartialT = 20
	c.GuidingPotentials[0] = "changed"

	if *ps.PartialT != 10 {
		t.Errorf("PartialT mutated through clone: %d", *ps.PartialT)
	}
	if ps.GuidingPotentials[0] != "type:olig_contacts" {
		t.Errorf("GuidingPotentials mutated through clone: %v", ps.GuidingPotentials)
	}
}
