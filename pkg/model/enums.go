package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Symmetry names the point group used for oligomer generation.
// The zero value means no symmetry.
type Symmetry string

const (
	SymmetryNone        Symmetry = ""
	SymmetryCyclic4     Symmetry = "C4"
	SymmetryCyclic6     Symmetry = "C6"
	SymmetryDihedral2   Symmetry = "D2"
	SymmetryDihedral4   Symmetry = "D4"
	SymmetryTetrahedral Symmetry = "tetrahedral"
	SymmetryOctahedral  Symmetry = "octahedral"
	SymmetryIcosahedral Symmetry = "icosahedral"
)

// cyclic and dihedral groups of any order are accepted by the tool.
var orderedSymmetry = regexp.MustCompile(`^[CD][1-9][0-9]*$`)

// ParseSymmetry converts a symmetry name to a Symmetry.
// Cyclic and dihedral orders are case-insensitive on the leading letter.
func ParseSymmetry(s string) (Symmetry, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SymmetryNone, nil
	}
	switch strings.ToLower(s) {
	case "tetrahedral":
		return SymmetryTetrahedral, nil
	case "octahedral":
		return SymmetryOctahedral, nil
	case "icosahedral":
		return SymmetryIcosahedral, nil
	}
	up := strings.ToUpper(s[:1]) + s[1:]
	if orderedSymmetry.MatchString(up) {
		return Symmetry(up), nil
	}
	return SymmetryNone, fmt.Errorf("unknown symmetry %q", s)
}

// IsSet reports whether a symmetry was supplied.
func (s Symmetry) IsSet() bool {
	return s != SymmetryNone
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Symmetry) UnmarshalText(text []byte) error {
	v, err := ParseSymmetry(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// GuideDecay is the schedule used to decay guiding potentials over the trajectory.
type GuideDecay string

const (
	GuideDecayConstant  GuideDecay = "constant"
	GuideDecayLinear    GuideDecay = "linear"
	GuideDecayQuadratic GuideDecay = "quadratic"
	GuideDecayCubic     GuideDecay = "cubic"
)

// GuideDecays lists every decay type in canonical order.
var GuideDecays = []GuideDecay{GuideDecayConstant, GuideDecayLinear, GuideDecayQuadratic, GuideDecayCubic}

// ParseGuideDecay converts a decay name to a GuideDecay.
// An empty string yields the constant schedule.
func ParseGuideDecay(s string) (GuideDecay, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return GuideDecayConstant, nil
	}
	for _, d := range GuideDecays {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown guide decay %q (want constant, linear, quadratic or cubic)", s)
}

// String returns the canonical lowercase name.
func (d GuideDecay) String() string {
	if d == "" {
		return string(GuideDecayConstant)
	}
	return string(d)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *GuideDecay) UnmarshalText(text []byte) error {
	v, err := ParseGuideDecay(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
