package cmdline

import "github.com/me/rfdiff/pkg/model"

// Effective holds the switches and collapsed values derived from a
// ParameterSet before any token is emitted.
type Effective struct {
	// ScaffoldGuided is forced on by a scaffold directory.
	ScaffoldGuided bool
	// TargetPDB is forced on by a target path.
	TargetPDB bool
	MaskLoops bool

	// Hotspots is the single hotspot residue list forwarded to the tool.
	Hotspots string
	// HotspotSource names the field Hotspots came from.
	HotspotSource string

	Symmetry model.Symmetry
}

// Resolve derives the effective flags of ps. It fails with a
// *model.ConfigError when the generation and motif symmetries disagree.
//
// When several hotspot fields are set, the later one in binder, motif, ppi
// order wins.
func Resolve(ps model.ParameterSet) (Effective, error) {
	eff := Effective{
		ScaffoldGuided: ps.ScaffoldGuided || ps.ScaffoldDir != "",
		TargetPDB:      ps.ScaffoldGuidedTargetPDB || ps.TargetPath != "",
		MaskLoops:      ps.ScaffoldGuidedMaskLoops,
	}

	hotspots := []struct {
		field string
		value string
	}{
		{"hotspot_residues_binder", ps.HotspotResiduesBinder},
		{"hotspot_residues_motif", ps.HotspotResiduesMotif},
		{"hotspot_residues_ppi", ps.HotspotResiduesPPI},
	}
	for _, h := range hotspots {
		if h.value != "" {
			eff.Hotspots = h.value
			eff.HotspotSource = h.field
		}
	}

	sym, err := resolveSymmetry(ps.SymmetryGen, ps.SymmetryMotif)
	if err != nil {
		return Effective{}, err
	}
	eff.Symmetry = sym

	return eff, nil
}

func resolveSymmetry(gen, motif model.Symmetry) (model.Symmetry, error) {
	switch {
	case gen.IsSet() && motif.IsSet():
		if gen != motif {
			return model.SymmetryNone, model.NewConfigError("symmetry",
				"symmetry_gen (%s) and symmetry_motif (%s) must be the same if both are provided", gen, motif)
		}
		return gen, nil
	case gen.IsSet():
		return gen, nil
	default:
		return motif, nil
	}
}
