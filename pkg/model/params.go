package model

// Default values applied to every ParameterSet before caller input.
const (
	DefaultFinalStep       = 50
	DefaultNoiseScaleCA    = 1.0
	DefaultNoiseScaleFrame = 1.0
	DefaultGuideScale      = 1.0
)

// ParameterSet is the full set of inputs for one structure generation run.
// File-typed fields hold locations; by the time the command builder sees
// them they have been staged to local paths.
type ParameterSet struct {
	// Identity
	RunName         string `json:"run_name" yaml:"run_name"`
	OutputDirectory string `json:"output_directory,omitempty" yaml:"output_directory,omitempty"`
	NumDesigns      int    `json:"num_designs" yaml:"num_designs"`

	// Geometry
	ContigString           string `json:"contig_string" yaml:"contig_string"`
	ContigLength           string `json:"contig_length,omitempty" yaml:"contig_length,omitempty"`
	ContigProvideSeq       string `json:"contig_provide_seq,omitempty" yaml:"contig_provide_seq,omitempty"`
	ContigInpaintStr       string `json:"contig_inpaint_str,omitempty" yaml:"contig_inpaint_str,omitempty"`
	ContigInpaintStrHelix  string `json:"contig_inpaint_str_helix,omitempty" yaml:"contig_inpaint_str_helix,omitempty"`
	ContigInpaintStrStrand string `json:"contig_inpaint_str_strand,omitempty" yaml:"contig_inpaint_str_strand,omitempty"`
	InputPDB               string `json:"input_pdb,omitempty" yaml:"input_pdb,omitempty"`

	// Symmetry
	SymmetryGen   Symmetry `json:"symmetry_gen,omitempty" yaml:"symmetry_gen,omitempty"`
	SymmetryMotif Symmetry `json:"symmetry_motif,omitempty" yaml:"symmetry_motif,omitempty"`

	// Hotspots
	HotspotResiduesBinder string `json:"hotspot_residues_binder,omitempty" yaml:"hotspot_residues_binder,omitempty"`
	HotspotResiduesMotif  string `json:"hotspot_residues_motif,omitempty" yaml:"hotspot_residues_motif,omitempty"`
	HotspotResiduesPPI    string `json:"hotspot_residues_ppi,omitempty" yaml:"hotspot_residues_ppi,omitempty"`

	// Scaffolding
	ScaffoldDir             string `json:"scaffold_dir,omitempty" yaml:"scaffold_dir,omitempty"`
	TargetPath              string `json:"target_path,omitempty" yaml:"target_path,omitempty"`
	TargetSS                string `json:"target_ss,omitempty" yaml:"target_ss,omitempty"`
	TargetAdj               string `json:"target_adj,omitempty" yaml:"target_adj,omitempty"`
	ScaffoldGuided          bool   `json:"scaffoldguided,omitempty" yaml:"scaffoldguided,omitempty"`
	ScaffoldGuidedMaskLoops bool   `json:"scaffoldguided_mask_loops,omitempty" yaml:"scaffoldguided_mask_loops,omitempty"`
	ScaffoldGuidedTargetPDB bool   `json:"scaffoldguided_target_pdb,omitempty" yaml:"scaffoldguided_target_pdb,omitempty"`

	// Diffusion control
	PartialT        *int    `json:"partial_T,omitempty" yaml:"partial_T,omitempty"`
	FinalStep       int     `json:"final_step" yaml:"final_step"`
	NoiseScaleCA    float64 `json:"noise_scale_ca" yaml:"noise_scale_ca"`
	NoiseScaleFrame float64 `json:"noise_scale_frame" yaml:"noise_scale_frame"`

	// Potentials
	GuidingPotentials      []string   `json:"guiding_potentials,omitempty" yaml:"guiding_potentials,omitempty"`
	PotentialsOligIntraAll bool       `json:"potentials_olig_intra_all,omitempty" yaml:"potentials_olig_intra_all,omitempty"`
	PotentialsOligInterAll bool       `json:"potentials_olig_inter_all,omitempty" yaml:"potentials_olig_inter_all,omitempty"`
	PotentialsGuideScale   float64    `json:"potentials_guide_scale" yaml:"potentials_guide_scale"`
	PotentialsSubstrate    string     `json:"potentials_substrate,omitempty" yaml:"potentials_substrate,omitempty"`
	PotentialsGuideDecay   GuideDecay `json:"potentials_guide_decay" yaml:"potentials_guide_decay"`

	// Checkpoint override
	CkptOverridePath string `json:"ckpt_override_path,omitempty" yaml:"ckpt_override_path,omitempty"`
}

// DefaultParameterSet returns a ParameterSet holding every default value.
// Decoders unmarshal caller input on top of it.
func DefaultParameterSet() ParameterSet {
	return ParameterSet{
		FinalStep:            DefaultFinalStep,
		NoiseScaleCA:         DefaultNoiseScaleCA,
		NoiseScaleFrame:      DefaultNoiseScaleFrame,
		PotentialsGuideScale: DefaultGuideScale,
		PotentialsGuideDecay: GuideDecayConstant,
	}
}

// FileRef points at one file-typed field of a ParameterSet.
type FileRef struct {
	Name  string
	Value *string
	Dir   bool
}

// Files returns references to every file-typed field, in declaration order.
// Staging rewrites the values in place.
func (p *ParameterSet) Files() []FileRef {
	return []FileRef{
		{Name: "input_pdb", Value: &p.InputPDB},
		{Name: "scaffold_dir", Value: &p.ScaffoldDir, Dir: true},
		{Name: "target_path", Value: &p.TargetPath},
		{Name: "target_ss", Value: &p.TargetSS},
		{Name: "target_adj", Value: &p.TargetAdj},
		{Name: "ckpt_override_path", Value: &p.CkptOverridePath},
	}
}

// Clone returns a deep copy.
func (p ParameterSet) Clone() ParameterSet {
	c := p
	if p.PartialT != nil {
		v := *p.PartialT
		c.PartialT = &v
	}
	if p.GuidingPotentials != nil {
		c.GuidingPotentials = append([]string(nil), p.GuidingPotentials...)
	}
	return c
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
