package params

import "github.com/me/rfdiff/pkg/model"

// Group is a semantic group of parameters.
type Group string

const (
	GroupIdentity   Group = "identity"
	GroupGeometry   Group = "geometry"
	GroupSymmetry   Group = "symmetry"
	GroupHotspots   Group = "hotspots"
	GroupScaffold   Group = "scaffolding"
	GroupDiffusion  Group = "diffusion"
	GroupPotentials Group = "potentials"
	GroupCheckpoint Group = "checkpoint"
)

// Parameter describes one input parameter for UIs and help output.
type Parameter struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Group       Group    `json:"group"`
	Required    bool     `json:"required,omitempty"`
	Default     any      `json:"default,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
}

// Catalog returns the descriptor of every parameter, grouped in the order
// the command builder consumes them.
func Catalog() []Parameter {
	decays := make([]string, len(model.GuideDecays))
	for i, d := range model.GuideDecays {
		decays[i] = string(d)
	}
	symmetries := []string{"C4", "C6", "D2", "D4", "tetrahedral", "octahedral", "icosahedral"}

	return []Parameter{
		{Name: "run_name", DisplayName: "Run Name", Description: "Name of the run", Type: "string", Group: GroupIdentity, Required: true, Pattern: runNamePattern.String()},
		{Name: "output_directory", DisplayName: "Output Directory", Description: "Directory to save output files", Type: "dir", Group: GroupIdentity},
		{Name: "num_designs", DisplayName: "Number of Designs", Description: "Number of designs to generate", Type: "int", Group: GroupIdentity, Required: true},

		{Name: "contig_string", DisplayName: "Contig String", Description: "Contig string specifying protein design (e.g., '5-15/A10-25/30-40')", Type: "string", Group: GroupGeometry, Required: true},
		{Name: "contig_length", DisplayName: "Contig Length", Description: "Total length range of the designed chain (e.g., '100-120')", Type: "string", Group: GroupGeometry},
		{Name: "contig_provide_seq", DisplayName: "Provided Sequence", Description: "Residue ranges whose sequence is kept during partial diffusion", Type: "string", Group: GroupGeometry},
		{Name: "contig_inpaint_str", DisplayName: "Inpaint Structure", Description: "Residue ranges whose structure is masked", Type: "string", Group: GroupGeometry},
		{Name: "contig_inpaint_str_helix", DisplayName: "Inpaint as Helix", Description: "Masked ranges to be built as helix", Type: "string", Group: GroupGeometry},
		{Name: "contig_inpaint_str_strand", DisplayName: "Inpaint as Strand", Description: "Masked ranges to be built as strand", Type: "string", Group: GroupGeometry},
		{Name: "input_pdb", DisplayName: "Input PDB File", Description: "PDB file for motif scaffolding or binder design", Type: "file", Group: GroupGeometry},

		{Name: "symmetry_gen", DisplayName: "Symmetry Type", Description: "Type of symmetry for oligomer design", Type: "enum", Group: GroupSymmetry, Choices: symmetries},
		{Name: "symmetry_motif", DisplayName: "Motif Symmetry", Description: "Symmetry of the scaffolded motif; must match symmetry_gen when both are set", Type: "enum", Group: GroupSymmetry, Choices: symmetries},

		{Name: "hotspot_residues_binder", DisplayName: "Hotspot Residues", Description: "List of hotspot residues for binder design (e.g., 'A30,A33,A34')", Type: "string", Group: GroupHotspots},
		{Name: "hotspot_residues_motif", DisplayName: "Motif Hotspot Residues", Description: "Hotspot residues for motif scaffolding; overrides binder hotspots", Type: "string", Group: GroupHotspots},
		{Name: "hotspot_residues_ppi", DisplayName: "PPI Hotspot Residues", Description: "Hotspot residues for interface design; overrides the other hotspot fields", Type: "string", Group: GroupHotspots},

		{Name: "scaffoldguided", DisplayName: "Use Scaffold Guiding", Description: "Enable scaffold-guided design", Type: "bool", Group: GroupScaffold, Default: false},
		{Name: "scaffold_dir", DisplayName: "Scaffold Directory", Description: "Directory containing scaffold files for guided design; enables scaffold guiding", Type: "dir", Group: GroupScaffold},
		{Name: "scaffoldguided_mask_loops", DisplayName: "Mask Loops", Description: "Mask loops in scaffold-guided design", Type: "bool", Group: GroupScaffold, Default: false},
		{Name: "scaffoldguided_target_pdb", DisplayName: "Target PDB", Description: "Design against a target structure", Type: "bool", Group: GroupScaffold, Default: false},
		{Name: "target_path", DisplayName: "Target Path", Description: "Target structure for scaffold-guided binder design; enables target_pdb", Type: "file", Group: GroupScaffold},
		{Name: "target_ss", DisplayName: "Target Secondary Structure", Description: "Secondary structure tensor of the target", Type: "file", Group: GroupScaffold},
		{Name: "target_adj", DisplayName: "Target Adjacency", Description: "Block adjacency tensor of the target", Type: "file", Group: GroupScaffold},

		{Name: "partial_T", DisplayName: "Partial Diffusion Timestep", Description: "Timestep for partial diffusion (if enabled)", Type: "int", Group: GroupDiffusion},
		{Name: "final_step", DisplayName: "Final Diffusion Step", Description: "Final step for the diffusion trajectory", Type: "int", Group: GroupDiffusion, Default: model.DefaultFinalStep},
		{Name: "noise_scale_ca", DisplayName: "Noise Scale (CA)", Description: "Noise scale for translations", Type: "float", Group: GroupDiffusion, Default: model.DefaultNoiseScaleCA},
		{Name: "noise_scale_frame", DisplayName: "Noise Scale (Frame)", Description: "Noise scale for rotations", Type: "float", Group: GroupDiffusion, Default: model.DefaultNoiseScaleFrame},

		{Name: "guiding_potentials", DisplayName: "Guiding Potentials", Description: "Guiding potential terms, joined verbatim (e.g., 'type:olig_contacts', 'weight_intra:1')", Type: "list", Group: GroupPotentials},
		{Name: "potentials_olig_intra_all", DisplayName: "Intra-chain Contacts (All)", Description: "Apply the intra-chain contact potential to all chains", Type: "bool", Group: GroupPotentials, Default: false},
		{Name: "potentials_olig_inter_all", DisplayName: "Inter-chain Contacts (All)", Description: "Apply the inter-chain contact potential to all chain pairs", Type: "bool", Group: GroupPotentials, Default: false},
		{Name: "potentials_guide_scale", DisplayName: "Guide Scale", Description: "Scale applied to guiding potentials", Type: "float", Group: GroupPotentials, Default: model.DefaultGuideScale},
		{Name: "potentials_guide_decay", DisplayName: "Guide Decay", Description: "Decay schedule of guiding potentials", Type: "enum", Group: GroupPotentials, Default: string(model.GuideDecayConstant), Choices: decays},
		{Name: "potentials_substrate", DisplayName: "Substrate", Description: "Ligand residue name for the substrate contacts potential", Type: "string", Group: GroupPotentials},

		{Name: "ckpt_override_path", DisplayName: "Checkpoint Override Path", Description: "Path to a specific model checkpoint (if needed)", Type: "file", Group: GroupCheckpoint},
	}
}

// Lookup returns the descriptor for name.
func Lookup(name string) (Parameter, bool) {
	for _, p := range Catalog() {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}
