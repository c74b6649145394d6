// Package cmdline builds the structure generator's command line from a ParameterSet.
package cmdline

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/me/rfdiff/pkg/model"
)

// Config holds the fixed parts of the command line.
type Config struct {
	// Prefix selects the execution environment and the inference script,
	// e.g. conda run --name SE3nv python run_inference.py.
	Prefix []string

	// OutputRoot is the local directory that holds one subdirectory per run.
	OutputRoot string
}

// DefaultConfig matches the layout of the GPU image the tool ships in.
func DefaultConfig() Config {
	return Config{
		Prefix: []string{
			"/root/miniconda/bin/conda",
			"run",
			"--name",
			"SE3nv",
			"python",
			"/tmp/docker-build/work/RFdiffusion/scripts/run_inference.py",
		},
		OutputRoot: "/root/outputs",
	}
}

// Builder turns ParameterSets into token lists. It holds no mutable state.
type Builder struct {
	cfg Config
}

// NewBuilder creates a Builder with the given configuration.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// RunDir returns the local output directory for a run.
func (b *Builder) RunDir(runName string) string {
	return filepath.Join(b.cfg.OutputRoot, runName)
}

// OutputRoot returns the directory published as the run's output location.
func (b *Builder) OutputRoot() string {
	return b.cfg.OutputRoot
}

// Build returns the ordered token list for ps. The result is deterministic
// for a given input; tokens for the same key never appear twice.
func (b *Builder) Build(ps model.ParameterSet) ([]string, error) {
	eff, err := Resolve(ps)
	if err != nil {
		return nil, err
	}

	cmd := make([]string, 0, len(b.cfg.Prefix)+24)
	cmd = append(cmd, b.cfg.Prefix...)

	cmd = append(cmd,
		"contigmap.contigs="+listValue(ps.ContigString),
		"inference.output_prefix="+filepath.Join(b.RunDir(ps.RunName), ps.RunName),
		"inference.num_designs="+strconv.Itoa(ps.NumDesigns),
	)

	cmd = appendIf(cmd, ps.InputPDB != "", "inference.input_pdb="+ps.InputPDB)

	cmd = appendList(cmd, "contigmap.length", ps.ContigLength)
	cmd = appendList(cmd, "contigmap.provide_seq", ps.ContigProvideSeq)
	cmd = appendList(cmd, "contigmap.inpaint_str", ps.ContigInpaintStr)
	cmd = appendList(cmd, "contigmap.inpaint_str_helix", ps.ContigInpaintStrHelix)
	cmd = appendList(cmd, "contigmap.inpaint_str_strand", ps.ContigInpaintStrStrand)

	cmd = appendList(cmd, "ppi.hotspot_res", eff.Hotspots)

	cmd = appendIf(cmd, eff.ScaffoldGuided, "scaffoldguided.scaffoldguided=True")
	cmd = appendIf(cmd, eff.TargetPDB, "scaffoldguided.target_pdb=True")
	cmd = appendIf(cmd, eff.MaskLoops, "scaffoldguided.mask_loops=True")
	cmd = appendIf(cmd, ps.ScaffoldDir != "", "scaffoldguided.scaffold_dir="+ps.ScaffoldDir)
	cmd = appendIf(cmd, ps.TargetPath != "", "scaffoldguided.target_path="+ps.TargetPath)
	cmd = appendIf(cmd, ps.TargetSS != "", "scaffoldguided.target_ss="+ps.TargetSS)
	cmd = appendIf(cmd, ps.TargetAdj != "", "scaffoldguided.target_adj="+ps.TargetAdj)

	cmd = appendIf(cmd, eff.Symmetry.IsSet(), "inference.symmetry="+string(eff.Symmetry))

	if ps.PartialT != nil {
		cmd = append(cmd, "diffuser.partial_T="+strconv.Itoa(*ps.PartialT))
	}

	cmd = append(cmd,
		"diffuser.T="+strconv.Itoa(ps.FinalStep),
		"denoiser.noise_scale_ca="+formatFloat(ps.NoiseScaleCA),
		"denoiser.noise_scale_frame="+formatFloat(ps.NoiseScaleFrame),
	)

	if len(ps.GuidingPotentials) > 0 {
		cmd = append(cmd, `potentials.guiding_potentials=["`+strings.Join(ps.GuidingPotentials, ",")+`"]`)
	}
	cmd = appendIf(cmd, ps.PotentialsOligIntraAll, "potentials.olig_intra_all=True")
	cmd = appendIf(cmd, ps.PotentialsOligInterAll, "potentials.olig_inter_all=True")
	cmd = appendIf(cmd, ps.PotentialsSubstrate != "", "potentials.substrate="+ps.PotentialsSubstrate)

	cmd = append(cmd,
		"potentials.guide_scale="+formatFloat(ps.PotentialsGuideScale),
		"potentials.guide_decay="+ps.PotentialsGuideDecay.String(),
	)

	cmd = appendIf(cmd, ps.CkptOverridePath != "", "inference.ckpt_override_path="+ps.CkptOverridePath)

	return cmd, nil
}

func appendIf(cmd []string, cond bool, token string) []string {
	if !cond {
		return cmd
	}
	return append(cmd, token)
}

// appendList appends key=[value] when value is non-empty.
func appendList(cmd []string, key, value string) []string {
	if value == "" {
		return cmd
	}
	return append(cmd, key+"="+listValue(value))
}

func listValue(v string) string {
	return "[" + v + "]"
}

// formatFloat renders v the way the tool's Python front end prints floats:
// shortest round-trip digits, positional with at least one fractional digit
// for decimal exponents in [-4, 16), scientific otherwise (1e-05, 1e+16).
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
