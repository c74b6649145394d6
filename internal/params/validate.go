package params

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/me/rfdiff/internal/cmdline"
	"github.com/me/rfdiff/internal/stage"
	"github.com/me/rfdiff/pkg/model"
)

var runNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// chainSegment matches a contig segment anchored to a chain of the input
// structure, such as A10-25 or B5.
var chainSegment = regexp.MustCompile(`(^|[/,\s\[])[A-Z][0-9]+(-[0-9]+)?`)

// Validate checks ps and returns a *model.ConfigError listing every problem,
// or nil.
func Validate(ps model.ParameterSet) error {
	var fields []model.FieldError
	add := func(field, format string, args ...any) {
		fields = append(fields, model.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch {
	case ps.RunName == "":
		add("run_name", "required")
	case !runNamePattern.MatchString(ps.RunName):
		add("run_name", "must contain only letters, digits, underscores, and dashes")
	}

	if ps.ContigString == "" {
		add("contig_string", "required")
	} else if ps.InputPDB == "" && !IsUnconditional(ps) {
		add("input_pdb", "required when the contig string references chain segments")
	}

	if ps.OutputDirectory != "" {
		switch scheme, rest := stage.ParseLocation(ps.OutputDirectory); {
		case scheme != "" && scheme != stage.SchemeFile && scheme != stage.SchemeS3:
			add("output_directory", "unsupported scheme %q (want a path, file:// or s3://)", scheme)
		case scheme != stage.SchemeS3 && !filepath.IsAbs(rest):
			add("output_directory", "must be an absolute path")
		}
	}

	if ps.NumDesigns < 1 {
		add("num_designs", "must be >= 1, got %d", ps.NumDesigns)
	}
	if ps.FinalStep < 1 {
		add("final_step", "must be >= 1, got %d", ps.FinalStep)
	}
	if ps.PartialT != nil && (*ps.PartialT < 1 || *ps.PartialT > ps.FinalStep) {
		add("partial_T", "must be in [1, %d], got %d", ps.FinalStep, *ps.PartialT)
	}
	if ps.NoiseScaleCA < 0 {
		add("noise_scale_ca", "must be >= 0")
	}
	if ps.NoiseScaleFrame < 0 {
		add("noise_scale_frame", "must be >= 0")
	}

	if _, err := cmdline.Resolve(ps); err != nil {
		if cfgErr, ok := err.(*model.ConfigError); ok {
			fields = append(fields, cfgErr.Fields...)
		} else {
			add("", "%v", err)
		}
	}

	if len(fields) > 0 {
		return &model.ConfigError{Fields: fields}
	}
	return nil
}

// IsUnconditional reports whether the contig describes pure unconditional
// generation, i.e. no segment is taken from an input structure.
func IsUnconditional(ps model.ParameterSet) bool {
	return !chainSegment.MatchString(ps.ContigString)
}
