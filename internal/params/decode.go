// Package params decodes, defaults and validates ParameterSets at the
// boundary between callers and the command builder.
package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/me/rfdiff/pkg/model"
	"gopkg.in/yaml.v3"
)

// Format is a job document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath guesses the encoding from a file extension.
// Anything that is not .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Decode reads a job document on top of the default ParameterSet.
// Unknown keys are rejected so misspelled parameters do not pass silently.
func Decode(r io.Reader, format Format) (model.ParameterSet, error) {
	ps := model.DefaultParameterSet()

	data, err := io.ReadAll(r)
	if err != nil {
		return ps, fmt.Errorf("read job: %w", err)
	}

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&ps); err != nil {
			return ps, fmt.Errorf("parse job json: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&ps); err != nil && err != io.EOF {
			return ps, fmt.Errorf("parse job yaml: %w", err)
		}
	}

	ApplyDefaults(&ps)
	return ps, nil
}

// LoadFile decodes the job document at path.
func LoadFile(path string) (model.ParameterSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.ParameterSet{}, fmt.Errorf("open job file: %w", err)
	}
	defer f.Close()
	return Decode(f, FormatFromPath(path))
}

// ApplyDefaults fills the guide decay when it was left empty and trims
// whitespace from free-form strings. Blank guiding potentials are dropped.
func ApplyDefaults(ps *model.ParameterSet) {
	if ps.PotentialsGuideDecay == "" {
		ps.PotentialsGuideDecay = model.GuideDecayConstant
	}

	for _, s := range []*string{
		&ps.RunName, &ps.OutputDirectory, &ps.ContigString, &ps.ContigLength, &ps.ContigProvideSeq,
		&ps.ContigInpaintStr, &ps.ContigInpaintStrHelix, &ps.ContigInpaintStrStrand,
		&ps.HotspotResiduesBinder, &ps.HotspotResiduesMotif, &ps.HotspotResiduesPPI,
		&ps.PotentialsSubstrate,
	} {
		*s = strings.TrimSpace(*s)
	}

	// Blank potentials entries are dropped; the others are joined verbatim.
	if len(ps.GuidingPotentials) > 0 {
		kept := make([]string, 0, len(ps.GuidingPotentials))
		for _, p := range ps.GuidingPotentials {
			if strings.TrimSpace(p) != "" {
				kept = append(kept, p)
			}
		}
		ps.GuidingPotentials = kept
	}
}
