package launch

import (
	"context"
	"fmt"
	"strings"
)

// DefaultProbeCommands print the GPU driver and CUDA toolkit versions.
var DefaultProbeCommands = [][]string{
	{"nvidia-smi"},
	{"nvcc", "--version"},
}

// Probe runs each command through rt in the environment described by base
// and fails on the first that cannot start or exits non-zero. Probes see the
// same image and GPU devices as the tool itself.
func Probe(ctx context.Context, rt Runtime, base Spec, commands [][]string) error {
	for _, c := range commands {
		if len(c) == 0 {
			continue
		}
		spec := base
		spec.Command = c
		res, err := rt.Run(ctx, spec)
		if err != nil {
			return fmt.Errorf("%s: %w", strings.Join(c, " "), err)
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("%s: exit code %d", strings.Join(c, " "), res.ExitCode)
		}
	}
	return nil
}
