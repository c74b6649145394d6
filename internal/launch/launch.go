// Package launch starts the structure generator, on the host or inside a
// GPU-enabled container, streaming its combined output.
package launch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"

	"github.com/me/rfdiff/pkg/model"
)

// Runtime executes a command, optionally inside a container.
type Runtime interface {
	Name() model.RuntimeType
	Run(ctx context.Context, spec Spec) (Result, error)
}

// Spec describes what to execute.
type Spec struct {
	Image   string            // Container image (empty for bare execution)
	Command []string          // Command and arguments
	WorkDir string            // Working directory on the host
	Volumes map[string]string // host:container mount pairs
	GPU     GPUConfig         // GPU configuration
	Env     map[string]string // Environment variables
	Output  io.Writer         // Receives combined stdout and stderr; nil discards
}

// GPUConfig specifies GPU requirements for container execution.
type GPUConfig struct {
	Enabled  bool   // Whether to enable GPU access
	DeviceID string // Specific GPU device (e.g., "0", "1", "0,1") - empty means all
}

// Result captures the outcome of an execution.
// A non-zero ExitCode is not an error.
type Result struct {
	ExitCode int
}

// CommandRunner abstracts process execution for testing.
// err is non-nil only when the process could not be run at all.
type CommandRunner interface {
	Run(ctx context.Context, dir string, env []string, out io.Writer, name string, args ...string) (exitCode int, err error)
}

// osCommandRunner is the real implementation using os/exec.
type osCommandRunner struct{}

func (r *osCommandRunner) Run(ctx context.Context, dir string, env []string, out io.Writer, name string, args ...string) (int, error) {
	if out == nil {
		out = io.Discard
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	// Same writer for both streams keeps the interleaving of the tool's output.
	cmd.Stdout = out
	cmd.Stderr = out

	runErr := cmd.Run()
	switch e := runErr.(type) {
	case nil:
		return 0, nil
	case *exec.ExitError:
		return e.ExitCode(), nil
	default:
		return -1, runErr
	}
}

// BareRuntime executes commands directly on the host.
type BareRuntime struct {
	runner CommandRunner
}

// NewBareRuntime creates a BareRuntime.
func NewBareRuntime() *BareRuntime {
	return &BareRuntime{runner: &osCommandRunner{}}
}

// NewBareRuntimeWithRunner creates a BareRuntime using runner.
func NewBareRuntimeWithRunner(runner CommandRunner) *BareRuntime {
	return &BareRuntime{runner: runner}
}

func (r *BareRuntime) Name() model.RuntimeType { return model.RuntimeNone }

func (r *BareRuntime) Run(ctx context.Context, spec Spec) (Result, error) {
	if len(spec.Command) == 0 {
		return Result{}, fmt.Errorf("bare runtime: empty command")
	}

	var env []string
	for _, k := range sortedKeys(spec.Env) {
		env = append(env, k+"="+spec.Env[k])
	}
	if spec.GPU.Enabled && spec.GPU.DeviceID != "" {
		env = append(env, "CUDA_VISIBLE_DEVICES="+spec.GPU.DeviceID)
	}

	exitCode, err := r.runner.Run(ctx, spec.WorkDir, env, spec.Output, spec.Command[0], spec.Command[1:]...)
	if err != nil {
		return Result{ExitCode: exitCode}, fmt.Errorf("bare runtime: %w", err)
	}
	return Result{ExitCode: exitCode}, nil
}

// DockerRuntime executes commands inside Docker containers.
type DockerRuntime struct {
	runner CommandRunner
}

// NewDockerRuntime creates a DockerRuntime.
func NewDockerRuntime() *DockerRuntime {
	return &DockerRuntime{runner: &osCommandRunner{}}
}

// NewDockerRuntimeWithRunner creates a DockerRuntime using runner.
func NewDockerRuntimeWithRunner(runner CommandRunner) *DockerRuntime {
	return &DockerRuntime{runner: runner}
}

func (r *DockerRuntime) Name() model.RuntimeType { return model.RuntimeDocker }

func (r *DockerRuntime) Run(ctx context.Context, spec Spec) (Result, error) {
	if spec.Image == "" {
		return Result{}, fmt.Errorf("docker runtime: image is required")
	}
	if len(spec.Command) == 0 {
		return Result{}, fmt.Errorf("docker runtime: empty command")
	}

	args := []string{"run", "--rm"}

	// GPU support: use --gpus for NVIDIA GPU passthrough.
	if spec.GPU.Enabled {
		if spec.GPU.DeviceID != "" {
			args = append(args, "--gpus", fmt.Sprintf(`"device=%s"`, spec.GPU.DeviceID))
			args = append(args, "-e", "CUDA_VISIBLE_DEVICES="+spec.GPU.DeviceID)
		} else {
			args = append(args, "--gpus", "all")
		}
	}

	for _, k := range sortedKeys(spec.Env) {
		args = append(args, "-e", k+"="+spec.Env[k])
	}

	// The output root is mounted at the same path so tokens stay valid inside.
	if spec.WorkDir != "" {
		args = append(args, "-v", spec.WorkDir+":"+spec.WorkDir, "-w", spec.WorkDir)
	}
	for _, hostPath := range sortedKeys(spec.Volumes) {
		args = append(args, "-v", hostPath+":"+spec.Volumes[hostPath])
	}

	args = append(args, spec.Image)
	args = append(args, spec.Command...)

	exitCode, err := r.runner.Run(ctx, "", nil, spec.Output, "docker", args...)
	if err != nil {
		return Result{ExitCode: exitCode}, fmt.Errorf("docker runtime: %w", err)
	}
	return Result{ExitCode: exitCode}, nil
}

// ApptainerRuntime executes commands inside Apptainer (Singularity) containers.
type ApptainerRuntime struct {
	runner CommandRunner
}

// NewApptainerRuntime creates an ApptainerRuntime.
func NewApptainerRuntime() *ApptainerRuntime {
	return &ApptainerRuntime{runner: &osCommandRunner{}}
}

// NewApptainerRuntimeWithRunner creates an ApptainerRuntime using runner.
func NewApptainerRuntimeWithRunner(runner CommandRunner) *ApptainerRuntime {
	return &ApptainerRuntime{runner: runner}
}

func (r *ApptainerRuntime) Name() model.RuntimeType { return model.RuntimeApptainer }

func (r *ApptainerRuntime) Run(ctx context.Context, spec Spec) (Result, error) {
	if spec.Image == "" {
		return Result{}, fmt.Errorf("apptainer runtime: image is required")
	}
	if len(spec.Command) == 0 {
		return Result{}, fmt.Errorf("apptainer runtime: empty command")
	}

	args := []string{"exec"}

	// GPU support: use --nv for NVIDIA GPU passthrough.
	if spec.GPU.Enabled {
		args = append(args, "--nv")
		if spec.GPU.DeviceID != "" {
			args = append(args, "--env", "CUDA_VISIBLE_DEVICES="+spec.GPU.DeviceID)
		}
	}

	for _, k := range sortedKeys(spec.Env) {
		args = append(args, "--env", k+"="+spec.Env[k])
	}

	if spec.WorkDir != "" {
		args = append(args, "--bind", spec.WorkDir+":"+spec.WorkDir, "--pwd", spec.WorkDir)
	}
	for _, hostPath := range sortedKeys(spec.Volumes) {
		args = append(args, "--bind", hostPath+":"+spec.Volumes[hostPath])
	}

	// Image (convert Docker reference to Apptainer format).
	args = append(args, "docker://"+spec.Image)
	args = append(args, spec.Command...)

	exitCode, err := r.runner.Run(ctx, "", nil, spec.Output, "apptainer", args...)
	if err != nil {
		return Result{ExitCode: exitCode}, fmt.Errorf("apptainer runtime: %w", err)
	}
	return Result{ExitCode: exitCode}, nil
}

// New creates a Runtime based on the runtime name.
func New(name model.RuntimeType) (Runtime, error) {
	switch name {
	case model.RuntimeDocker:
		return NewDockerRuntime(), nil
	case model.RuntimeApptainer:
		return NewApptainerRuntime(), nil
	case model.RuntimeNone, "":
		return NewBareRuntime(), nil
	default:
		return nil, fmt.Errorf("unknown runtime: %s", name)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
