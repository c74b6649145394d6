package launch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/me/rfdiff/pkg/model"
)

// mockCommandRunner records calls and returns canned responses.
type mockCommandRunner struct {
	calls   []mockCall
	results []mockResult
	callIdx int
}

type mockCall struct {
	dir  string
	env  []string
	name string
	args []string
}

type mockResult struct {
	output   string
	exitCode int
	err      error
}

func (m *mockCommandRunner) Run(_ context.Context, dir string, env []string, out io.Writer, name string, args ...string) (int, error) {
	m.calls = append(m.calls, mockCall{dir: dir, env: env, name: name, args: args})
	if m.callIdx >= len(m.results) {
		return -1, fmt.Errorf("unexpected call %d", m.callIdx)
	}
	r := m.results[m.callIdx]
	m.callIdx++
	if out != nil {
		io.WriteString(out, r.output)
	}
	return r.exitCode, r.err
}

func containsSeq(args []string, seq ...string) bool {
	for i := 0; i+len(seq) <= len(args); i++ {
		if reflect.DeepEqual(args[i:i+len(seq)], seq) {
			return true
		}
	}
	return false
}

func TestBareRuntime_Run(t *testing.T) {
	var out bytes.Buffer
	rt := NewBareRuntime()

	result, err := rt.Run(context.Background(), Spec{
		Command: []string{"sh", "-c", "echo out; echo err 1>&2"},
		WorkDir: t.TempDir(),
		Output:  &out,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit_code = %d, want 0", result.ExitCode)
	}
	if !strings.Contains(out.String(), "out") || !strings.Contains(out.String(), "err") {
		t.Errorf("combined output = %q, want both streams", out.String())
	}
}

func TestBareRuntime_NonZeroExit(t *testing.T) {
	rt := NewBareRuntime()
	result, err := rt.Run(context.Background(), Spec{
		Command: []string{"sh", "-c", "exit 3"},
		WorkDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit_code = %d, want 3", result.ExitCode)
	}
}

func TestBareRuntime_MissingBinary(t *testing.T) {
	rt := NewBareRuntime()
	_, err := rt.Run(context.Background(), Spec{
		Command: []string{"definitely-not-a-real-binary-rfdiff"},
		WorkDir: t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestBareRuntime_EmptyCommand(t *testing.T) {
	rt := NewBareRuntime()
	if _, err := rt.Run(context.Background(), Spec{WorkDir: t.TempDir()}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestBareRuntime_GPUDevice(t *testing.T) {
	runner := &mockCommandRunner{results: []mockResult{{exitCode: 0}}}
	rt := NewBareRuntimeWithRunner(runner)

	_, err := rt.Run(context.Background(), Spec{
		Command: []string{"python", "run_inference.py"},
		WorkDir: "/root/outputs",
		Env:     map[string]string{"HYDRA_FULL_ERROR": "1"},
		GPU:     GPUConfig{Enabled: true, DeviceID: "1"},
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	call := runner.calls[0]
	wantEnv := []string{"HYDRA_FULL_ERROR=1", "CUDA_VISIBLE_DEVICES=1"}
	if !reflect.DeepEqual(call.env, wantEnv) {
		t.Errorf("env = %v, want %v", call.env, wantEnv)
	}
	if call.dir != "/root/outputs" {
		t.Errorf("dir = %q", call.dir)
	}
}

func TestDockerRuntime_Run(t *testing.T) {
	runner := &mockCommandRunner{results: []mockResult{{output: "container output\n"}}}
	rt := NewDockerRuntimeWithRunner(runner)

	var out bytes.Buffer
	result, err := rt.Run(context.Background(), Spec{
		Image:   "rfdiffusion:latest",
		Command: []string{"python", "run_inference.py"},
		WorkDir: "/root/outputs",
		Volumes: map[string]string{"/models": "/models"},
		Output:  &out,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit_code = %d, want 0", result.ExitCode)
	}
	if out.String() != "container output\n" {
		t.Errorf("output = %q", out.String())
	}

	call := runner.calls[0]
	if call.name != "docker" {
		t.Errorf("command = %q, want docker", call.name)
	}
	want := []string{
		"run", "--rm",
		"-v", "/root/outputs:/root/outputs", "-w", "/root/outputs",
		"-v", "/models:/models",
		"rfdiffusion:latest", "python", "run_inference.py",
	}
	if !reflect.DeepEqual(call.args, want) {
		t.Errorf("args = %v, want %v", call.args, want)
	}
}

func TestDockerRuntime_GPU(t *testing.T) {
	tests := []struct {
		name     string
		deviceID string
		want     []string
	}{
		{"all", "", []string{"--gpus", "all"}},
		{"specific", "0,1", []string{"--gpus", `"device=0,1"`, "-e", "CUDA_VISIBLE_DEVICES=0,1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockCommandRunner{results: []mockResult{{}}}
			rt := NewDockerRuntimeWithRunner(runner)
			_, err := rt.Run(context.Background(), Spec{
				Image:   "nvidia/cuda:12.0-base",
				Command: []string{"nvidia-smi"},
				GPU:     GPUConfig{Enabled: true, DeviceID: tt.deviceID},
			})
			if err != nil {
				t.Fatalf("Run error: %v", err)
			}
			if !containsSeq(runner.calls[0].args, tt.want...) {
				t.Errorf("args %v missing %v", runner.calls[0].args, tt.want)
			}
		})
	}
}

func TestDockerRuntime_MissingImage(t *testing.T) {
	runner := &mockCommandRunner{}
	rt := NewDockerRuntimeWithRunner(runner)
	if _, err := rt.Run(context.Background(), Spec{Command: []string{"echo"}}); err == nil {
		t.Fatal("expected error for missing image")
	}
	if len(runner.calls) != 0 {
		t.Errorf("expected no calls, got %d", len(runner.calls))
	}
}

func TestApptainerRuntime_GPU(t *testing.T) {
	runner := &mockCommandRunner{results: []mockResult{{exitCode: 1}}}
	rt := NewApptainerRuntimeWithRunner(runner)

	result, err := rt.Run(context.Background(), Spec{
		Image:   "rfdiffusion:latest",
		Command: []string{"python", "run_inference.py"},
		WorkDir: "/root/outputs",
		GPU:     GPUConfig{Enabled: true, DeviceID: "0"},
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.ExitCode != 1 {
		t.Errorf("exit_code = %d, want 1", result.ExitCode)
	}
	args := runner.calls[0].args
	for _, seq := range [][]string{
		{"exec", "--nv"},
		{"--env", "CUDA_VISIBLE_DEVICES=0"},
		{"--bind", "/root/outputs:/root/outputs", "--pwd", "/root/outputs"},
		{"docker://rfdiffusion:latest", "python", "run_inference.py"},
	} {
		if !containsSeq(args, seq...) {
			t.Errorf("args %v missing %v", args, seq)
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    model.RuntimeType
		want    model.RuntimeType
		wantErr bool
	}{
		{"", model.RuntimeNone, false},
		{model.RuntimeNone, model.RuntimeNone, false},
		{model.RuntimeDocker, model.RuntimeDocker, false},
		{model.RuntimeApptainer, model.RuntimeApptainer, false},
		{"podman", "", true},
	}
	for _, tt := range tests {
		rt, err := New(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && rt.Name() != tt.want {
			t.Errorf("New(%q).Name() = %q, want %q", tt.name, rt.Name(), tt.want)
		}
	}
}

func TestProbe(t *testing.T) {
	runner := &mockCommandRunner{results: []mockResult{
		{output: "NVIDIA-SMI 535.104\n"},
		{output: "Cuda compilation tools, release 11.8\n"},
	}}
	var out bytes.Buffer
	rt := NewBareRuntimeWithRunner(runner)
	if err := Probe(context.Background(), rt, Spec{Output: &out}, DefaultProbeCommands); err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(runner.calls))
	}
	if runner.calls[1].name != "nvcc" || !reflect.DeepEqual(runner.calls[1].args, []string{"--version"}) {
		t.Errorf("second call = %+v", runner.calls[1])
	}
	if !strings.Contains(out.String(), "NVIDIA-SMI") {
		t.Errorf("output = %q", out.String())
	}
}

func TestProbe_Failure(t *testing.T) {
	runner := &mockCommandRunner{results: []mockResult{{exitCode: 9}}}
	err := Probe(context.Background(), NewBareRuntimeWithRunner(runner), Spec{}, DefaultProbeCommands)
	if err == nil {
		t.Fatal("expected probe error")
	}
	if !strings.Contains(err.Error(), "nvidia-smi") {
		t.Errorf("error = %v, want it to name the command", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("probe should stop at first failure, calls = %d", len(runner.calls))
	}
}

func TestProbe_InsideContainer(t *testing.T) {
	runner := &mockCommandRunner{results: []mockResult{{}, {}}}
	rt := NewDockerRuntimeWithRunner(runner)
	base := Spec{Image: "rfdiffusion:latest", GPU: GPUConfig{Enabled: true}}
	if err := Probe(context.Background(), rt, base, DefaultProbeCommands); err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(runner.calls))
	}
	for _, c := range runner.calls {
		if c.name != "docker" || !containsSeq(c.args, "--gpus", "all") {
			t.Errorf("probe call = %+v, want docker with --gpus all", c)
		}
	}
	last := runner.calls[1].args
	if !containsSeq(last, "rfdiffusion:latest", "nvcc", "--version") {
		t.Errorf("args = %v", last)
	}
}
