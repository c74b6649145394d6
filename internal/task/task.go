// Package task runs one structure generation job: it prepares the output
// directory, checks the GPU, stages inputs, builds and executes the command
// line, and records the outcome.
package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/me/rfdiff/internal/cmdline"
	"github.com/me/rfdiff/internal/config"
	"github.com/me/rfdiff/internal/launch"
	"github.com/me/rfdiff/internal/params"
	"github.com/me/rfdiff/internal/stage"
	"github.com/me/rfdiff/internal/store"
	"github.com/me/rfdiff/pkg/model"
)

// Options wires a Runner's collaborators.
type Options struct {
	Builder       *cmdline.Builder
	Runtime       launch.Runtime
	Image         string
	GPU           launch.GPUConfig
	ProbeCommands [][]string // Empty skips the GPU probe
	Stager        *stage.Stager
	Store         store.Store // Optional run ledger
	Policy        model.FailurePolicy
	StagingDir    string    // Parent of per-run download directories
	Output        io.Writer // Receives probe and tool output; nil discards
	Logger        *slog.Logger
}

// Runner executes ParameterSets. It is safe for concurrent use.
type Runner struct {
	opts   Options
	logger *slog.Logger

	// admit serialises the active-name check with the ledger insert.
	admit sync.Mutex
}

// NewRunner creates a Runner from explicit collaborators.
func NewRunner(opts Options) *Runner {
	if opts.Builder == nil {
		opts.Builder = cmdline.NewBuilder(cmdline.DefaultConfig())
	}
	if opts.Runtime == nil {
		opts.Runtime = launch.NewBareRuntime()
	}
	if opts.Policy == "" {
		opts.Policy = model.FailureStrict
	}
	if opts.StagingDir == "" {
		opts.StagingDir = filepath.Join(os.TempDir(), "rfdiff-staging")
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Stager == nil {
		opts.Stager = stage.NewStager(stage.ModeLocal, nil, opts.Logger)
	}
	return &Runner{opts: opts, logger: opts.Logger.With("component", "runner")}
}

// New creates a Runner from configuration.
func New(cfg config.Config, st store.Store, out io.Writer, logger *slog.Logger) (*Runner, error) {
	rt, err := launch.New(cfg.Runtime)
	if err != nil {
		return nil, err
	}
	probes := cfg.ProbeCommands
	if cfg.SkipProbe {
		probes = nil
	}
	gpu := launch.GPUConfig{Enabled: cfg.Runtime != model.RuntimeNone || cfg.GPUDevice != "", DeviceID: cfg.GPUDevice}
	return NewRunner(Options{
		Builder:       cmdline.NewBuilder(cfg.Cmdline()),
		Runtime:       rt,
		Image:         cfg.Image,
		GPU:           gpu,
		ProbeCommands: probes,
		Stager:        stage.NewStager(cfg.StageOut, stage.NewS3Backend, logger),
		Store:         st,
		Policy:        cfg.FailurePolicy,
		Output:        out,
		Logger:        logger,
	}), nil
}

// DryRun validates ps and returns the command line without executing it.
// File locations are used as given.
func (r *Runner) DryRun(ps model.ParameterSet) ([]string, error) {
	ps = ps.Clone()
	params.ApplyDefaults(&ps)
	if err := params.Validate(ps); err != nil {
		return nil, err
	}
	return r.opts.Builder.Build(ps)
}

// Run prepares and executes ps, blocking until the tool exits.
func (r *Runner) Run(ctx context.Context, ps model.ParameterSet) (*model.Run, error) {
	run, err := r.Prepare(ctx, ps)
	if err != nil {
		return nil, err
	}
	return run, r.Execute(ctx, run)
}

// Prepare validates ps and records a PENDING run. With a ledger configured
// it returns *model.RunConflictError while another run with the same name
// is PENDING or RUNNING, since both would write to the same directory.
func (r *Runner) Prepare(ctx context.Context, ps model.ParameterSet) (*model.Run, error) {
	ps = ps.Clone()
	params.ApplyDefaults(&ps)
	if err := params.Validate(ps); err != nil {
		return nil, err
	}

	run := &model.Run{
		ID:        "run_" + uuid.New().String(),
		RunName:   ps.RunName,
		State:     model.RunStatePending,
		Params:    ps,
		Runtime:   r.opts.Runtime.Name(),
		CreatedAt: time.Now().UTC(),
	}
	if r.opts.Store != nil {
		r.admit.Lock()
		defer r.admit.Unlock()

		active, err := r.opts.Store.FindActiveRun(ctx, run.RunName)
		if err != nil {
			return nil, fmt.Errorf("check run name: %w", err)
		}
		if active != nil {
			return nil, &model.RunConflictError{RunName: run.RunName, RunID: active.ID, State: active.State}
		}
		if err := r.opts.Store.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}
	r.logger.Info("run created", "run_id", run.ID, "run_name", run.RunName)
	return run, nil
}

// Execute drives a PENDING run to a terminal state.
//
// Under the strict policy a non-zero exit returns *model.ToolFailureError.
// Under the tolerate policy the failure is logged, outputs are still
// published and nil is returned; the run record says FAILED either way.
// Setup failures are returned regardless of policy.
func (r *Runner) Execute(ctx context.Context, run *model.Run) error {
	log := r.logger.With("run_id", run.ID, "run_name", run.RunName)

	if err := run.Transition(model.RunStateRunning); err != nil {
		return err
	}
	r.persist(ctx, run)

	runDir := r.opts.Builder.RunDir(run.RunName)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return r.fail(ctx, run, &model.SetupError{Step: "output directory", Err: err})
	}

	base := launch.Spec{
		Image:   r.opts.Image,
		WorkDir: r.opts.Builder.OutputRoot(),
		GPU:     r.opts.GPU,
		Output:  r.opts.Output,
	}

	if len(r.opts.ProbeCommands) > 0 {
		log.Debug("probing gpu", "commands", len(r.opts.ProbeCommands))
		if err := launch.Probe(ctx, r.opts.Runtime, base, r.opts.ProbeCommands); err != nil {
			return r.fail(ctx, run, &model.SetupError{Step: "gpu probe", Err: err})
		}
	}

	stagingDir := filepath.Join(r.opts.StagingDir, run.ID)
	defer os.RemoveAll(stagingDir)

	local := run.Params.Clone()
	volumes := map[string]string{}
	for _, ref := range local.Files() {
		if *ref.Value == "" {
			continue
		}
		path, err := r.opts.Stager.StageIn(ctx, *ref.Value, filepath.Join(stagingDir, ref.Name), ref.Dir)
		if err != nil {
			return r.fail(ctx, run, &model.SetupError{Step: "stage in " + ref.Name, Err: err})
		}
		*ref.Value = path
		mount := path
		if !ref.Dir {
			mount = filepath.Dir(path)
		}
		if mount != base.WorkDir {
			volumes[mount] = mount
		}
	}

	tokens, err := r.opts.Builder.Build(local)
	if err != nil {
		return r.fail(ctx, run, err)
	}
	run.Command = tokens
	r.persist(ctx, run)

	log.Info("running command", "command", strings.Join(tokens, " "))

	spec := base
	spec.Command = tokens
	spec.Volumes = volumes
	res, runErr := r.opts.Runtime.Run(ctx, spec)

	var failure error
	switch {
	case ctx.Err() != nil:
		return r.fail(ctx, run, fmt.Errorf("run %s: %w", run.RunName, ctx.Err()))
	case runErr != nil:
		failure = fmt.Errorf("run %s: %w", run.RunName, runErr)
	case res.ExitCode != 0:
		run.ExitCode = model.IntPtr(res.ExitCode)
		failure = &model.ToolFailureError{RunName: run.RunName, ExitCode: res.ExitCode}
	default:
		run.ExitCode = model.IntPtr(0)
	}

	if failure != nil && r.opts.Policy == model.FailureStrict {
		return r.fail(ctx, run, failure)
	}
	if failure != nil {
		log.Warn("tool failed, publishing outputs anyway", "error", failure)
	}

	// A caller-supplied output directory takes precedence over the stage-out mode.
	loc, err := r.opts.Stager.StageOutTo(ctx, r.opts.Builder.OutputRoot(), run.Params.OutputDirectory)
	if err != nil {
		return r.fail(ctx, run, fmt.Errorf("stage out: %w", err))
	}
	run.OutputLocation = loc

	if failure != nil {
		run.Error = failure.Error()
		if err := run.Transition(model.RunStateFailed); err != nil {
			return err
		}
		r.persist(ctx, run)
		return nil
	}

	if err := run.Transition(model.RunStateSuccess); err != nil {
		return err
	}
	r.persist(ctx, run)
	log.Info("run complete", "output_location", loc)
	return nil
}

// fail records err on the run, moves it to FAILED and returns err.
func (r *Runner) fail(ctx context.Context, run *model.Run, err error) error {
	run.Error = err.Error()
	if terr := run.Transition(model.RunStateFailed); terr != nil {
		return errors.Join(err, terr)
	}
	r.persist(ctx, run)
	r.logger.Error("run failed", "run_id", run.ID, "run_name", run.RunName, "error", err)
	return err
}

// persist writes the run to the ledger. Ledger errors are logged, not
// returned, so they never mask the run's own outcome.
func (r *Runner) persist(ctx context.Context, run *model.Run) {
	if r.opts.Store == nil {
		return
	}
	// A cancelled run is still recorded.
	if err := r.opts.Store.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		r.logger.Error("update run", "run_id", run.ID, "error", err)
	}
}
