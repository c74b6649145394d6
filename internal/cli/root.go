// Package cli implements the rfdiff command tree.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/rfdiff/internal/config"
	"github.com/me/rfdiff/internal/logging"
	"github.com/me/rfdiff/pkg/model"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
	flagDB        string

	// Execution overrides, registered on the commands that launch the tool.
	flagOutputRoot string
	flagRuntime    string
	flagImage      string
	flagGPU        string
	flagSkipProbe  bool
	flagPolicy     string
	flagStageOut   string

	cfg    config.Config
	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the rfdiff CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rfdiff",
		Short: "Build and run RFdiffusion protein design jobs",
		Long: "rfdiff turns a job file of design parameters into an RFdiffusion command line,\n" +
			"runs it on the host or in a GPU container, and keeps a ledger of runs.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			level, err := logging.LookupLevel(c.LogLevel)
			if err != nil {
				return err
			}
			if err := logging.CheckFormat(c.LogFormat); err != nil {
				return err
			}
			cfg = c
			logger = logging.NewLoggerWithWriter(level, c.LogFormat, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML or TOML config file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "Run ledger database path (default ~/.rfdiff/rfdiff.db)")

	root.AddCommand(
		newBuildCmd(),
		newRunCmd(),
		newParamsCmd(),
		newRunsCmd(),
		newServeCmd(),
	)

	return root
}

// loadConfig layers defaults, the config file and explicitly set flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	c := config.DefaultConfig()
	if flagConfig != "" {
		if err := config.LoadFile(flagConfig, &c); err != nil {
			return c, err
		}
	}

	f := cmd.Flags()
	if f.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if f.Changed("log-format") {
		c.LogFormat = flagLogFormat
	}
	if flagDebug {
		c.LogLevel = "debug"
	}
	if f.Changed("db") {
		c.DBPath = flagDB
	}
	if f.Changed("output-root") {
		c.OutputRoot = flagOutputRoot
	}
	if f.Changed("runtime") {
		c.Runtime = model.RuntimeType(flagRuntime)
	}
	if f.Changed("image") {
		c.Image = flagImage
	}
	if f.Changed("gpu") {
		c.GPUDevice = flagGPU
	}
	if f.Changed("skip-probe") {
		c.SkipProbe = flagSkipProbe
	}
	if f.Changed("failure-policy") {
		c.FailurePolicy = model.FailurePolicy(flagPolicy)
	}
	if f.Changed("stage-out") {
		c.StageOut = flagStageOut
	}
	return c, c.Validate()
}

// addOutputFlag registers --output-root.
func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagOutputRoot, "output-root", "", "Directory holding one subdirectory per run (default /root/outputs)")
}

// addExecFlags registers the flags that control how the tool is launched.
func addExecFlags(cmd *cobra.Command) {
	addOutputFlag(cmd)
	cmd.Flags().StringVar(&flagRuntime, "runtime", "", "Execution runtime (none, docker, apptainer)")
	cmd.Flags().StringVar(&flagImage, "image", "", "Container image for docker or apptainer")
	cmd.Flags().StringVar(&flagGPU, "gpu", "", "GPU device IDs, e.g. 0 or 0,1 (default all)")
	cmd.Flags().BoolVar(&flagSkipProbe, "skip-probe", false, "Skip the nvidia-smi and nvcc probes")
	cmd.Flags().StringVar(&flagPolicy, "failure-policy", "", "On tool failure: strict (fail) or tolerate (publish outputs anyway)")
	cmd.Flags().StringVar(&flagStageOut, "stage-out", "", "Publish outputs: local, file:///path or s3://bucket/prefix")
}
