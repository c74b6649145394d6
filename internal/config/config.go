// Package config holds the settings shared by the CLI, the task runner and
// the API server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/me/rfdiff/internal/cmdline"
	"github.com/me/rfdiff/internal/launch"
	"github.com/me/rfdiff/pkg/model"
)

// Config is the complete runtime configuration.
type Config struct {
	// Tool invocation
	CondaBinary string `yaml:"conda_binary" toml:"conda_binary"` // Path to the conda executable
	CondaEnv    string `yaml:"conda_env" toml:"conda_env"`       // Conda environment holding the tool
	Python      string `yaml:"python" toml:"python"`             // Interpreter inside the environment
	Script      string `yaml:"script" toml:"script"`             // Inference script
	OutputRoot  string `yaml:"output_root" toml:"output_root"`   // One subdirectory per run is created here

	// Execution
	Runtime       model.RuntimeType   `yaml:"runtime" toml:"runtime"`               // none, docker, apptainer
	Image         string              `yaml:"image" toml:"image"`                   // Container image for docker/apptainer
	GPUDevice     string              `yaml:"gpu_device" toml:"gpu_device"`         // e.g. "0" or "0,1"; empty means all
	ProbeCommands [][]string          `yaml:"probe_commands" toml:"probe_commands"` // GPU diagnostics run before the tool
	SkipProbe     bool                `yaml:"skip_probe" toml:"skip_probe"`
	FailurePolicy model.FailurePolicy `yaml:"failure_policy" toml:"failure_policy"` // strict, tolerate
	StageOut      string              `yaml:"stage_out" toml:"stage_out"`           // local, file:///path, s3://bucket/prefix

	// Service
	DBPath    string `yaml:"db_path" toml:"db_path"`       // SQLite database path (":memory:" for testing)
	Addr      string `yaml:"addr" toml:"addr"`             // Listen address (default ":8080")
	LogLevel  string `yaml:"log_level" toml:"log_level"`   // debug, info, warn, error
	LogFormat string `yaml:"log_format" toml:"log_format"` // text, json
}

// DefaultConfig returns settings matching the tool's GPU image.
func DefaultConfig() Config {
	def := cmdline.DefaultConfig()
	home, _ := os.UserHomeDir()
	return Config{
		CondaBinary:   def.Prefix[0],
		CondaEnv:      def.Prefix[3],
		Python:        def.Prefix[4],
		Script:        def.Prefix[5],
		OutputRoot:    def.OutputRoot,
		Runtime:       model.RuntimeNone,
		ProbeCommands: launch.DefaultProbeCommands,
		FailurePolicy: model.FailureStrict,
		StageOut:      "local",
		DBPath:        home + "/.rfdiff/rfdiff.db",
		Addr:          ":8080",
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// LoadFile overlays the config file at path onto cfg. Files ending in
// .toml are read as TOML, anything else as YAML. Keys absent from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.Validate()
}

// Validate rejects unknown enum values.
func (c *Config) Validate() error {
	switch c.Runtime {
	case model.RuntimeNone, model.RuntimeDocker, model.RuntimeApptainer:
	case "":
		c.Runtime = model.RuntimeNone
	default:
		return fmt.Errorf("unknown runtime %q (want none, docker or apptainer)", c.Runtime)
	}
	if c.Runtime != model.RuntimeNone && c.Image == "" {
		return fmt.Errorf("runtime %s requires an image", c.Runtime)
	}
	switch c.FailurePolicy {
	case model.FailureStrict, model.FailureTolerate:
	case "":
		c.FailurePolicy = model.FailureStrict
	default:
		return fmt.Errorf("unknown failure policy %q (want strict or tolerate)", c.FailurePolicy)
	}
	if c.StageOut == "" {
		c.StageOut = "local"
	}
	if c.StageOut != "local" && !strings.HasPrefix(c.StageOut, "file://") && !strings.HasPrefix(c.StageOut, "s3://") {
		return fmt.Errorf("unsupported stage_out %q", c.StageOut)
	}
	return nil
}

// Cmdline returns the command builder configuration.
func (c Config) Cmdline() cmdline.Config {
	return cmdline.Config{
		Prefix:     []string{c.CondaBinary, "run", "--name", c.CondaEnv, c.Python, c.Script},
		OutputRoot: c.OutputRoot,
	}
}
