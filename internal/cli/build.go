package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/rfdiff/internal/cmdline"
	"github.com/me/rfdiff/internal/params"
	"github.com/me/rfdiff/internal/task"
	"github.com/me/rfdiff/pkg/model"
)

func newBuildCmd() *cobra.Command {
	var shell bool
	cmd := &cobra.Command{
		Use:   "build <job-file>",
		Short: "Print the command line for a job without running it",
		Long:  "Print the command line for a job, one token per line. Use - to read YAML from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := loadJob(cmd, args[0])
			if err != nil {
				return err
			}

			runner := task.NewRunner(task.Options{
				Builder: cmdline.NewBuilder(cfg.Cmdline()),
				Logger:  logger,
			})
			tokens, err := runner.DryRun(ps)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if shell {
				fmt.Fprintln(out, shellJoin(tokens))
				return nil
			}
			for _, tok := range tokens {
				fmt.Fprintln(out, tok)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&shell, "shell", false, "Print a single shell-quoted line")
	addOutputFlag(cmd)
	return cmd
}

// loadJob decodes a job file, or YAML from stdin when path is "-".
func loadJob(cmd *cobra.Command, path string) (model.ParameterSet, error) {
	if path == "-" {
		return params.Decode(cmd.InOrStdin(), params.FormatYAML)
	}
	if _, err := os.Stat(path); err != nil {
		return model.ParameterSet{}, fmt.Errorf("job file: %w", err)
	}
	return params.LoadFile(path)
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_./=:,+@%-]+$`)

// shellJoin quotes tokens for a POSIX shell.
func shellJoin(tokens []string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeQuoted(&b, tok)
	}
	return b.String()
}

func writeQuoted(w io.StringWriter, tok string) {
	if shellSafe.MatchString(tok) {
		w.WriteString(tok)
		return
	}
	w.WriteString("'" + strings.ReplaceAll(tok, "'", `'\''`) + "'")
}
