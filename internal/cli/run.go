package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/me/rfdiff/internal/store"
	"github.com/me/rfdiff/internal/task"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <job-file>",
		Short: "Run a job and record it in the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := loadJob(cmd, args[0])
			if err != nil {
				return err
			}

			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			runner, err := task.New(cfg, st, cmd.OutOrStdout(), logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run, err := runner.Run(ctx, ps)
			if run != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Run %s: %s\n", run.ID, run.State)
				if run.OutputLocation != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Outputs: %s\n", run.OutputLocation)
				}
			}
			return err
		},
	}
	addExecFlags(cmd)
	return cmd
}

// openStore opens and migrates the run ledger.
func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	path := cfg.DBPath
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
	}
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Debug("database ready", "path", path)
	return st, nil
}
