package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/rfdiff/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

const runColumns = `id, run_name, state, params, command, exit_code, output_location, error, created_at, started_at, completed_at, runtime`

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	paramsJSON, commandJSON, err := marshalRun(run)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RunName, string(run.State), paramsJSON, commandJSON,
		run.ExitCode, run.OutputLocation, run.Error,
		run.CreatedAt.Format(time.RFC3339Nano), formatTime(run.StartedAt), formatTime(run.CompletedAt), runtimeName(run),
	)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "limit", opts.Limit, "offset", opts.Offset, "state", opts.State)
	opts.Clamp()

	where := ""
	var args []any
	if opts.State != "" {
		where = ` WHERE state = ?`
		args = append(args, opts.State)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func (s *SQLiteStore) FindActiveRun(ctx context.Context, runName string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "run_name", runName)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE run_name = ? AND state IN (?, ?) ORDER BY created_at DESC LIMIT 1`,
		runName, string(model.RunStatePending), string(model.RunStateRunning),
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", run.ID, "state", run.State)

	paramsJSON, commandJSON, err := marshalRun(run)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET run_name=?, state=?, params=?, command=?, exit_code=?, output_location=?, error=?,
		 started_at=?, completed_at=?, runtime=? WHERE id=?`,
		run.RunName, string(run.State), paramsJSON, commandJSON,
		run.ExitCode, run.OutputLocation, run.Error,
		formatTime(run.StartedAt), formatTime(run.CompletedAt), runtimeName(run), run.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.Run, error) {
	var run model.Run
	var state, paramsJSON, commandJSON, createdAt, runtime string
	var startedAt, completedAt *string

	if err := row.Scan(
		&run.ID, &run.RunName, &state, &paramsJSON, &commandJSON,
		&run.ExitCode, &run.OutputLocation, &run.Error,
		&createdAt, &startedAt, &completedAt, &runtime,
	); err != nil {
		return nil, err
	}

	run.State = model.RunState(state)
	run.Runtime = model.RuntimeType(runtime)
	if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if err := json.Unmarshal([]byte(commandJSON), &run.Command); err != nil {
		return nil, fmt.Errorf("unmarshal command: %w", err)
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	run.StartedAt = parseTime(startedAt)
	run.CompletedAt = parseTime(completedAt)
	return &run, nil
}

func marshalRun(run *model.Run) (string, string, error) {
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return "", "", fmt.Errorf("marshal params: %w", err)
	}
	command := run.Command
	if command == nil {
		command = []string{}
	}
	commandJSON, err := json.Marshal(command)
	if err != nil {
		return "", "", fmt.Errorf("marshal command: %w", err)
	}
	return string(paramsJSON), string(commandJSON), nil
}

func runtimeName(run *model.Run) string {
	if run.Runtime == "" {
		return string(model.RuntimeNone)
	}
	return string(run.Runtime)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}

func parseTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil
	}
	return &t
}
