package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/me/rfdiff/internal/cmdline"
	"github.com/me/rfdiff/internal/config"
	"github.com/me/rfdiff/internal/launch"
	"github.com/me/rfdiff/internal/store"
	"github.com/me/rfdiff/internal/task"
	"github.com/me/rfdiff/pkg/model"
)

// stubRuntime returns exitCode for every command. When release is set,
// each command blocks until it is closed.
type stubRuntime struct {
	mu       sync.Mutex
	exitCode int
	calls    int
	release  chan struct{}
}

func (s *stubRuntime) Name() model.RuntimeType { return model.RuntimeNone }

func (s *stubRuntime) Run(_ context.Context, spec launch.Spec) (launch.Result, error) {
	s.mu.Lock()
	s.calls++
	release, exitCode := s.release, s.exitCode
	s.mu.Unlock()
	if release != nil {
		<-release
	}
	return launch.Result{ExitCode: exitCode}, nil
}

func testServer(t *testing.T) (*Server, *stubRuntime) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultConfig()
	cfg.OutputRoot = filepath.Join(t.TempDir(), "outputs")

	rt := &stubRuntime{}
	runner := task.NewRunner(task.Options{
		Builder:    cmdline.NewBuilder(cfg.Cmdline()),
		Runtime:    rt,
		Store:      st,
		StagingDir: t.TempDir(),
		Logger:     logger,
	})
	srv := New(cfg, runner, st, logger)
	t.Cleanup(srv.Wait)
	return srv, rt
}

// envelope is used to decode the standard response envelope.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Timestamp  string            `json:"timestamp"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

func do(t *testing.T, srv *Server, method, path, body string, wantStatus int) envelope {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != wantStatus {
		t.Fatalf("%s %s: status=%d, want %d, body=%s", method, path, w.Code, wantStatus, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON: %v", method, path, err)
	}
	return env
}

const unconditionalJob = `{"run_name": "design_unconditional", "contig_string": "100-200", "num_designs": 2}`

func TestDiscovery(t *testing.T) {
	srv, _ := testServer(t)
	env := do(t, srv, "GET", "/api/v1/", "", http.StatusOK)
	if env.Status != "ok" {
		t.Errorf("status = %q, want ok", env.Status)
	}
	if env.RequestID == "" {
		t.Error("request_id is empty")
	}

	var data struct {
		Name      string `json:"name"`
		Endpoints []struct {
			Path string `json:"path"`
		} `json:"endpoints"`
	}
	json.Unmarshal(env.Data, &data)
	if data.Name != "rfdiff API" {
		t.Errorf("name = %q, want rfdiff API", data.Name)
	}
	if len(data.Endpoints) != 6 {
		t.Errorf("endpoints count = %d, want 6", len(data.Endpoints))
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	env := do(t, srv, "GET", "/api/v1/health", "", http.StatusOK)

	var data struct {
		Status    string `json:"status"`
		GoVersion string `json:"go_version"`
		Runtime   string `json:"runtime"`
		Policy    string `json:"failure_policy"`
	}
	json.Unmarshal(env.Data, &data)
	if data.Status != "healthy" {
		t.Errorf("status = %q, want healthy", data.Status)
	}
	if data.GoVersion == "" {
		t.Error("go_version is empty")
	}
	if data.Runtime != "none" || data.Policy != "strict" {
		t.Errorf("runtime = %q, policy = %q", data.Runtime, data.Policy)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "trace-42" {
		t.Errorf("X-Request-ID = %q, want trace-42", got)
	}

	req = httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "bad id with spaces")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); !strings.HasPrefix(got, "req_") {
		t.Errorf("X-Request-ID = %q, want generated req_ id", got)
	}
}

func TestListParameters(t *testing.T) {
	srv, _ := testServer(t)
	env := do(t, srv, "GET", "/api/v1/parameters", "", http.StatusOK)

	var params []struct {
		Name  string `json:"name"`
		Group string `json:"group"`
	}
	if err := json.Unmarshal(env.Data, &params); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(params) < 30 {
		t.Errorf("parameters = %d, want the full catalog", len(params))
	}

	env = do(t, srv, "GET", "/api/v1/parameters?group=symmetry", "", http.StatusOK)
	json.Unmarshal(env.Data, &params)
	if len(params) != 2 {
		t.Errorf("symmetry parameters = %d, want 2", len(params))
	}
	for _, p := range params {
		if p.Group != "symmetry" {
			t.Errorf("group = %q, want symmetry", p.Group)
		}
	}
}

func TestGetParameter(t *testing.T) {
	srv, _ := testServer(t)
	env := do(t, srv, "GET", "/api/v1/parameters/final_step", "", http.StatusOK)
	var p struct {
		Name    string  `json:"name"`
		Default float64 `json:"default"`
	}
	json.Unmarshal(env.Data, &p)
	if p.Name != "final_step" || p.Default != 50 {
		t.Errorf("parameter = %+v", p)
	}

	env = do(t, srv, "GET", "/api/v1/parameters/nope", "", http.StatusNotFound)
	if env.Error == nil || env.Error.Code != model.ErrNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", env.Error)
	}
}

func TestBuildCommand(t *testing.T) {
	srv, rt := testServer(t)
	env := do(t, srv, "POST", "/api/v1/commands", unconditionalJob, http.StatusOK)

	var data commandResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Command[6] != "contigmap.contigs=[100-200]" {
		t.Errorf("command = %v", data.Command)
	}
	if !strings.HasSuffix(data.Shell, "potentials.guide_decay=constant") {
		t.Errorf("shell = %q", data.Shell)
	}
	if rt.calls != 0 {
		t.Errorf("building a command must not execute, calls = %d", rt.calls)
	}
}

func TestBuildCommand_SymmetryConflict(t *testing.T) {
	srv, _ := testServer(t)
	body := `{"run_name": "sym", "contig_string": "100-200", "num_designs": 1, "symmetry_gen": "C4", "symmetry_motif": "D2"}`
	env := do(t, srv, "POST", "/api/v1/commands", body, http.StatusBadRequest)

	if env.Status != "error" || env.Error == nil || env.Error.Code != model.ErrValidation {
		t.Fatalf("error = %+v, want VALIDATION_ERROR", env.Error)
	}
	found := false
	for _, d := range env.Error.Details {
		if d.Field == "symmetry" {
			found = true
		}
	}
	if !found {
		t.Errorf("details = %+v, want a symmetry field error", env.Error.Details)
	}
}

func TestBuildCommand_BadBody(t *testing.T) {
	srv, _ := testServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"run_name": `},
		{"unknown field", `{"run_name": "x", "contig_string": "10", "num_designs": 1, "temperature": 3}`},
		{"bad decay", `{"run_name": "x", "contig_string": "10", "num_designs": 1, "potentials_guide_decay": "exponential"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := do(t, srv, "POST", "/api/v1/commands", tt.body, http.StatusBadRequest)
			if env.Error == nil || env.Error.Code != model.ErrValidation {
				t.Errorf("error = %+v", env.Error)
			}
		})
	}
}

func TestCreateRun(t *testing.T) {
	srv, rt := testServer(t)
	env := do(t, srv, "POST", "/api/v1/runs", unconditionalJob, http.StatusAccepted)

	var run model.Run
	if err := json.Unmarshal(env.Data, &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.State != model.RunStatePending {
		t.Errorf("state = %q, want PENDING", run.State)
	}
	if run.ID == "" {
		t.Fatal("run id is empty")
	}

	srv.Wait()
	if rt.calls != 1 {
		t.Errorf("runtime calls = %d, want 1", rt.calls)
	}

	env = do(t, srv, "GET", "/api/v1/runs/"+run.ID, "", http.StatusOK)
	var got model.Run
	json.Unmarshal(env.Data, &got)
	if got.State != model.RunStateSuccess {
		t.Errorf("state = %q, want SUCCESS", got.State)
	}
	if len(got.Command) == 0 {
		t.Error("command not recorded")
	}
}

func TestCreateRun_ToolFailure(t *testing.T) {
	srv, rt := testServer(t)
	rt.exitCode = 4

	env := do(t, srv, "POST", "/api/v1/runs", unconditionalJob, http.StatusAccepted)
	var run model.Run
	json.Unmarshal(env.Data, &run)
	srv.Wait()

	env = do(t, srv, "GET", "/api/v1/runs/"+run.ID, "", http.StatusOK)
	var got model.Run
	json.Unmarshal(env.Data, &got)
	if got.State != model.RunStateFailed {
		t.Errorf("state = %q, want FAILED", got.State)
	}
	if got.ExitCode == nil || *got.ExitCode != 4 {
		t.Errorf("exit_code = %v, want 4", got.ExitCode)
	}
}

func TestCreateRun_ActiveNameConflict(t *testing.T) {
	srv, rt := testServer(t)
	rt.release = make(chan struct{})

	env := do(t, srv, "POST", "/api/v1/runs", unconditionalJob, http.StatusAccepted)
	var first model.Run
	json.Unmarshal(env.Data, &first)

	env = do(t, srv, "POST", "/api/v1/runs", unconditionalJob, http.StatusConflict)
	if env.Error == nil || env.Error.Code != model.ErrConflict {
		t.Fatalf("error = %+v, want CONFLICT", env.Error)
	}
	if !strings.Contains(env.Error.Message, first.ID) {
		t.Errorf("message = %q, want the active run id %s", env.Error.Message, first.ID)
	}

	close(rt.release)
	srv.Wait()

	// The name is free again once the first run has finished.
	do(t, srv, "POST", "/api/v1/runs", unconditionalJob, http.StatusAccepted)
	srv.Wait()
	if rt.calls != 2 {
		t.Errorf("runtime calls = %d, want 2", rt.calls)
	}
}

func TestCreateRun_Invalid(t *testing.T) {
	srv, rt := testServer(t)
	env := do(t, srv, "POST", "/api/v1/runs", `{"run_name": "bad name", "contig_string": "100", "num_designs": 1}`, http.StatusBadRequest)
	if env.Error == nil || env.Error.Code != model.ErrValidation {
		t.Errorf("error = %+v", env.Error)
	}
	srv.Wait()
	if rt.calls != 0 {
		t.Errorf("runtime calls = %d, want 0", rt.calls)
	}
}

func TestListRuns(t *testing.T) {
	srv, _ := testServer(t)
	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"run_name": "design_%d", "contig_string": "100-200", "num_designs": 1}`, i)
		do(t, srv, "POST", "/api/v1/runs", body, http.StatusAccepted)
	}
	srv.Wait()

	env := do(t, srv, "GET", "/api/v1/runs?limit=2", "", http.StatusOK)
	if env.Pagination == nil {
		t.Fatal("pagination missing")
	}
	if env.Pagination.Total != 3 || env.Pagination.Limit != 2 || !env.Pagination.HasMore {
		t.Errorf("pagination = %+v", env.Pagination)
	}
	var runs []model.Run
	json.Unmarshal(env.Data, &runs)
	if len(runs) != 2 {
		t.Errorf("runs = %d, want 2", len(runs))
	}

	env = do(t, srv, "GET", "/api/v1/runs?state=FAILED", "", http.StatusOK)
	if env.Pagination.Total != 0 || string(env.Data) != "[]" {
		t.Errorf("FAILED filter: total = %d, data = %s", env.Pagination.Total, env.Data)
	}

	do(t, srv, "GET", "/api/v1/runs?limit=ten", "", http.StatusBadRequest)
}

func TestGetRun_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	env := do(t, srv, "GET", "/api/v1/runs/run_missing", "", http.StatusNotFound)
	if env.Error == nil || env.Error.Code != model.ErrNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", env.Error)
	}
}
