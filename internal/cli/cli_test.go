package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/me/genchain/internal/ledger"
)

// testRunDir lays out a run directory with a config file, a payload stub
// that records its arguments, and an sbatch stub that accepts everything.
// It returns the run directory; recorded payload args land in
// <dir>/payload_args, recorded sbatch args in <dir>/sbatch_args.
func testRunDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	payload := filepath.Join(dir, "payload")
	payloadScript := fmt.Sprintf("#!/bin/sh\necho \"$*\" >> %s\nexit 0\n", filepath.Join(dir, "payload_args"))
	if err := os.WriteFile(payload, []byte(payloadScript), 0o755); err != nil {
		t.Fatalf("write payload stub: %v", err)
	}

	sbatch := filepath.Join(dir, "sbatch")
	sbatchScript := fmt.Sprintf("#!/bin/sh\necho \"$*\" >> %s\necho 'Submitted batch job 31337 on cluster test'\n",
		filepath.Join(dir, "sbatch_args"))
	if err := os.WriteFile(sbatch, []byte(sbatchScript), 0o755); err != nil {
		t.Fatalf("write sbatch stub: %v", err)
	}

	cfg := fmt.Sprintf("executable: %s\nnpop: 2\nnmax: 3\nsbatch: %s\n", payload, sbatch)
	if err := os.WriteFile(filepath.Join(dir, "genchain.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

// execute runs the CLI with args against the run directory's config.
func execute(t *testing.T, dir string, args ...string) error {
	t.Helper()
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	root := NewRootCmd()
	root.SetArgs(append(args, "--config", filepath.Join(dir, "genchain.yaml"), "--log-level", "error"))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func readOrEmpty(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func TestRun_UnrecognizedRole(t *testing.T) {
	dir := testRunDir(t)
	err := execute(t, dir, "run", "x", "1")
	if err == nil || !strings.Contains(err.Error(), "unrecognized role") {
		t.Fatalf("err = %v, want unrecognized role", err)
	}
	// Fatal before any submission or payload invocation.
	if readOrEmpty(t, filepath.Join(dir, "sbatch_args")) != "" {
		t.Error("sbatch was invoked for an unrecognized role")
	}
}

func TestRun_InvalidIdentifier(t *testing.T) {
	dir := testRunDir(t)
	if err := execute(t, dir, "run", "w", "zero"); err == nil {
		t.Fatal("expected error for non-numeric identifier")
	}
	if err := execute(t, dir, "run", "w", "0"); err == nil {
		t.Fatal("expected error for non-positive identifier")
	}
}

func TestRun_WorkerExplicitID(t *testing.T) {
	dir := testRunDir(t)
	t.Setenv(envJobID, "")
	t.Setenv(envArrayIndex, "")

	if err := execute(t, dir, "run", "w", "5"); err != nil {
		t.Fatalf("run w 5: %v", err)
	}
	got := strings.TrimSpace(readOrEmpty(t, filepath.Join(dir, "payload_args")))
	if got != "w 5" {
		t.Errorf("payload args = %q, want %q", got, "w 5")
	}
}

func TestRun_WorkerArrayIndexFromEnv(t *testing.T) {
	dir := testRunDir(t)
	t.Setenv(envJobID, "999")
	t.Setenv(envArrayIndex, "3")

	if err := execute(t, dir, "run", "w"); err != nil {
		t.Fatalf("run w: %v", err)
	}
	got := strings.TrimSpace(readOrEmpty(t, filepath.Join(dir, "payload_args")))
	if got != "w 3" {
		t.Errorf("payload args = %q, want %q", got, "w 3")
	}
}

func TestRun_WorkerMissingIndex(t *testing.T) {
	dir := testRunDir(t)
	t.Setenv(envJobID, "999")
	t.Setenv(envArrayIndex, "")

	if err := execute(t, dir, "run", "w"); err == nil {
		t.Fatal("expected error when array index is unavailable")
	}
}

func TestRun_BootstrapSubmitsController(t *testing.T) {
	dir := testRunDir(t)
	t.Setenv(envJobID, "")

	if err := execute(t, dir, "run", "s"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	sbatchArgs := readOrEmpty(t, filepath.Join(dir, "sbatch_args"))
	if !strings.Contains(sbatchArgs, "--job-name supervisor_1") {
		t.Errorf("sbatch args = %q, want supervisor_1 job name", sbatchArgs)
	}
	if strings.Contains(sbatchArgs, "--dependency") {
		t.Errorf("bootstrap submission carries a dependency: %q", sbatchArgs)
	}
	// Nothing ran locally.
	if readOrEmpty(t, filepath.Join(dir, "payload_args")) != "" {
		t.Error("payload invoked during bootstrap")
	}
}

func TestRun_ControllerInsideScheduler(t *testing.T) {
	dir := testRunDir(t)
	t.Setenv(envJobID, "555")
	t.Setenv(envArrayIndex, "")

	if err := execute(t, dir, "run", "s", "2", "--chain", "chain-test"); err != nil {
		t.Fatalf("run s 2: %v", err)
	}

	// Supervisor payload ran for generation 2.
	if got := strings.TrimSpace(readOrEmpty(t, filepath.Join(dir, "payload_args"))); got != "s 2" {
		t.Errorf("payload args = %q, want %q", got, "s 2")
	}

	// Fan-out then successor.
	sbatchArgs := readOrEmpty(t, filepath.Join(dir, "sbatch_args"))
	if !strings.Contains(sbatchArgs, "--job-name workers_2") || !strings.Contains(sbatchArgs, "--array 1-2") {
		t.Errorf("sbatch args missing worker fan-out: %q", sbatchArgs)
	}
	if !strings.Contains(sbatchArgs, "--job-name supervisor_3") ||
		!strings.Contains(sbatchArgs, "--dependency afterok:31337_1:31337_2") {
		t.Errorf("sbatch args missing successor: %q", sbatchArgs)
	}

	// Both submissions recorded in the ledger.
	st, err := ledger.NewStore(filepath.Join(dir, "genchain.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer st.Close()
	subs, err := st.ListChain(context.Background(), "chain-test")
	if err != nil {
		t.Fatalf("ListChain: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("ledger rows = %d, want 2", len(subs))
	}
	if subs[0].Kind != ledger.KindWorkers || subs[1].Kind != ledger.KindController {
		t.Errorf("ledger rows = %+v", subs)
	}
}

func TestRun_ControllerHaltsOnMarker(t *testing.T) {
	dir := testRunDir(t)
	t.Setenv(envJobID, "555")
	if err := os.WriteFile(filepath.Join(dir, "STOP"), nil, 0o644); err != nil {
		t.Fatalf("touch marker: %v", err)
	}

	if err := execute(t, dir, "run", "s", "2"); err != nil {
		t.Fatalf("run s 2 with marker: %v", err)
	}
	if readOrEmpty(t, filepath.Join(dir, "sbatch_args")) != "" {
		t.Error("submissions made despite termination marker")
	}
}

func TestRun_ControllerNeedsGenerationInsideScheduler(t *testing.T) {
	dir := testRunDir(t)
	t.Setenv(envJobID, "555")

	if err := execute(t, dir, "run", "s"); err == nil {
		t.Fatal("expected error for missing generation")
	}
}

func TestStop_CreatesMarker(t *testing.T) {
	dir := testRunDir(t)

	if err := execute(t, dir, "stop"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "STOP")); err != nil {
		t.Errorf("marker not created: %v", err)
	}
}

func TestRestart_ClearsMarkerAndResubmits(t *testing.T) {
	dir := testRunDir(t)
	t.Setenv(envJobID, "")
	if err := os.WriteFile(filepath.Join(dir, "STOP"), nil, 0o644); err != nil {
		t.Fatalf("touch marker: %v", err)
	}

	if err := execute(t, dir, "restart", "-g", "2"); err != nil {
		t.Fatalf("restart: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "STOP")); !os.IsNotExist(err) {
		t.Error("marker still present after restart")
	}
	sbatchArgs := readOrEmpty(t, filepath.Join(dir, "sbatch_args"))
	if !strings.Contains(sbatchArgs, "--job-name supervisor_2") {
		t.Errorf("sbatch args = %q, want supervisor_2 resubmission", sbatchArgs)
	}
}

func TestRestart_Workers(t *testing.T) {
	dir := testRunDir(t)
	t.Setenv(envJobID, "")

	if err := execute(t, dir, "restart", "-g", "3", "--workers"); err != nil {
		t.Fatalf("restart --workers: %v", err)
	}
	sbatchArgs := readOrEmpty(t, filepath.Join(dir, "sbatch_args"))
	if !strings.Contains(sbatchArgs, "--job-name workers_3") || !strings.Contains(sbatchArgs, "--array 1-2") {
		t.Errorf("sbatch args = %q, want workers_3 array resubmission", sbatchArgs)
	}
}

func TestRun_FanoutRejectionIsFatal(t *testing.T) {
	dir := testRunDir(t)
	t.Setenv(envJobID, "555")

	// Replace the sbatch stub with one that rejects everything.
	sbatch := filepath.Join(dir, "sbatch")
	script := "#!/bin/sh\necho 'sbatch: error: QOSMaxSubmitJobPerUserLimit' >&2\nexit 1\n"
	if err := os.WriteFile(sbatch, []byte(script), 0o755); err != nil {
		t.Fatalf("write rejecting sbatch: %v", err)
	}

	err := execute(t, dir, "run", "s", "1")
	if err == nil {
		t.Fatal("expected error when fan-out is rejected")
	}
	if !strings.Contains(err.Error(), "fan-out") {
		t.Errorf("err = %v, want fan-out context", err)
	}
}
