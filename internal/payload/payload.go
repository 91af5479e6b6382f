// Package payload invokes the opaque optimization executable. What the
// executable computes is none of this system's business: a supervisor
// invocation aggregates a generation, a worker invocation evaluates one
// population member, and both derive everything else from their
// identifier and the shared run directory.
package payload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
)

// Role selects the payload's behavior. The single-letter forms are the
// executable's own command-line convention.
type Role string

const (
	RoleSupervisor Role = "s"
	RoleWorker     Role = "w"
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	return r == RoleSupervisor || r == RoleWorker
}

// Runner executes the payload binary for a given role and identifier.
type Runner struct {
	executable string
	extraArgs  []string
	dir        string
	logger     *slog.Logger
}

// NewRunner creates a Runner for the executable, run from dir with
// extraArgs placed before the role and identifier arguments.
func NewRunner(executable string, extraArgs []string, dir string, logger *slog.Logger) *Runner {
	return &Runner{
		executable: executable,
		extraArgs:  extraArgs,
		dir:        dir,
		logger:     logger.With("component", "payload"),
	}
}

// Run invokes the payload as `executable [extraArgs...] <role> <id>` and
// waits for it to finish. The payload's output is passed through to this
// process's streams so it lands in the scheduler's job log. A non-zero
// payload exit is returned as an error.
func (r *Runner) Run(ctx context.Context, role Role, id int) error {
	if !role.Valid() {
		return fmt.Errorf("payload: unknown role %q", role)
	}

	args := make([]string, 0, len(r.extraArgs)+2)
	args = append(args, r.extraArgs...)
	args = append(args, string(role), strconv.Itoa(id))

	r.logger.Info("invoking payload", "role", role, "id", id)

	cmd := exec.CommandContext(ctx, r.executable, args...)
	cmd.Dir = r.dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	runErr := cmd.Run()
	switch err := runErr.(type) {
	case nil:
		return nil
	case *exec.ExitError:
		return fmt.Errorf("payload %s %d: exit %d", role, id, err.ExitCode())
	default:
		return fmt.Errorf("payload %s %d: %w", role, id, runErr)
	}
}
