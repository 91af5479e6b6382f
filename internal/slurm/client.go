package slurm

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// CommandClient submits jobs by invoking the sbatch binary.
type CommandClient struct {
	sbatch string
	logger *slog.Logger
}

// NewCommandClient creates a CommandClient. If sbatchPath is empty,
// "sbatch" is resolved from PATH.
func NewCommandClient(sbatchPath string, logger *slog.Logger) *CommandClient {
	if sbatchPath == "" {
		sbatchPath = "sbatch"
	}
	return &CommandClient{
		sbatch: sbatchPath,
		logger: logger.With("component", "slurm-client"),
	}
}

// Submit runs sbatch with the given options and parses the job
// identifier out of its acknowledgment. A non-zero sbatch exit means the
// submission was rejected and no job was created.
func (c *CommandClient) Submit(ctx context.Context, opts SubmitOptions) (JobID, error) {
	if len(opts.Command) == 0 {
		return "", fmt.Errorf("submit %s: empty command", opts.JobName)
	}

	args := buildArgs(opts)
	c.logger.Debug("sbatch", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, c.sbatch, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	switch err := runErr.(type) {
	case nil:
	case *exec.ExitError:
		return "", fmt.Errorf("submit %s: sbatch exit %d: %s",
			opts.JobName, err.ExitCode(), strings.TrimSpace(stderrBuf.String()))
	default:
		// Non-exit errors (e.g. sbatch binary not found) are returned directly.
		return "", fmt.Errorf("submit %s: run sbatch: %w", opts.JobName, runErr)
	}

	id, err := ParseJobID(stdoutBuf.String())
	if err != nil {
		return "", fmt.Errorf("submit %s: %w", opts.JobName, err)
	}

	c.logger.Info("job submitted",
		"job_name", opts.JobName,
		"job_id", id,
		"array", opts.ArrayRange,
		"dependency", opts.Dependency,
	)
	return id, nil
}

// buildArgs translates SubmitOptions into an sbatch argument list. The
// payload command goes through --wrap so no job script file is needed.
func buildArgs(opts SubmitOptions) []string {
	var args []string
	if opts.JobName != "" {
		args = append(args, "--job-name", opts.JobName)
	}
	if opts.TimeLimit != "" {
		args = append(args, "--time", opts.TimeLimit)
	}
	if opts.MemPerCPU != "" {
		args = append(args, "--mem-per-cpu", opts.MemPerCPU)
	}
	if opts.Partition != "" {
		args = append(args, "--partition", opts.Partition)
	}
	if opts.Account != "" {
		args = append(args, "--account", opts.Account)
	}
	if opts.ArrayRange != "" {
		args = append(args, "--array", opts.ArrayRange)
	}
	if opts.Dependency != "" {
		args = append(args, "--dependency", opts.Dependency)
	}
	if opts.Output != "" {
		args = append(args, "--output", opts.Output)
	}
	args = append(args, "--wrap", strings.Join(opts.Command, " "))
	return args
}
