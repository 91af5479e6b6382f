// Package slurm wraps the batch scheduler's submission interface. The
// rest of the system treats job identifiers and dependency expressions
// as opaque strings produced here; nothing outside this package knows
// what sbatch output looks like.
package slurm

import "context"

// JobID is the scheduler's identifier for a submitted job. It is opaque
// to callers beyond reuse in a dependency expression.
type JobID string

// SubmitOptions is the configuration record for one submission.
type SubmitOptions struct {
	JobName   string
	TimeLimit string // --time
	MemPerCPU string // --mem-per-cpu
	Partition string // optional
	Account   string // optional

	// ArrayRange submits an array job, e.g. "1-8". Present only for
	// worker fan-out submissions.
	ArrayRange string

	// Dependency defers the job's launch until the expression is
	// satisfied. Present only for successor-controller submissions.
	Dependency string

	// Output is the scheduler-side output redirect pattern (optional).
	Output string

	// Command is the argv the job executes once launched.
	Command []string
}

// Client submits jobs to the scheduler. A returned error means the
// submission was rejected and no job exists; the JobID is only
// meaningful on success.
type Client interface {
	Submit(ctx context.Context, opts SubmitOptions) (JobID, error)
}
