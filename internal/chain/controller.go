// Package chain implements the generation-chaining protocol: each
// controller invocation runs one generation's supervisor payload, fans
// out that generation's worker array, and submits its own successor
// gated on the array's successful completion. No process outlives its
// generation; the scheduler's dependency primitive is the only thing
// carrying the chain forward.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/me/genchain/internal/config"
	"github.com/me/genchain/internal/ledger"
	"github.com/me/genchain/internal/payload"
	"github.com/me/genchain/internal/slurm"
)

// PayloadRunner runs the opaque optimization executable for one role.
type PayloadRunner interface {
	Run(ctx context.Context, role payload.Role, id int) error
}

// Recorder persists submission records. Satisfied by *ledger.Store.
type Recorder interface {
	Record(ctx context.Context, sub ledger.Submission) error
}

// Outcome classifies how a generation ended.
type Outcome int

const (
	// OutcomeContinued means the worker population and the successor
	// controller were both submitted; the chain goes on.
	OutcomeContinued Outcome = iota

	// OutcomeHalted means a termination condition (marker present or
	// ceiling exceeded) ended the chain normally: no successor was
	// submitted.
	OutcomeHalted
)

// Controller runs the per-generation orchestration logic.
type Controller struct {
	cfg    config.Config
	client slurm.Client
	term   TerminationSource
	pay    PayloadRunner
	logger *slog.Logger

	// self is the argv prefix that re-invokes this program against the
	// same run directory; role and generation are appended per submission.
	self []string

	rec     Recorder // optional
	chainID string   // optional; threaded to successors for the ledger
}

// Option configures optional Controller dependencies.
type Option func(*Controller)

// WithRecorder attaches a submission ledger. Ledger failures are logged
// and never affect the chain's control flow.
func WithRecorder(rec Recorder) Option {
	return func(c *Controller) { c.rec = rec }
}

// WithChainID tags this generation's submissions with a chain identifier
// and passes it on to the successor controller.
func WithChainID(id string) Option {
	return func(c *Controller) { c.chainID = id }
}

// New creates a Controller. self is the argv prefix used to resubmit
// this program (binary plus run-directory flags).
func New(cfg config.Config, client slurm.Client, term TerminationSource, pay PayloadRunner, self []string, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		cfg:    cfg,
		client: client,
		term:   term,
		pay:    pay,
		self:   self,
		logger: logger.With("component", "controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes generation g. OutcomeHalted with a nil error is the
// chain's normal end; any error aborts the generation without a
// successor, which by construction ends the chain too.
func (c *Controller) Run(ctx context.Context, g int) (Outcome, error) {
	if g < 1 {
		return OutcomeHalted, fmt.Errorf("generation must be positive, got %d", g)
	}
	log := c.logger.With("generation", g)
	log.Info("generation start", "npop", c.cfg.Npop, "nmax", c.cfg.Nmax)

	// The supervisor payload runs before any chaining decision: it
	// aggregates the previous generation's worker outputs, writes the
	// next population's inputs, and on convergence (or a missing worker
	// output) drops the termination marker the checkpoint below observes.
	// The final generation nmax+1 still gets this pass for its closing
	// aggregation.
	if err := c.pay.Run(ctx, payload.RoleSupervisor, g); err != nil {
		return OutcomeHalted, fmt.Errorf("generation %d: %w", g, err)
	}

	// Checkpoint one.
	stop, err := c.term.Signaled()
	if err != nil {
		return OutcomeHalted, fmt.Errorf("generation %d: %w", g, err)
	}
	if stop {
		log.Info("termination signal present, chain stops")
		return OutcomeHalted, nil
	}

	if CeilingReached(g, c.cfg.Nmax) {
		log.Info("generation ceiling reached, chain stops", "nmax", c.cfg.Nmax)
		return OutcomeHalted, nil
	}

	// Fan-out. A rejected submission is fatal for the generation: a
	// broken fan-out must not spawn descendants.
	workersID, err := c.SubmitWorkers(ctx, g)
	if err != nil {
		return OutcomeHalted, fmt.Errorf("generation %d fan-out: %w", g, err)
	}

	// Checkpoint two. The worker array is already queued and will run
	// to completion; a signal here only prevents the next generation.
	stop, err = c.term.Signaled()
	if err != nil {
		return OutcomeHalted, fmt.Errorf("generation %d: %w", g, err)
	}
	if stop {
		log.Info("termination signal present after fan-out, no successor")
		return OutcomeHalted, nil
	}

	// The successor launches only after every worker of this generation
	// finished successfully. Its submission status is checked: an
	// unsubmitted successor would silently orphan the chain.
	dep := slurm.AfterOK(workersID, c.cfg.Npop)
	successorID, err := c.SubmitController(ctx, g+1, dep)
	if err != nil {
		return OutcomeHalted, fmt.Errorf("generation %d successor: %w", g, err)
	}

	log.Info("generation chained",
		"workers_job", workersID,
		"successor_job", successorID,
		"dependency", dep,
	)
	return OutcomeContinued, nil
}

// SubmitController submits the controller job for generation g,
// optionally gated on a dependency expression. Also used by the
// bootstrap and restart paths, which pass an empty dependency.
func (c *Controller) SubmitController(ctx context.Context, g int, dependency string) (slurm.JobID, error) {
	cmd := append(slices.Clone(c.self), string(payload.RoleSupervisor), strconv.Itoa(g))
	if c.chainID != "" {
		cmd = append(cmd, "--chain", c.chainID)
	}
	id, err := c.client.Submit(ctx, slurm.SubmitOptions{
		JobName:    fmt.Sprintf("supervisor_%d", g),
		TimeLimit:  c.cfg.Supervisor.TimeLimit,
		MemPerCPU:  c.cfg.Supervisor.MemPerCPU,
		Partition:  c.cfg.Partition,
		Account:    c.cfg.Account,
		Dependency: dependency,
		Output:     c.cfg.Supervisor.Output,
		Command:    cmd,
	})
	if err != nil {
		return "", err
	}
	c.record(ctx, ledger.Submission{Generation: g, Kind: ledger.KindController, JobID: string(id), Dependency: dependency})
	return id, nil
}

// record writes a ledger row when a Recorder is attached. Best-effort:
// the ledger is observational and never halts the chain.
func (c *Controller) record(ctx context.Context, sub ledger.Submission) {
	if c.rec == nil {
		return
	}
	sub.ChainID = c.chainID
	if err := c.rec.Record(ctx, sub); err != nil {
		c.logger.Warn("ledger write failed", "error", err)
	}
}
