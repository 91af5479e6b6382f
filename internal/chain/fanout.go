package chain

import (
	"context"
	"fmt"
	"slices"

	"github.com/me/genchain/internal/ledger"
	"github.com/me/genchain/internal/payload"
	"github.com/me/genchain/internal/slurm"
)

// SubmitWorkers submits generation g's whole population as a single
// array job of npop elements, indices 1..npop. Each element re-invokes
// this program with role w and no explicit identifier; the worker picks
// its index up from the scheduler's per-element environment, so the
// array index is the only thing differentiating the npop invocations.
func (c *Controller) SubmitWorkers(ctx context.Context, g int) (slurm.JobID, error) {
	id, err := c.client.Submit(ctx, slurm.SubmitOptions{
		JobName:    fmt.Sprintf("workers_%d", g),
		TimeLimit:  c.cfg.Worker.TimeLimit,
		MemPerCPU:  c.cfg.Worker.MemPerCPU,
		Partition:  c.cfg.Partition,
		Account:    c.cfg.Account,
		ArrayRange: fmt.Sprintf("1-%d", c.cfg.Npop),
		Output:     c.cfg.Worker.Output,
		Command:    append(slices.Clone(c.self), string(payload.RoleWorker)),
	})
	if err != nil {
		return "", err
	}
	c.record(ctx, ledger.Submission{Generation: g, Kind: ledger.KindWorkers, JobID: string(id)})
	return id, nil
}
