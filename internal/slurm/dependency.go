package slurm

import (
	"fmt"
	"strings"
)

// AfterOK builds the dependency expression gating a job on the
// successful completion of every element of an array job:
//
//	afterok:<id>_1:<id>_2:...:<id>_npop
//
// Listing each element explicitly, rather than the bare array id, pins
// the condition to exactly the npop indices the fan-out requested. The
// result is deterministic for a given (id, npop) pair.
func AfterOK(id JobID, npop int) string {
	var b strings.Builder
	b.WriteString("afterok")
	for i := 1; i <= npop; i++ {
		fmt.Fprintf(&b, ":%s_%d", id, i)
	}
	return b.String()
}
