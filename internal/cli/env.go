package cli

import (
	"fmt"
	"os"
	"strconv"
)

// Ambient scheduler environment. SLURM sets these on every launched job;
// their absence means the program was invoked directly by an operator.
const (
	envJobID      = "SLURM_JOB_ID"
	envArrayIndex = "SLURM_ARRAY_TASK_ID"
)

// insideScheduler reports whether this process is running as a
// scheduler-launched job.
func insideScheduler() bool {
	return os.Getenv(envJobID) != ""
}

// arrayIndex returns this worker's index from the scheduler's
// per-array-element environment.
func arrayIndex() (int, error) {
	v := os.Getenv(envArrayIndex)
	if v == "" {
		return 0, fmt.Errorf("%s not set: worker invocations need an array element or an explicit id", envArrayIndex)
	}
	idx, err := strconv.Atoi(v)
	if err != nil || idx < 1 {
		return 0, fmt.Errorf("invalid %s value %q", envArrayIndex, v)
	}
	return idx, nil
}
