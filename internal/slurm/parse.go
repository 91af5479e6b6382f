package slurm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrParse reports that a submission response did not contain a job
// identifier in the expected form.
var ErrParse = errors.New("unrecognized sbatch response")

// submittedPrefix is the sbatch acknowledgment line. Two variants exist
// in the wild:
//
//	Submitted batch job 12345
//	Submitted batch job 12345 on cluster hpc2
//
// Only the numeric identifier matters; everything else is discarded.
const submittedPrefix = "Submitted batch job "

// ParseJobID extracts the job identifier from raw sbatch output. The
// output may carry informational lines before the acknowledgment; the
// first line with the expected prefix wins. A response without such a
// line, or with a non-numeric identifier, yields ErrParse.
func ParseJobID(raw string) (JobID, error) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, submittedPrefix) {
			continue
		}
		rest := strings.TrimPrefix(line, submittedPrefix)
		id, _, _ := strings.Cut(rest, " ")
		if !isDigits(id) {
			return "", fmt.Errorf("%w: %q", ErrParse, line)
		}
		return JobID(id), nil
	}
	return "", fmt.Errorf("%w: %q", ErrParse, strings.TrimSpace(raw))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
