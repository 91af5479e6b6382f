package chain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// TerminationSource reports whether the chain has been told to stop.
// The controller evaluates it at its two checkpoints (entry and
// post-fan-out); it never sets or clears the signal itself.
type TerminationSource interface {
	Signaled() (bool, error)
}

// FileMarker observes a marker file on the shared filesystem. Existence
// is the whole signal; the content is never read. The marker is created
// by the operator (or by the payload on convergence) and persists until
// externally removed, so every later generation sees it too.
type FileMarker struct {
	Path string
}

// Signaled reports whether the marker exists. An unreadable marker
// location is an error: the chain must not keep spawning generations
// when it cannot tell whether it was told to stop.
func (m FileMarker) Signaled() (bool, error) {
	_, err := os.Stat(m.Path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat marker %s: %w", m.Path, err)
}

// CeilingReached reports whether generation g is past the ceiling.
// g == nmax still runs; g == nmax+1 halts.
func CeilingReached(g, nmax int) bool {
	return g > nmax
}
