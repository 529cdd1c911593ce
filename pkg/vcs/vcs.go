// Package vcs provides a vendor-agnostic "make this file writable" hook for
// the Atomic Writer (spec.md §4.2 step 3). The core never hard-depends on a
// specific VCS; two implementations exist (none and p4) chosen once at
// startup, grounded on original_source's ensure_writable (tries `p4 edit`,
// falls back to chmod).
package vcs

import (
	"context"
	"os/exec"
	"time"
)

// CheckoutTimeout bounds the subprocess call per spec.md §5.
const CheckoutTimeout = 60 * time.Second

// Hook attempts to make path writable under version control before the
// Atomic Writer clears the read-only bit itself. Checkout returns nil
// whether or not it actually did anything — the caller always falls back to
// clearing the OS read-only attribute afterward.
type Hook interface {
	Checkout(ctx context.Context, path string) error
}

// None is the no-op hook: every call from the Atomic Writer simply falls
// through to an OS-level chmod.
type None struct{}

func (None) Checkout(ctx context.Context, path string) error { return nil }

// Perforce shells out to `p4 edit <path>`. If the p4 binary isn't on PATH,
// Checkout returns nil (not an error) so the Atomic Writer's chmod fallback
// takes over silently, matching original_source's FileNotFoundError handling.
type Perforce struct {
	// Binary overrides the p4 executable name, for tests.
	Binary string
}

func (p Perforce) Checkout(ctx context.Context, path string) error {
	bin := p.Binary
	if bin == "" {
		bin = "p4"
	}
	ctx, cancel := context.WithTimeout(ctx, CheckoutTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "edit", path)
	if err := cmd.Run(); err != nil {
		if execErrIsNotFound(err) {
			return nil
		}
		// p4 present but the checkout failed (not under client, no
		// connection, etc): not fatal, the chmod fallback still applies.
		return nil
	}
	return nil
}

func execErrIsNotFound(err error) bool {
	_, ok := err.(*exec.Error)
	return ok
}

// New selects a hook implementation by name ("none" or "p4").
func New(kind string) Hook {
	switch kind {
	case "p4":
		return Perforce{}
	default:
		return None{}
	}
}
