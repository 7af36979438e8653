// Package commonerr defines the failure taxonomy shared across the
// orchestrator's stages. Every error here is fatal for the whole run;
// nothing in this harness retries.
package commonerr

import "fmt"

// ProvisionError: the environment or database for a version failed to
// come up.
type ProvisionError struct {
	Target string // what failed to provision: "environment", "database", ...
	Err    error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning %s: %v", e.Target, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// SmokeTestError: a step of the smoke protocol exited non-zero. Step
// carries the protocol step name for diagnostics.
type SmokeTestError struct {
	Step string
	Err  error
}

func (e *SmokeTestError) Error() string {
	return fmt.Sprintf("smoke test step %q: %v", e.Step, e.Err)
}

func (e *SmokeTestError) Unwrap() error { return e.Err }

// ConsistencyError: the run history after a backup/restore cycle does
// not match the snapshot taken before it. Both snapshots are carried so
// the first divergent line is diagnosable without rerunning.
type ConsistencyError struct {
	Mode   string
	Before string
	After  string
	Diff   string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("run history diverged after %s backup/restore cycle", e.Mode)
}
