// Package gate answers "is capability X available at version V" for the
// version-dependent behavior of the application under test.
package gate

import (
	"sort"

	"github.com/seqra/migtest/internal/semver"
)

// Capability names a version-gated behavior of the application under test.
type Capability string

const (
	// CapTemplatedInit: the app's own initializer can scaffold a starter
	// project; older releases need the external template fallback.
	CapTemplatedInit Capability = "supports-templated-init"
	// CapPipelineSelectors: the pipeline entry point accepts feature and
	// training sub-pipeline selector flags.
	CapPipelineSelectors Capability = "supports-pipeline-selectors"
	// CapBackupRestore: the backup-database / restore-database commands exist.
	CapBackupRestore Capability = "supports-backup-restore"
	// CapMySQL / CapMariaDB: the release can run against the given engine.
	CapMySQL   Capability = "supports-mysql"
	CapMariaDB Capability = "supports-mariadb"
)

// Threshold describes where a capability is available. Min is the first
// release carrying it. BrokenBefore, when set, marks [Min, BrokenBefore)
// as a known-broken range: the capability only counts from BrokenBefore
// on. RemovedInCurrent marks capabilities dropped from the working copy.
type Threshold struct {
	Min              semver.Version
	BrokenBefore     *semver.Version
	RemovedInCurrent bool
}

// Gate holds the capability table. Immutable after construction.
type Gate struct {
	thresholds map[Capability]Threshold
}

// New builds a gate from an explicit table.
func New(thresholds map[Capability]Threshold) *Gate {
	m := make(map[Capability]Threshold, len(thresholds))
	for c, t := range thresholds {
		m[c] = t
	}
	return &Gate{thresholds: m}
}

// Default returns the capability table for the application under test.
func Default() *Gate {
	return New(map[Capability]Threshold{
		CapTemplatedInit:     {Min: semver.MustParse("0.43.0")},
		CapPipelineSelectors: {Min: semver.MustParse("0.52.0")},
		CapBackupRestore:     {Min: semver.MustParse("0.56.4")},
		CapMySQL:             {Min: semver.Version{}},
		CapMariaDB:           {Min: semver.MustParse("0.54.0")},
	})
}

// Supports reports whether capability c is usable at version v. Unknown
// capabilities are never supported. The current working copy supports
// everything not explicitly removed from it.
func (g *Gate) Supports(c Capability, v semver.Version) bool {
	t, ok := g.thresholds[c]
	if !ok {
		return false
	}
	if v.IsCurrent() {
		return !t.RemovedInCurrent
	}
	if !v.AtLeast(t.Min) {
		return false
	}
	if t.BrokenBefore != nil && !v.AtLeast(*t.BrokenBefore) {
		return false
	}
	return true
}

// Threshold returns the table entry for c, if any.
func (g *Gate) Threshold(c Capability) (Threshold, bool) {
	t, ok := g.thresholds[c]
	return t, ok
}

// Capabilities returns the known capability names in sorted order.
func (g *Gate) Capabilities() []Capability {
	out := make([]Capability, 0, len(g.thresholds))
	for c := range g.thresholds {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
