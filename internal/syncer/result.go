package syncer

import (
	"time"

	"github.com/google/uuid"
)

// Failure records one security that could not be synchronized. The batch
// continues past these; only quota exhaustion or cancellation stops it.
type Failure struct {
	Symbol string
	Err    error
}

// Result summarizes one synchronization run.
type Result struct {
	RunID    uuid.UUID
	Started  time.Time
	Finished time.Time

	SecuritiesScanned int
	BarsUpserted      int
	ActionsUpserted   int
	SnapshotsUpserted int
	// Skipped counts securities that were already up to date.
	Skipped int
	// FullRefetches counts securities whose history was invalidated by
	// revision drift and re-fetched from the floor.
	FullRefetches int

	Failures []Failure
}

func newResult(n int) *Result {
	return &Result{
		RunID:             uuid.New(),
		Started:           time.Now().UTC(),
		SecuritiesScanned: n,
	}
}

func (r *Result) finish() *Result {
	r.Finished = time.Now().UTC()
	return r
}

// Duration is the wall-clock time the run took.
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
