package mesh

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Construction errors. New fails atomically: when any of these is returned no
// partially built Mesh is ever exposed. Callers discriminate with errors.Is.
var (
	// ErrDuplicateTag reports two records sharing an external tag, or an
	// element referencing the same node more than once.
	ErrDuplicateTag = errors.New("duplicate tag")
	// ErrUnresolvedReference reports a record referencing an unknown tag.
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrCapacityExceeded reports node or element counts that do not fit
	// the region index integer width.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrNonManifold reports a face shared by more than two tetrahedra.
	ErrNonManifold = errors.New("non-manifold topology")
)

// ErrRegionIndex is returned by per-call queries given a region index outside
// [0, NumElements). It is the caller's responsibility and always recoverable.
var ErrRegionIndex = errors.New("region index out of bounds")

// FatalInconsistencyError reports an unrecoverable mesh/position disagreement:
// lost-particle recovery relocated the particle to the very region that
// already failed its containment and intersection tests. Continuing transport
// after this error risks silently wrong results, so it must propagate to the
// top level and terminate the run. It is never returned for conditions a
// caller could retry.
type FatalInconsistencyError struct {
	Region    int
	Position  r3.Vec
	Direction r3.Vec
}

func (e *FatalInconsistencyError) Error() string {
	return fmt.Sprintf(
		"mesh: unrecoverable transport inconsistency in region %d: x=(%.17g,%.17g,%.17g) u=(%.17g,%.17g,%.17g)",
		e.Region,
		e.Position.X, e.Position.Y, e.Position.Z,
		e.Direction.X, e.Direction.Y, e.Direction.Z,
	)
}
