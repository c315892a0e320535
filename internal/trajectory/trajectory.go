// Package trajectory implements the forking, time-keyed trajectory tree of
// spec §3/§4.3. A Trajectory owns its own time-ordered samples and,
// optionally, a link to the parent it was forked from; its *effective*
// timeline is the parent's prefix up to the fork time followed by its own
// samples (spec §3, invariant iii).
//
// Design Notes suggests an arena of nodes addressed by handle to avoid a
// tangle of shared pointers and get O(1) destruction. In Go that problem
// doesn't exist — the garbage collector already handles cyclic ownership
// — so this is a plain tree of pointers instead; DeleteFork still gives
// O(1) detachment of a subtree (the parent forgets the child; nothing else
// references it), and every node is marked destroyed so further use is
// caught rather than silently reading stale data (spec §8, "accessing any
// is a programmer error").
package trajectory

import (
	"fmt"
	"sort"

	"github.com/OCAP2/extension/v5/internal/body"
	"github.com/OCAP2/extension/v5/internal/geometry"
	"github.com/OCAP2/extension/v5/internal/quantities"
)

// Trajectory is a node in the fork tree described above, parametrized by
// the frame its samples are expressed in.
type Trajectory[F geometry.Frame] struct {
	body *body.Body

	parent      *Trajectory[F]
	hasFork     bool
	forkTime    quantities.Instant
	forks       []*Trajectory[F]

	times  []quantities.Instant
	values []geometry.DegreesOfFreedom[F]

	destroyed bool
}

// New creates an empty root trajectory owned by b.
func New[F geometry.Frame](b *body.Body) *Trajectory[F] {
	return &Trajectory[F]{body: b}
}

func (t *Trajectory[F]) checkAlive() {
	if t.destroyed {
		panic("trajectory: use of a destroyed trajectory node")
	}
}

// Body recovers the body this trajectory belongs to.
func (t *Trajectory[F]) Body() *body.Body {
	t.checkAlive()
	return t.body
}

// Append adds a sample at t. t must be strictly greater than the current
// effective Last().time; violating this is a programmer error (spec §4.3,
// §7) and panics rather than returning an error, consistent with the
// integrator's own argument-validation policy.
func (t *Trajectory[F]) Append(at quantities.Instant, dof geometry.DegreesOfFreedom[F]) {
	t.checkAlive()
	if last, ok := t.lastEffective(); ok && at <= last {
		panic(fmt.Sprintf("trajectory: Append(%v) is not after last sample %v", at, last))
	}
	t.times = append(t.times, at)
	t.values = append(t.values, dof)
}

// Fork creates a child trajectory whose effective prefix is t's effective
// timeline truncated at at. at must equal some sample time in t's
// effective timeline; this is asserted, per spec §4.3.
func (t *Trajectory[F]) Fork(at quantities.Instant) *Trajectory[F] {
	t.checkAlive()
	if _, ok := t.find(at); !ok {
		panic(fmt.Sprintf("trajectory: Fork(%v) time not found in effective timeline", at))
	}
	child := &Trajectory[F]{
		body:     t.body,
		parent:   t,
		hasFork:  true,
		forkTime: at,
	}
	t.forks = append(t.forks, child)
	return child
}

// DeleteFork removes child from t's forks and destroys its whole subtree.
// child must be a direct fork of t.
func (t *Trajectory[F]) DeleteFork(child *Trajectory[F]) {
	t.checkAlive()
	for i, f := range t.forks {
		if f == child {
			t.forks = append(t.forks[:i], t.forks[i+1:]...)
			destroySubtree(child)
			return
		}
	}
	panic("trajectory: DeleteFork called with a trajectory that is not a direct fork")
}

func destroySubtree[F geometry.Frame](n *Trajectory[F]) {
	for _, f := range n.forks {
		destroySubtree(f)
	}
	n.forks = nil
	n.times = nil
	n.values = nil
	n.parent = nil
	n.destroyed = true
}

// lastEffective returns the time of the effective Last sample, if any.
func (t *Trajectory[F]) lastEffective() (quantities.Instant, bool) {
	if len(t.times) > 0 {
		return t.times[len(t.times)-1], true
	}
	if t.hasFork {
		return t.forkTime, true
	}
	return 0, false
}

// Last returns the most recent effective sample.
func (t *Trajectory[F]) Last() (quantities.Instant, geometry.DegreesOfFreedom[F], bool) {
	t.checkAlive()
	if len(t.times) > 0 {
		i := len(t.times) - 1
		return t.times[i], t.values[i], true
	}
	if t.hasFork {
		dof, ok := t.parent.Find(t.forkTime)
		return t.forkTime, dof, ok
	}
	var zero geometry.DegreesOfFreedom[F]
	return 0, zero, false
}

// First returns the earliest effective sample.
func (t *Trajectory[F]) First() (quantities.Instant, geometry.DegreesOfFreedom[F], bool) {
	t.checkAlive()
	if t.hasFork {
		return t.parent.First()
	}
	if len(t.times) == 0 {
		var zero geometry.DegreesOfFreedom[F]
		return 0, zero, false
	}
	return t.times[0], t.values[0], true
}

// find is the internal, non-panicking lookup used by Fork/Append.
func (t *Trajectory[F]) find(at quantities.Instant) (geometry.DegreesOfFreedom[F], bool) {
	if t.hasFork && at <= t.forkTime {
		return t.parent.find(at)
	}
	idx := sort.Search(len(t.times), func(i int) bool { return t.times[i] >= at })
	if idx < len(t.times) && t.times[idx] == at {
		return t.values[idx], true
	}
	var zero geometry.DegreesOfFreedom[F]
	return zero, false
}

// Find looks up the sample at exactly at in the effective timeline.
func (t *Trajectory[F]) Find(at quantities.Instant) (geometry.DegreesOfFreedom[F], bool) {
	t.checkAlive()
	return t.find(at)
}

// sample is one (time, dof) pair of the effective timeline, used to build
// the flattened sequence that both iterator flavors walk.
type sample[F geometry.Frame] struct {
	t   quantities.Instant
	dof geometry.DegreesOfFreedom[F]
}

// effectiveSamples flattens the parent chain (truncated at each fork time)
// followed by t's own samples, in ascending time order (spec §3 invariant
// iv, §4.3's iterator contract).
func (t *Trajectory[F]) effectiveSamples() []sample[F] {
	var prefix []sample[F]
	if t.hasFork {
		prefix = t.parent.effectiveSamplesUpTo(t.forkTime)
	}
	own := make([]sample[F], len(t.times))
	for i := range t.times {
		own[i] = sample[F]{t.times[i], t.values[i]}
	}
	return append(prefix, own...)
}

func (t *Trajectory[F]) effectiveSamplesUpTo(cutoff quantities.Instant) []sample[F] {
	all := t.effectiveSamples()
	idx := sort.Search(len(all), func(i int) bool { return all[i].t > cutoff })
	return all[:idx]
}

// Iterator yields (time, dof) pairs of the effective timeline in ascending
// order, one of Trajectory's two lazy iterator flavors (spec §4.3).
func (t *Trajectory[F]) Iterator(yield func(quantities.Instant, geometry.DegreesOfFreedom[F]) bool) {
	t.checkAlive()
	for _, s := range t.effectiveSamples() {
		if !yield(s.t, s.dof) {
			return
		}
	}
}

// Transform converts a (trajectory, time, dof) triple in frame F to a dof
// in frame G. TransformingIterator (below) defers calling Transform until
// the consumer pulls the next element, per spec §4.3 and Design Notes
// ("Lazy trajectory providers in Transforms").
type Transform[F, G geometry.Frame] func(*Trajectory[F], quantities.Instant, geometry.DegreesOfFreedom[F]) geometry.DegreesOfFreedom[G]

// TransformingIterator returns the second lazy iterator flavor: it walks
// the same effective timeline as Iterator but applies transform to each
// sample as it is pulled, rather than eagerly materializing a new
// trajectory. This enables the two-pass rendering pipeline of spec §4.6
// without allocating an intermediate trajectory when the caller only wants
// to stream the result.
func TransformingIterator[F, G geometry.Frame](t *Trajectory[F], transform Transform[F, G]) func(func(quantities.Instant, geometry.DegreesOfFreedom[G]) bool) {
	t.checkAlive()
	return func(yield func(quantities.Instant, geometry.DegreesOfFreedom[G]) bool) {
		for _, s := range t.effectiveSamples() {
			if !yield(s.t, transform(t, s.t, s.dof)) {
				return
			}
		}
	}
}

// Materialize eagerly drains a (time, dof) iterator into a new root
// Trajectory[G], used to build the intermediate Through-frame trajectory
// of spec §4.4/§4.6's two-pass transform pipeline.
func Materialize[G geometry.Frame](b *body.Body, seq func(func(quantities.Instant, geometry.DegreesOfFreedom[G]) bool)) *Trajectory[G] {
	out := New[G](b)
	seq(func(t quantities.Instant, dof geometry.DegreesOfFreedom[G]) bool {
		out.Append(t, dof)
		return true
	})
	return out
}
