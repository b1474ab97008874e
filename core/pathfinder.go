package core

import "errors"

// ErrNoConnection is returned by StepPath when the source tile has no
// finite distance in the field (spec.md §4.1).
var ErrNoConnection = errors.New("pathfinder: no connection to source")

// EdgeFunc reports whether a mover can step from `from` onto `to`. It is
// externally supplied so the pathfinder stays agnostic of static-obstacle
// data and faction-aware blocking rules (spec.md §4.1, §4.3).
type EdgeFunc func(from, to Hex) bool

// DistanceField is a BFS distance field over a bounded region, computed
// from one or more sources with uniform edge cost 1.
type DistanceField struct {
	dist    map[Hex]int
	sources map[Hex]bool
	passable EdgeFunc
}

// BuildDistanceField runs a BFS from sources, expanding through tiles for
// which bounds(h) holds, using passable(from, to) as the edge predicate.
// The field covers every tile reachable within maxRadius BFS-steps of any
// source (maxRadius <= 0 means unbounded search within `bounds`).
func BuildDistanceField(sources []Hex, bounds func(Hex) bool, passable EdgeFunc, maxRadius int) *DistanceField {
	df := &DistanceField{
		dist:     make(map[Hex]int),
		sources:  make(map[Hex]bool, len(sources)),
		passable: passable,
	}
	type qitem struct {
		h Hex
		d int
	}
	queue := make([]qitem, 0, len(sources))
	for _, s := range sources {
		if _, seen := df.dist[s]; seen {
			continue
		}
		df.dist[s] = 0
		df.sources[s] = true
		queue = append(queue, qitem{h: s, d: 0})
	}
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if maxRadius > 0 && cur.d >= maxRadius {
			continue
		}
		for _, n := range cur.h.Neighbours() {
			if bounds != nil && !bounds(n) {
				continue
			}
			if _, seen := df.dist[n]; seen {
				continue
			}
			if !passable(cur.h, n) {
				continue
			}
			df.dist[n] = cur.d + 1
			queue = append(queue, qitem{h: n, d: cur.d + 1})
		}
	}
	return df
}

// Distance returns the BFS distance to h and whether it is finite (part
// of the field at all).
func (df *DistanceField) Distance(h Hex) (int, bool) {
	d, ok := df.dist[h]
	return d, ok
}

// StepPath iterates a path from source toward the field's sources, one
// tile at a time, always moving to the neighbour with strictly smaller
// distance, tie-broken by the fixed neighbour order (spec.md §4.1).
type StepPath struct {
	df  *DistanceField
	cur Hex
	ok  bool
}

// NewStepPath starts a StepPath at source. It returns ErrNoConnection if
// source has no finite distance in df.
func (df *DistanceField) NewStepPath(source Hex) (*StepPath, error) {
	if _, ok := df.dist[source]; !ok {
		return nil, ErrNoConnection
	}
	return &StepPath{df: df, cur: source, ok: true}, nil
}

// Done reports whether the path has reached one of the field's sources.
func (p *StepPath) Done() bool {
	return p.df.sources[p.cur]
}

// Next advances one tile toward the source, returning the edge cost
// consumed (always 1 — the pathfinder's BFS uses uniform edge cost; a
// terrain-aware step-cost multiplier, if any, is applied by the movement
// subsystem on top of this, see core/movement.go). ok is false once the
// path has already reached a source.
func (p *StepPath) Next() (cost int, ok bool) {
	if p.Done() {
		return 0, false
	}
	curDist, _ := p.df.Distance(p.cur)
	for _, n := range p.cur.Neighbours() {
		nd, has := p.df.Distance(n)
		if has && nd < curDist {
			p.cur = n
			return 1, true
		}
	}
	// No strictly-smaller neighbour: the field is inconsistent (should
	// not happen for a correctly-built BFS field reachable from cur).
	return 0, false
}

// Current returns the tile the path is currently standing on.
func (p *StepPath) Current() Hex { return p.cur }
