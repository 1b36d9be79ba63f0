package render

import (
	"container/heap"

	"github.com/sdfmesh/sdfmesh"
	"github.com/soypat/geometry/md3"
)

const (
	// projIterations bounds the Newton-style descent per vertex.
	projIterations = 10
	// gradStep is the central difference step for gradient estimation.
	gradStep = 1e-4
	// projTol is the distance below which a vertex counts as on-surface.
	projTol = 1e-4
)

// OptimizeVertices relocates every vertex onto the SDF zero isosurface by
// gradient descent. Vertices carrying a local surface from octree
// classification descend against it; the rest use global. Calling twice
// with the same SDF moves vertices by less than the projection tolerance
// on the second pass.
func (m *Mesh) OptimizeVertices(global sdfmesh.SDF3) {
	for i := range m.verts {
		s := m.verts[i].Local
		if s == nil {
			s = global
		}
		m.verts[i].Pos = projectToSurface(s, m.verts[i].Pos)
	}
}

func projectToSurface(s sdfmesh.SDF3, p md3.Vec) md3.Vec {
	for it := 0; it < projIterations; it++ {
		d := s.Evaluate(p)
		if absf(d) < projTol {
			break
		}
		g := gradient(s, p)
		n := md3.Norm(g)
		if n < 1e-12 {
			break // Degenerate gradient, leave vertex in place.
		}
		p = md3.Sub(p, md3.Scale(d/n, g))
	}
	return p
}

// gradient estimates ∇s at p by central differences. Not normalized.
func gradient(s sdfmesh.SDF3, p md3.Vec) md3.Vec {
	const h = gradStep
	return md3.Vec{
		X: s.Evaluate(md3.Vec{X: p.X + h, Y: p.Y, Z: p.Z}) - s.Evaluate(md3.Vec{X: p.X - h, Y: p.Y, Z: p.Z}),
		Y: s.Evaluate(md3.Vec{X: p.X, Y: p.Y + h, Z: p.Z}) - s.Evaluate(md3.Vec{X: p.X, Y: p.Y - h, Z: p.Z}),
		Z: s.Evaluate(md3.Vec{X: p.X, Y: p.Y, Z: p.Z + h}) - s.Evaluate(md3.Vec{X: p.X, Y: p.Y, Z: p.Z - h}),
	}
}

const (
	// maxEdgeSplitDepth bounds how many times one original edge may be
	// recursively split during refinement.
	maxEdgeSplitDepth = 8
	// globalSplitFactor bounds total refinement splits relative to the
	// initial edge count.
	globalSplitFactor = 4
)

// RefineEdges splits paired edges whose midpoint deviates from the
// surface by more than minSize/100 and whose length exceeds minSize/100,
// processing worst deviations first. New vertices are projected onto the
// surface. Termination is guaranteed by a fixed per-edge split depth and
// a global split cap proportional to the initial edge count.
func (m *Mesh) RefineEdges(global sdfmesh.SDF3, minSize float64) error {
	errThresh := minSize / 100
	minLength := minSize / 100
	var q refineQueue
	for i := int32(0); i < int32(len(m.edges)); i++ {
		if m.edges[i].Pair < i {
			continue // Visit each undirected edge once; skips unpaired too.
		}
		if dev, ok := m.edgeDeviation(i, global, errThresh, minLength); ok {
			q = append(q, refineItem{edge: i, deviation: dev})
		}
	}
	heap.Init(&q)

	splitsLeft := globalSplitFactor * (len(m.edges) / 2)
	for q.Len() > 0 && splitsLeft > 0 {
		item := heap.Pop(&q).(refineItem)
		// Edges mutate in place during splits; re-verify before acting.
		if _, ok := m.edgeDeviation(item.edge, global, errThresh, minLength); !ok {
			continue
		}
		if m.edges[item.edge].Pair == noEdge {
			continue
		}
		a := m.from(item.edge)
		b := m.edges[item.edge].To
		mid := md3.Scale(0.5, md3.Add(m.verts[a].Pos, m.verts[b].Pos))
		x, halves, err := m.SplitEdge(item.edge, mid)
		if err != nil {
			return err
		}
		splitsLeft--
		// The midpoint inherits a local surface and is pulled onto it.
		local := m.verts[a].Local
		if local == nil {
			local = m.verts[b].Local
		}
		m.verts[x].Local = local
		s := local
		if s == nil {
			s = global
		}
		m.verts[x].Pos = projectToSurface(s, m.verts[x].Pos)

		if item.attempts+1 >= maxEdgeSplitDepth {
			continue
		}
		for _, h := range halves[:2] { // A→x and x→B cover both halves.
			if dev, ok := m.edgeDeviation(h, global, errThresh, minLength); ok {
				heap.Push(&q, refineItem{edge: h, deviation: dev, attempts: item.attempts + 1})
			}
		}
	}
	return nil
}

// edgeDeviation returns the midpoint's distance from the surface and
// whether the edge qualifies for splitting.
func (m *Mesh) edgeDeviation(e int32, global sdfmesh.SDF3, errThresh, minLength float64) (float64, bool) {
	a := m.from(e)
	b := m.edges[e].To
	pa, pb := m.verts[a].Pos, m.verts[b].Pos
	if md3.Norm(md3.Sub(pa, pb)) <= minLength {
		return 0, false
	}
	mid := md3.Scale(0.5, md3.Add(pa, pb))
	s := m.verts[a].Local
	if s == nil {
		s = global
	}
	dev := absf(s.Evaluate(mid))
	return dev, dev > errThresh
}

type refineItem struct {
	edge      int32
	deviation float64
	attempts  int
}

// refineQueue is a max-heap of edges keyed by midpoint deviation.
type refineQueue []refineItem

func (q refineQueue) Len() int { return len(q) }

func (q refineQueue) Less(i, j int) bool { return q[i].deviation > q[j].deviation }

func (q refineQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *refineQueue) Push(x any) { *q = append(*q, x.(refineItem)) }

func (q *refineQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
