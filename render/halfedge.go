package render

import (
	"errors"
	"fmt"

	"github.com/sdfmesh/sdfmesh"
	"github.com/soypat/geometry/md3"
)

// noEdge is the sentinel half-edge index meaning "unpaired".
const noEdge int32 = -1

// Vertex is a mesh vertex. Local, when non-nil, is the surface expression
// of the octree cell that minted the vertex and gives better conditioned
// projection than the global SDF.
type Vertex struct {
	Pos   md3.Vec
	Local sdfmesh.SDF3
}

// HalfEdge is a directed traversal element on a mesh edge. A triangle is
// three half-edges linked into a cycle through Next; no explicit face
// record exists. Pair is the oppositely directed half-edge of the same
// undirected edge, noEdge while the matching face has not arrived.
type HalfEdge struct {
	To   int32
	Next int32
	Pair int32
}

// edgeKey identifies an undirected edge by its ordered vertex pair.
type edgeKey struct {
	lo, hi int32
}

func makeEdgeKey(a, b int32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

// Mesh is a half-edge triangle mesh. Vertices and half-edges are only
// appended, never relocated or deleted: splits mutate existing half-edges
// in place and append new ones, so indices held by callers stay valid.
type Mesh struct {
	verts []Vertex
	edges []HalfEdge
	// open maps an undirected edge to its single half-edge still lacking
	// a pair. Empty after construction iff the mesh is manifold.
	open map[edgeKey]int32
}

// NewMesh returns an empty mesh.
func NewMesh() *Mesh {
	return &Mesh{open: make(map[edgeKey]int32)}
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(pos md3.Vec) int {
	m.verts = append(m.verts, Vertex{Pos: pos})
	return len(m.verts) - 1
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.verts) }

// VertexPos returns the position of vertex i.
func (m *Mesh) VertexPos(i int) md3.Vec { return m.verts[i].Pos }

// HalfEdgeCount returns the number of half-edges.
func (m *Mesh) HalfEdgeCount() int { return len(m.edges) }

// HalfEdgeAt returns a copy of half-edge i.
func (m *Mesh) HalfEdgeAt(i int) HalfEdge { return m.edges[i] }

// TriangleCount returns the number of triangular faces.
func (m *Mesh) TriangleCount() int { return len(m.edges) / 3 }

// OpenEdgeCount returns the number of edges still missing their second
// half-edge.
func (m *Mesh) OpenEdgeCount() int { return len(m.open) }

// IsManifold reports whether no edge is left with an unpaired half-edge.
func (m *Mesh) IsManifold() bool { return len(m.open) == 0 }

// from returns the origin vertex of half-edge i by walking the triangle
// cycle: the origin is the destination of the previous half-edge.
func (m *Mesh) from(i int32) int32 {
	return m.edges[m.edges[m.edges[i].Next].Next].To
}

// AddFace creates the triangle v1→v2→v3 and returns the index of its
// first half-edge. Winding decides orientation; the caller supplies
// counter-clockwise order viewed from outside. Fails with
// ErrNonManifoldAttachment if the open half-edge recorded for one of its
// edges is already paired. A face added across an edge whose two
// half-edges have already paired is not rejected: its half-edge is
// recorded as open again, so the mesh reports non-manifold.
func (m *Mesh) AddFace(v1, v2, v3 int) (int, error) {
	base := int32(len(m.edges))
	m.edges = append(m.edges,
		HalfEdge{To: int32(v2), Next: base + 1, Pair: noEdge},
		HalfEdge{To: int32(v3), Next: base + 2, Pair: noEdge},
		HalfEdge{To: int32(v1), Next: base, Pair: noEdge},
	)
	verts := [4]int32{int32(v1), int32(v2), int32(v3), int32(v1)}
	for i := int32(0); i < 3; i++ {
		if err := m.register(base+i, verts[i], verts[i+1]); err != nil {
			return 0, fmt.Errorf("adding face (%d,%d,%d): %w", v1, v2, v3, err)
		}
	}
	return int(base), nil
}

// register pairs half-edge idx running a→b with the already open opposite
// half-edge if present, or records it as open.
func (m *Mesh) register(idx, a, b int32) error {
	k := makeEdgeKey(a, b)
	j, ok := m.open[k]
	if !ok {
		m.open[k] = idx
		return nil
	}
	if m.edges[j].Pair != noEdge {
		return ErrNonManifoldAttachment
	}
	m.edges[j].Pair = idx
	m.edges[idx].Pair = j
	delete(m.open, k)
	return nil
}

// SplitHalfEdge splits the triangle A→B→C along its edge AB by inserting
// vertex x, producing triangles A→x→C and x→B→C. The original half-edge
// keeps its slot and becomes A→x so external pair indices stay valid; its
// pair link is left for the caller to rewire. Returns the indices of A→x,
// x→C and x→B.
func (m *Mesh) SplitHalfEdge(ab int32, x int) (tailToSplit, splitToOutside, splitToHead int32) {
	bc := m.edges[ab].Next
	ca := m.edges[bc].Next
	b := m.edges[ab].To
	c := m.edges[bc].To

	base := int32(len(m.edges))
	xc, cx, xb := base, base+1, base+2
	m.edges = append(m.edges,
		HalfEdge{To: c, Next: ca, Pair: cx},        // x→C, closes A→x→C→A.
		HalfEdge{To: int32(x), Next: xb, Pair: xc}, // C→x, starts x→B→C→x.
		HalfEdge{To: b, Next: bc, Pair: noEdge},    // x→B, pair restored by caller.
	)
	m.edges[ab].To = int32(x)
	m.edges[ab].Next = xc
	m.edges[bc].Next = cx
	return ab, xc, xb
}

// SplitEdge splits both triangles of the fully paired edge ab at midpoint,
// inserting a new vertex and cross-linking the four resulting half-edges.
// Returns the inserted vertex index and the indices of the four boundary
// half-edges (A→x, x→B, B→x, x→A). Fails if ab is unpaired.
func (m *Mesh) SplitEdge(ab int32, midpoint md3.Vec) (x int, halves [4]int32, err error) {
	ba := m.edges[ab].Pair
	if ba == noEdge {
		return 0, halves, errors.New("SplitEdge requires a paired edge")
	}
	x = m.AddVertex(midpoint)
	ax, _, xb := m.SplitHalfEdge(ab, x)
	bx, _, xa := m.SplitHalfEdge(ba, x)
	m.edges[ax].Pair = xa
	m.edges[xa].Pair = ax
	m.edges[xb].Pair = bx
	m.edges[bx].Pair = xb
	return x, [4]int32{ax, xb, bx, xa}, nil
}

// LateSplitEdge resolves a T-junction recorded by the surface extractor.
// If the undirected edge (start, end) still has an open half-edge, that
// half-edge is split around vertex split and the two halves re-registered
// so the finer side's half-edges can pair with them. If the edge is not
// open the coarse side was already emitted in split form and the call is
// a no-op.
func (m *Mesh) LateSplitEdge(start, end, split int) error {
	k := makeEdgeKey(int32(start), int32(end))
	j, ok := m.open[k]
	if !ok {
		return nil
	}
	delete(m.open, k)
	origin := m.from(j)
	head := m.edges[j].To
	tail, _, toHead := m.SplitHalfEdge(j, split)
	if err := m.register(tail, origin, int32(split)); err != nil {
		return err
	}
	return m.register(toHead, int32(split), head)
}

// SerializedMesh is the flat output form of a mesh: vertex coordinates
// packed [x,y,z,x,y,z,…] and index triples wound counter-clockwise viewed
// from outside the solid.
type SerializedMesh struct {
	Vertices []float64
	Indices  []uint32
}

// Serialize enumerates triangles by walking unvisited half-edges in
// triples and flattens the mesh.
func (m *Mesh) Serialize() SerializedMesh {
	sm := SerializedMesh{
		Vertices: make([]float64, 0, 3*len(m.verts)),
		Indices:  make([]uint32, 0, len(m.edges)),
	}
	for _, v := range m.verts {
		sm.Vertices = append(sm.Vertices, v.Pos.X, v.Pos.Y, v.Pos.Z)
	}
	visited := make([]bool, len(m.edges))
	for i := range m.edges {
		if visited[i] {
			continue
		}
		j := m.edges[i].Next
		k := m.edges[j].Next
		visited[i], visited[j], visited[k] = true, true, true
		sm.Indices = append(sm.Indices,
			uint32(m.edges[k].To), // Origin of i.
			uint32(m.edges[i].To),
			uint32(m.edges[j].To),
		)
	}
	return sm
}

// FromSerialized reconstructs a half-edge mesh from serialized form.
func FromSerialized(sm SerializedMesh) (*Mesh, error) {
	if len(sm.Vertices)%3 != 0 {
		return nil, errors.New("serialized vertex array length not a multiple of 3")
	} else if len(sm.Indices)%3 != 0 {
		return nil, errors.New("serialized index array length not a multiple of 3")
	}
	m := NewMesh()
	for i := 0; i < len(sm.Vertices); i += 3 {
		m.AddVertex(md3.Vec{X: sm.Vertices[i], Y: sm.Vertices[i+1], Z: sm.Vertices[i+2]})
	}
	nv := uint32(m.VertexCount())
	for i := 0; i < len(sm.Indices); i += 3 {
		a, b, c := sm.Indices[i], sm.Indices[i+1], sm.Indices[i+2]
		if a >= nv || b >= nv || c >= nv {
			return nil, fmt.Errorf("triangle %d references vertex out of range", i/3)
		}
		if _, err := m.AddFace(int(a), int(b), int(c)); err != nil {
			return nil, err
		}
	}
	return m, nil
}
