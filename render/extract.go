package render

import (
	"math"

	"github.com/sdfmesh/sdfmesh"
	"github.com/soypat/geometry/md3"
)

// dirTangentAxes lists per face direction the two in-plane axis indices
// (u, v) chosen so that u×v equals the outward face normal. Quads wound
// (−u−v, +u−v, +u+v, −u+v) are therefore counter-clockwise seen from
// outside the cell. Fixed at compile time so emission and adjacency can
// never drift apart.
var dirTangentAxes = [6][2]int{
	DirXPos: {1, 2},
	DirXNeg: {2, 1},
	DirYPos: {2, 0},
	DirYNeg: {0, 2},
	DirZPos: {0, 1},
	DirZNeg: {1, 0},
}

// latticeSteps is the resolution of the integer lattice used for vertex
// deduplication. Every corner and midpoint of a power-of-two octree lies
// exactly on the lattice for depths below 28 levels.
const latticeSteps = 1 << 28

// ExtractSurface sweeps the boundary leaves of t and emits their exposed
// faces into m: up to six faces per cell, present only where the neighbor
// in that direction is outside the solid or past the root boundary. Faces
// abutting a finer subdivided neighbor are emitted per-quadrant and the
// resulting T-junctions resolved through the mesh's late split mechanism
// after the sweep completes.
func ExtractSurface(t *Tree, m *Mesh) error {
	half := t.size / 2
	ex := &extractor{
		tree:  t,
		mesh:  m,
		cache: make(map[[3]int64]int),
		scale: latticeSteps / t.size,
		orig:  md3.Vec{X: t.center.X - half, Y: t.center.Y - half, Z: t.center.Z - half},
	}
	err := t.WalkLeaves(func(n int32, center md3.Vec, size float64, state CellState) error {
		if state != CellBoundary {
			return nil
		}
		return ex.emitCell(n, center, size)
	})
	if err != nil {
		return err
	}
	return ex.drainSplits()
}

type extractor struct {
	tree  *Tree
	mesh  *Mesh
	cache map[[3]int64]int
	scale float64
	orig  md3.Vec
	// queue holds deferred T-junction edge splits in sweep order, coarse
	// splits strictly before the finer splits nested within them.
	queue []edgeSplit
}

// edgeSplit defers the insertion of mid into whatever coarse half-edge
// spans start–end once the full sweep is known.
type edgeSplit struct {
	start, mid, end md3.Vec
	local           sdfmesh.SDF3
}

func (ex *extractor) emitCell(n int32, center md3.Vec, size float64) error {
	half := size / 2
	local := ex.tree.LocalSurface(n)
	for _, dir := range Directions {
		fc := md3.Add(center, md3.Scale(half, dir.Vec()))
		nb := ex.tree.NeighborAt(n, dir)
		switch {
		case nb < 0:
			// Root boundary counts as outside.
			if err := ex.emitQuad(fc, half, dir, local); err != nil {
				return err
			}
		case ex.tree.IsLeaf(nb):
			// The neighbor leaf may be coarser than this cell; its state
			// alone decides. Inside and boundary neighbors emit nothing.
			if ex.tree.State(nb) == CellOutside {
				if err := ex.emitQuad(fc, half, dir, local); err != nil {
					return err
				}
			}
		default:
			if err := ex.emitSplit(nb, fc, half, dir, local); err != nil {
				return err
			}
		}
	}
	return nil
}

// emitQuad emits the face quad centered at fc with half-extent half as
// two counter-clockwise triangles.
func (ex *extractor) emitQuad(fc md3.Vec, half float64, dir Direction, local sdfmesh.SDF3) error {
	ua, va := dirTangentAxes[dir][0], dirTangentAxes[dir][1]
	hu := md3.Scale(half, axisVec[ua])
	hv := md3.Scale(half, axisVec[va])
	a := ex.vertex(md3.Sub(md3.Sub(fc, hu), hv), local)
	b := ex.vertex(md3.Sub(md3.Add(fc, hu), hv), local)
	c := ex.vertex(md3.Add(md3.Add(fc, hu), hv), local)
	d := ex.vertex(md3.Add(md3.Sub(fc, hu), hv), local)
	if _, err := ex.mesh.AddFace(a, b, c); err != nil {
		return err
	}
	_, err := ex.mesh.AddFace(a, c, d)
	return err
}

// emitSplit handles a face whose neighbor nb is subdivided: the face is
// split into a 2×2 grid of sub-quads matched against the four adjacent
// children of nb. The outer edges of the split face border coarser
// geometry, so their midpoints are queued for late splitting.
func (ex *extractor) emitSplit(nb int32, fc md3.Vec, half float64, dir Direction, local sdfmesh.SDF3) error {
	ua, va := dirTangentAxes[dir][0], dirTangentAxes[dir][1]
	hu := md3.Scale(half, axisVec[ua])
	hv := md3.Scale(half, axisVec[va])
	p00 := md3.Sub(md3.Sub(fc, hu), hv)
	p10 := md3.Sub(md3.Add(fc, hu), hv)
	p11 := md3.Add(md3.Add(fc, hu), hv)
	p01 := md3.Add(md3.Sub(fc, hu), hv)
	ex.queue = append(ex.queue,
		edgeSplit{start: p00, mid: md3.Sub(fc, hv), end: p10, local: local},
		edgeSplit{start: p10, mid: md3.Add(fc, hu), end: p11, local: local},
		edgeSplit{start: p11, mid: md3.Add(fc, hv), end: p01, local: local},
		edgeSplit{start: p01, mid: md3.Sub(fc, hu), end: p00, local: local},
	)

	quarter := half / 2
	faceBit := int8(0)
	if !dir.positive() {
		// A neighbor on our negative side touches the face with its
		// positive-side children, and vice versa.
		faceBit = 1 << dir.axis()
	}
	for iv := 0; iv < 2; iv++ {
		for iu := 0; iu < 2; iu++ {
			oct := faceBit
			sc := fc
			if iu == 1 {
				oct |= 1 << ua
				sc = md3.Add(sc, md3.Scale(quarter, axisVec[ua]))
			} else {
				sc = md3.Sub(sc, md3.Scale(quarter, axisVec[ua]))
			}
			if iv == 1 {
				oct |= 1 << va
				sc = md3.Add(sc, md3.Scale(quarter, axisVec[va]))
			} else {
				sc = md3.Sub(sc, md3.Scale(quarter, axisVec[va]))
			}
			child := ex.tree.Child(nb, oct)
			var err error
			if ex.tree.IsLeaf(child) {
				if ex.tree.State(child) == CellOutside {
					err = ex.emitQuad(sc, quarter, dir, local)
				}
			} else {
				err = ex.emitSplit(child, sc, quarter, dir, local)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// drainSplits resolves queued T-junctions in sweep order. A queued edge
// whose endpoints never materialized as vertices, or whose coarse
// half-edge already paired, needs no split.
func (ex *extractor) drainSplits() error {
	for _, sp := range ex.queue {
		start, ok := ex.lookup(sp.start)
		if !ok {
			continue
		}
		end, ok := ex.lookup(sp.end)
		if !ok {
			continue
		}
		if _, open := ex.mesh.open[makeEdgeKey(int32(start), int32(end))]; !open {
			continue
		}
		mid := ex.vertex(sp.mid, sp.local)
		if err := ex.mesh.LateSplitEdge(start, end, mid); err != nil {
			return err
		}
	}
	return nil
}

// vertex returns the index of the deduplicated vertex at p, minting it
// with the given local surface on first use.
func (ex *extractor) vertex(p md3.Vec, local sdfmesh.SDF3) int {
	k := ex.latticeKey(p)
	if id, ok := ex.cache[k]; ok {
		return id
	}
	id := ex.mesh.AddVertex(p)
	ex.mesh.verts[id].Local = local
	ex.cache[k] = id
	return id
}

func (ex *extractor) lookup(p md3.Vec) (int, bool) {
	id, ok := ex.cache[ex.latticeKey(p)]
	return id, ok
}

// latticeKey maps p onto the dyadic integer lattice spanned by the tree
// box. Octree corners are exact on the lattice, sidestepping the float
// key precision problems of formatted-coordinate hashing.
func (ex *extractor) latticeKey(p md3.Vec) [3]int64 {
	rel := md3.Sub(p, ex.orig)
	return [3]int64{
		int64(math.Round(rel.X * ex.scale)),
		int64(math.Round(rel.Y * ex.scale)),
		int64(math.Round(rel.Z * ex.scale)),
	}
}
