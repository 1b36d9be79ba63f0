package render

import (
	"context"
	"errors"

	"github.com/sdfmesh/sdfmesh"
	"github.com/soypat/geometry/md3"
)

// CellState classifies an octree leaf against the SDF.
type CellState uint8

const (
	// CellInside marks a leaf entirely inside the solid.
	CellInside CellState = iota + 1
	// CellOutside marks a leaf entirely outside the solid.
	CellOutside
	// CellBoundary marks a leaf crossed by the surface.
	CellBoundary
)

func (s CellState) String() string {
	switch s {
	case CellInside:
		return "inside"
	case CellOutside:
		return "outside"
	case CellBoundary:
		return "boundary"
	}
	return "undefined"
}

// Direction is one of the six axial face directions.
type Direction uint8

const (
	DirXPos Direction = iota
	DirXNeg
	DirYPos
	DirYNeg
	DirZPos
	DirZNeg
)

// Directions lists all six face directions for range loops.
var Directions = [6]Direction{DirXPos, DirXNeg, DirYPos, DirYNeg, DirZPos, DirZNeg}

func (d Direction) axis() int { return int(d) / 2 }

func (d Direction) positive() bool { return d%2 == 0 }

// Vec returns the unit vector of the direction.
func (d Direction) Vec() md3.Vec {
	v := axisVec[d.axis()]
	if !d.positive() {
		v = md3.Scale(-1, v)
	}
	return v
}

var axisVec = [3]md3.Vec{{X: 1}, {Y: 1}, {Z: 1}}

// node is an octree cell in the tree arena. Geometry is not stored; it is
// derived during traversal from the root center/size and the octant path.
type node struct {
	parent int32 // arena index of parent, -1 for root.
	kids   int32 // arena index of first of 8 contiguous children, 0 when leaf.
	octant int8  // octant within parent, -1 for root.
	state  CellState
	// local is the surface expression captured at classification time for
	// boundary cells. Vertices minted on this cell project against it.
	local sdfmesh.SDF3
}

// Tree is a classified octree over a cubic region of space. Nodes live in
// a flat arena addressed by int32 handles so parent back-references used
// for neighbor queries never form ownership cycles.
type Tree struct {
	nodes  []node
	center md3.Vec
	size   float64
	cells  int
}

const (
	// progressStride is the cell count between progress callbacks.
	progressStride = 256
	// contentPadding expands classification boxes by 10% per axis to catch
	// surfaces grazing a cell face.
	contentPadding = 1.1
)

// BuildOctree classifies space against s into an adaptive octree per cfg.
// The onCells callback, if non-nil, receives the running cell count at
// least every progressStride cells. Cancellation of ctx aborts the build
// with ErrCancelled; exceeding cfg.CellBudget aborts with
// ErrBudgetExhausted. No partial tree is ever returned.
func BuildOctree(ctx context.Context, s sdfmesh.SDF3, cfg Config, onCells func(cells int)) (*Tree, error) {
	if s == nil {
		return nil, errors.New("nil SDF argument to BuildOctree")
	} else if cfg.Size <= 0 {
		return nil, errors.New("non-positive octree root size")
	} else if cfg.MinSize <= 0 || cfg.MinSize > cfg.Size {
		return nil, errors.New("octree minimum cell size must be in (0, Size]")
	} else if cfg.CellBudget < 9 {
		return nil, errors.New("octree cell budget too small")
	}
	t := &Tree{center: cfg.Center, size: cfg.Size}
	t.nodes = append(t.nodes, node{parent: -1, octant: -1, state: CellBoundary})
	t.cells = 1
	b := &builder{
		tree:    t,
		sdf:     s,
		minSize: cfg.MinSize,
		budget:  cfg.CellBudget,
		ctx:     ctx,
		onCells: onCells,
	}
	err := b.subdivide(0, t.center, t.size)
	if err != nil {
		return nil, err
	}
	if onCells != nil && b.lastReport != t.cells {
		onCells(t.cells)
	}
	return t, nil
}

// builder threads the shared subdivision state through recursion: budget
// counter, cancellation and progress reporting.
type builder struct {
	tree       *Tree
	sdf        sdfmesh.SDF3
	minSize    float64
	budget     int
	ctx        context.Context
	onCells    func(cells int)
	lastReport int
}

func (b *builder) subdivide(idx int32, center md3.Vec, size float64) error {
	if b.ctx != nil && b.ctx.Err() != nil {
		return ErrCancelled
	}
	t := b.tree
	if t.cells+8 > b.budget {
		return ErrBudgetExhausted
	}
	kids := int32(len(t.nodes))
	t.nodes[idx].kids = kids

	quarter := size / 4
	contentRange := quarter * contentPadding
	childSize := size / 2
	var adjMin [8]float64
	for oct := int8(0); oct < 8; oct++ {
		cc := childCenter(center, quarter, oct)
		c := sdfmesh.EvaluateContent(b.sdf,
			sdfmesh.IntervalCentered(cc.X, contentRange),
			sdfmesh.IntervalCentered(cc.Y, contentRange),
			sdfmesh.IntervalCentered(cc.Z, contentRange),
		)
		st := CellBoundary
		switch c.Category {
		case sdfmesh.CategoryInside:
			st = CellInside
		case sdfmesh.CategoryOutside:
			st = CellOutside
		}
		adj := b.minSize
		if c.MinFeatureSize > 0 {
			adj = minf(adj, c.MinFeatureSize)
		}
		if c.Category == sdfmesh.CategoryComplex {
			// Sharp features subdivide deeper than smooth faces.
			adj /= 8
		}
		adjMin[oct] = adj
		t.nodes = append(t.nodes, node{parent: idx, octant: oct, state: st, local: c.Local})
	}
	t.cells += 8
	if b.onCells != nil && t.cells-b.lastReport >= progressStride {
		b.lastReport = t.cells
		b.onCells(t.cells)
	}

	for oct := int8(0); oct < 8; oct++ {
		if t.nodes[kids+int32(oct)].state != CellBoundary {
			continue
		}
		if childSize <= adjMin[oct] {
			continue // Fine enough, stays a leaf.
		}
		err := b.subdivide(kids+int32(oct), childCenter(center, quarter, oct), childSize)
		if err != nil {
			return err
		}
	}
	return nil
}

// childCenter derives a child center from the parent center, quarter size
// and octant bits: bit 0 is +x, bit 1 is +y, bit 2 is +z.
func childCenter(center md3.Vec, quarter float64, oct int8) md3.Vec {
	c := center
	if oct&1 != 0 {
		c.X += quarter
	} else {
		c.X -= quarter
	}
	if oct&2 != 0 {
		c.Y += quarter
	} else {
		c.Y -= quarter
	}
	if oct&4 != 0 {
		c.Z += quarter
	} else {
		c.Z -= quarter
	}
	return c
}

// CellCount returns the number of cells created, root included.
func (t *Tree) CellCount() int { return t.cells }

// Root returns the handle of the root cell.
func (t *Tree) Root() int32 { return 0 }

// State returns the classification of cell n.
func (t *Tree) State(n int32) CellState { return t.nodes[n].state }

// IsLeaf reports whether cell n has no children.
func (t *Tree) IsLeaf(n int32) bool { return t.nodes[n].kids == 0 }

// Child returns the handle of n's child in octant oct. Panics if n is a leaf.
func (t *Tree) Child(n int32, oct int8) int32 {
	kids := t.nodes[n].kids
	if kids == 0 {
		panic("Child called on octree leaf")
	}
	return kids + int32(oct)
}

// LocalSurface returns the surface expression captured when cell n was
// classified, or nil.
func (t *Tree) LocalSurface(n int32) sdfmesh.SDF3 { return t.nodes[n].local }

// NeighborAt returns the handle of the cell abutting n's face in
// direction dir, or -1 past the root boundary. The neighbor may be a leaf
// at a shallower level than n, or an internal node of n's own size whose
// children are finer than n; callers handle both. Cost is O(depth).
func (t *Tree) NeighborAt(n int32, dir Direction) int32 {
	nd := &t.nodes[n]
	if nd.parent < 0 {
		return -1
	}
	bit := int8(1) << dir.axis()
	onPositiveSide := nd.octant&bit != 0
	if dir.positive() != onPositiveSide {
		// Moving within the same parent: the sibling mirrored on dir's axis.
		return t.nodes[nd.parent].kids + int32(nd.octant^bit)
	}
	pn := t.NeighborAt(nd.parent, dir)
	if pn < 0 {
		return -1
	}
	if t.nodes[pn].kids == 0 {
		return pn // Coarser neighbor.
	}
	return t.nodes[pn].kids + int32(nd.octant^bit)
}

// NodeBox returns the bounding box of cell n, re-derived from the root
// geometry and the octant path so cached geometry can never drift.
func (t *Tree) NodeBox(n int32) md3.Box {
	center, size := t.NodeGeom(n)
	half := size / 2
	return md3.Box{
		Min: md3.Vec{X: center.X - half, Y: center.Y - half, Z: center.Z - half},
		Max: md3.Vec{X: center.X + half, Y: center.Y + half, Z: center.Z + half},
	}
}

// NodeGeom returns the center and size of cell n.
func (t *Tree) NodeGeom(n int32) (center md3.Vec, size float64) {
	var path []int8
	for t.nodes[n].parent >= 0 {
		path = append(path, t.nodes[n].octant)
		n = t.nodes[n].parent
	}
	center, size = t.center, t.size
	for i := len(path) - 1; i >= 0; i-- {
		center = childCenter(center, size/4, path[i])
		size /= 2
	}
	return center, size
}

// WalkLeaves visits every leaf in depth-first order with its derived
// geometry. Returning a non-nil error from fn stops the walk.
func (t *Tree) WalkLeaves(fn func(n int32, center md3.Vec, size float64, state CellState) error) error {
	return t.walk(0, t.center, t.size, fn)
}

func (t *Tree) walk(n int32, center md3.Vec, size float64, fn func(int32, md3.Vec, float64, CellState) error) error {
	nd := &t.nodes[n]
	if nd.kids == 0 {
		return fn(n, center, size, nd.state)
	}
	for oct := int8(0); oct < 8; oct++ {
		err := t.walk(nd.kids+int32(oct), childCenter(center, size/4, oct), size/2, fn)
		if err != nil {
			return err
		}
	}
	return nil
}
