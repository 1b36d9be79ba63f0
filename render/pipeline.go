package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/sdfmesh/sdfmesh"
	"github.com/soypat/geometry/md3"
)

// Status is the lifecycle state carried by progress messages.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Progress is a pipeline progress message. Messages for one task are
// delivered with monotone non-decreasing Progress and a single terminal
// completed or failed message after the last running one.
type Progress struct {
	TaskID string
	// Phase is "octree" during subdivision and "mesh" afterwards.
	Phase    string
	Progress float64
	Status   Status
	Err      error
}

// Config holds the build parameters of the pipeline.
type Config struct {
	// TaskID tags progress messages. May be empty.
	TaskID string
	// Center and Size define the cubic root region. A zero Size derives
	// the region from the SDF bounds with a 5% margin.
	Center md3.Vec
	Size   float64
	// MinSize is the minimum octree cell size. Zero defaults to Size/64.
	MinSize float64
	// CellBudget is the hard cap on octree cells. Zero defaults to 100000.
	CellBudget int
	// Optimize relocates mesh vertices onto the SDF zero isosurface.
	Optimize bool
	// RefineEdges splits mesh edges deviating from the surface after
	// projection.
	RefineEdges bool
	// OnProgress, if non-nil, receives progress messages.
	OnProgress func(Progress)
}

func (cfg Config) withDefaults(s sdfmesh.SDF3) Config {
	if cfg.Size == 0 {
		bb := s.Bounds()
		sz := bb.Size()
		cfg.Size = maxf(sz.X, maxf(sz.Y, sz.Z)) * 1.05
		cfg.Center = bb.Center()
	}
	if cfg.MinSize == 0 {
		cfg.MinSize = cfg.Size / 64
	}
	if cfg.CellBudget == 0 {
		cfg.CellBudget = 100000
	}
	return cfg
}

// Stats summarizes a completed render.
type Stats struct {
	Cells     int
	Vertices  int
	Triangles int
}

// Progress fractions allotted to each pipeline phase.
const (
	fracOctree    = 0.4
	fracExtract   = 0.5
	fracOptimize  = 0.55
	fracManifold  = 0.6
	fracSerialize = 1.0
)

// Render runs the full SDF-to-mesh pipeline: octree subdivision, surface
// extraction, optional vertex projection and refinement, manifold
// validation and serialization. It either completes fully or returns one
// of the package error kinds with no partial mesh.
func Render(ctx context.Context, s sdfmesh.SDF3, cfg Config) (SerializedMesh, Stats, error) {
	if s == nil {
		return SerializedMesh{}, Stats{}, errors.New("nil SDF argument to Render")
	}
	cfg = cfg.withDefaults(s)
	rep := reporter{cfg: cfg}

	tree, err := BuildOctree(ctx, s, cfg, func(cells int) {
		rep.report(fracOctree * float64(cells) / float64(cfg.CellBudget))
	})
	if err != nil {
		return SerializedMesh{}, Stats{}, rep.fail(err)
	}
	rep.report(fracOctree)

	mesh := NewMesh()
	if err := ExtractSurface(tree, mesh); err != nil {
		return SerializedMesh{}, Stats{}, rep.fail(err)
	}
	rep.report(fracExtract)
	if ctx != nil && ctx.Err() != nil {
		return SerializedMesh{}, Stats{}, rep.fail(ErrCancelled)
	}

	if cfg.Optimize {
		mesh.OptimizeVertices(s)
	}
	rep.report(fracOptimize)
	if cfg.RefineEdges {
		if err := mesh.RefineEdges(s, cfg.MinSize); err != nil {
			return SerializedMesh{}, Stats{}, rep.fail(err)
		}
	}
	if ctx != nil && ctx.Err() != nil {
		return SerializedMesh{}, Stats{}, rep.fail(ErrCancelled)
	}

	if !mesh.IsManifold() {
		err := fmt.Errorf("%w: %d open edges after extraction", ErrNonManifold, mesh.OpenEdgeCount())
		return SerializedMesh{}, Stats{}, rep.fail(err)
	}
	rep.report(fracManifold)

	sm := mesh.Serialize()
	stats := Stats{
		Cells:     tree.CellCount(),
		Vertices:  mesh.VertexCount(),
		Triangles: mesh.TriangleCount(),
	}
	rep.complete()
	return sm, stats, nil
}

// reporter clamps progress to monotone non-decreasing fractions and tags
// messages with the task phase.
type reporter struct {
	cfg  Config
	last float64
}

func (r *reporter) phase() string {
	if r.last < fracOctree {
		return "octree"
	}
	return "mesh"
}

func (r *reporter) report(frac float64) {
	if frac < r.last {
		frac = r.last
	}
	r.last = frac
	if r.cfg.OnProgress == nil {
		return
	}
	r.cfg.OnProgress(Progress{
		TaskID:   r.cfg.TaskID,
		Phase:    r.phase(),
		Progress: frac,
		Status:   StatusRunning,
	})
}

func (r *reporter) fail(err error) error {
	if r.cfg.OnProgress != nil {
		r.cfg.OnProgress(Progress{
			TaskID:   r.cfg.TaskID,
			Phase:    r.phase(),
			Progress: r.last,
			Status:   StatusFailed,
			Err:      err,
		})
	}
	return err
}

func (r *reporter) complete() {
	r.last = fracSerialize
	if r.cfg.OnProgress == nil {
		return
	}
	r.cfg.OnProgress(Progress{
		TaskID:   r.cfg.TaskID,
		Phase:    "mesh",
		Progress: fracSerialize,
		Status:   StatusCompleted,
	})
}
