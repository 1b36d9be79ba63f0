package render

import (
	"context"
	"math"
	"testing"

	"github.com/sdfmesh/sdfmesh"
	"github.com/soypat/geometry/md3"
	"github.com/stretchr/testify/require"
)

func TestRenderUnitSphereCoarse(t *testing.T) {
	sm, stats, err := Render(context.Background(), mustSphere(t, 1), Config{
		Size:       4,
		MinSize:    0.125,
		CellBudget: 10000,
		Optimize:   true,
	})
	require.NoError(t, err)
	require.Zero(t, len(sm.Vertices)%3)
	require.Zero(t, len(sm.Indices)%3)

	vertexCount := len(sm.Vertices) / 3
	require.Greater(t, vertexCount, 100)
	require.Less(t, vertexCount, 10000)
	require.Equal(t, vertexCount, stats.Vertices)
	require.LessOrEqual(t, stats.Cells, 10000)

	for i := 0; i < len(sm.Vertices); i += 3 {
		v := md3.Vec{X: sm.Vertices[i], Y: sm.Vertices[i+1], Z: sm.Vertices[i+2]}
		require.InDelta(t, 1, md3.Norm(v), 0.01, "vertex %d off the unit sphere", i/3)
	}
	for _, idx := range sm.Indices {
		require.Less(t, idx, uint32(vertexCount))
	}

	// Winding is counter-clockwise seen from outside: the signed volume
	// enclosed by the mesh is then positive and close to the sphere's.
	vol := signedVolume(sm)
	require.InDelta(t, 4*math.Pi/3, vol, 0.5, "signed volume betrays winding or holes")
}

// signedVolume sums tetrahedron volumes against the origin; positive for
// outward-wound closed meshes.
func signedVolume(sm SerializedMesh) float64 {
	var v float64
	for i := 0; i < len(sm.Indices); i += 3 {
		a := vertexAt(sm, sm.Indices[i])
		b := vertexAt(sm, sm.Indices[i+1])
		c := vertexAt(sm, sm.Indices[i+2])
		v += dotv(a, cross(b, c)) / 6
	}
	return v
}

func vertexAt(sm SerializedMesh, i uint32) md3.Vec {
	return md3.Vec{X: sm.Vertices[3*i], Y: sm.Vertices[3*i+1], Z: sm.Vertices[3*i+2]}
}

func cross(a, b md3.Vec) md3.Vec {
	return md3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func dotv(a, b md3.Vec) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func TestRenderTwoSphereScene(t *testing.T) {
	sm, stats, err := Render(context.Background(), twoSpheres(t), Config{
		Size:       8,
		MinSize:    0.1,
		CellBudget: 100000,
		Optimize:   true,
	})
	require.NoError(t, err)
	require.Greater(t, len(sm.Indices)/3, 500)
	require.LessOrEqual(t, stats.Cells, 100000)
	require.Equal(t, 2, connectedComponents(sm))
}

// connectedComponents counts mesh components by union-find over triangle
// vertices.
func connectedComponents(sm SerializedMesh) int {
	parent := make([]int, len(sm.Vertices)/3)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	used := make([]bool, len(parent))
	for i := 0; i < len(sm.Indices); i += 3 {
		a, b, c := int(sm.Indices[i]), int(sm.Indices[i+1]), int(sm.Indices[i+2])
		used[a], used[b], used[c] = true, true, true
		union(a, b)
		union(b, c)
	}
	roots := map[int]struct{}{}
	for i, u := range used {
		if u {
			roots[find(i)] = struct{}{}
		}
	}
	return len(roots)
}

func TestRenderBudgetExhausted(t *testing.T) {
	var last Progress
	sm, _, err := Render(context.Background(), fractalSDF{}, Config{
		Size:       4,
		MinSize:    0.001,
		CellBudget: 100,
		OnProgress: func(p Progress) { last = p },
	})
	require.ErrorIs(t, err, ErrBudgetExhausted)
	require.Empty(t, sm.Vertices, "no partial mesh on budget exhaustion")
	require.Empty(t, sm.Indices)
	require.Equal(t, StatusFailed, last.Status)
	require.ErrorIs(t, last.Err, ErrBudgetExhausted)
}

func TestRenderIntervalFallback(t *testing.T) {
	sm, _, err := Render(context.Background(), plainSDF{mustSphere(t, 1)}, Config{
		Size:       4,
		MinSize:    0.25,
		CellBudget: 10000,
		Optimize:   true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, sm.Indices)
	for i := 0; i < len(sm.Vertices); i += 3 {
		v := md3.Vec{X: sm.Vertices[i], Y: sm.Vertices[i+1], Z: sm.Vertices[i+2]}
		require.InDelta(t, 1, md3.Norm(v), 0.01)
	}
}

// wedge is a ball sliced by a slightly rotated half space whose
// classification reports sharp detail on the x > 0.5 side only, forcing
// deep subdivision there while the rest of the surface stays at coarse
// boundary cells. The seam between the two depths exercises the
// extractor's per-quadrant face splitting and the late split queue.
type wedge struct {
	hs, ball sdfmesh.SDF3
}

func newWedge(t *testing.T) wedge {
	t.Helper()
	hs, err := sdfmesh.NewHalfSpace(md3.Vec{X: 0.13, Y: 0.07, Z: 1}, 0.03)
	require.NoError(t, err)
	ball, err := sdfmesh.NewSphere(1.5)
	require.NoError(t, err)
	return wedge{hs: hs, ball: ball}
}

func (w wedge) Evaluate(p md3.Vec) float64 {
	return maxf(w.hs.Evaluate(p), w.ball.Evaluate(p))
}

func (w wedge) EvaluateInterval(x, y, z sdfmesh.Interval) sdfmesh.Interval {
	return w.hs.EvaluateInterval(x, y, z).Max2(w.ball.EvaluateInterval(x, y, z))
}

func (w wedge) EvaluateContent(x, y, z sdfmesh.Interval) sdfmesh.Content {
	iv := w.EvaluateInterval(x, y, z)
	switch {
	case iv.Max < 0:
		return sdfmesh.Content{Category: sdfmesh.CategoryInside}
	case iv.Min > 0:
		return sdfmesh.Content{Category: sdfmesh.CategoryOutside}
	case x.Min+x.Width()/2 > 0.5:
		return sdfmesh.Content{Category: sdfmesh.CategoryComplex}
	}
	return sdfmesh.Content{Category: sdfmesh.CategoryFace, Local: w}
}

func (w wedge) Bounds() md3.Box {
	return md3.Box{Min: md3.Vec{X: -1.6, Y: -1.6, Z: -1.6}, Max: md3.Vec{X: 1.6, Y: 1.6, Z: 1.6}}
}

func TestRenderCoarseFineTJunction(t *testing.T) {
	w := newWedge(t)
	cfg := Config{Size: 4, MinSize: 0.5, CellBudget: 200000}
	tree, err := BuildOctree(context.Background(), w, cfg, nil)
	require.NoError(t, err)

	// The scene must actually contain boundary leaves of differing size.
	minSize, maxSize := cfg.Size, 0.0
	err = tree.WalkLeaves(func(n int32, center md3.Vec, size float64, state CellState) error {
		if state == CellBoundary {
			minSize = minf(minSize, size)
			maxSize = maxf(maxSize, size)
		}
		return nil
	})
	require.NoError(t, err)
	require.Less(t, minSize, maxSize, "expected mixed boundary cell sizes across the seam")

	mesh := NewMesh()
	require.NoError(t, ExtractSurface(tree, mesh))
	require.True(t, mesh.IsManifold(), "%d open edges after draining split queue", mesh.OpenEdgeCount())
	require.Positive(t, mesh.TriangleCount())

	// The full pipeline agrees.
	sm, _, err := Render(context.Background(), w, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, sm.Indices)
}

func TestRenderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	got := 0
	sm, _, err := Render(ctx, twoSpheres(t), Config{
		Size:       8,
		MinSize:    0.01,
		CellBudget: 1000000,
		OnProgress: func(p Progress) {
			got++
			cancel()
		},
	})
	require.ErrorIs(t, err, ErrCancelled)
	require.Empty(t, sm.Indices, "no result after cancellation")
	require.Positive(t, got)
}

func TestRenderProgressOrdering(t *testing.T) {
	var msgs []Progress
	_, _, err := Render(context.Background(), mustSphere(t, 1), Config{
		Size:       4,
		MinSize:    0.25,
		CellBudget: 10000,
		Optimize:   true,
		TaskID:     "sphere-task",
		OnProgress: func(p Progress) { msgs = append(msgs, p) },
	})
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	last := -1.0
	for i, p := range msgs {
		require.Equal(t, "sphere-task", p.TaskID)
		require.GreaterOrEqual(t, p.Progress, last, "message %d regressed", i)
		last = p.Progress
		if i < len(msgs)-1 {
			require.Equal(t, StatusRunning, p.Status)
		}
	}
	final := msgs[len(msgs)-1]
	require.Equal(t, StatusCompleted, final.Status)
	require.Equal(t, 1.0, final.Progress)
	require.Equal(t, "mesh", final.Phase)
}

// TestExtractBeforeProjection checks the pre-projection error bound:
// emitted vertices sit on boundary cell corners within two minimum cell
// sizes of the surface.
func TestExtractBeforeProjection(t *testing.T) {
	cfg := Config{Size: 4, MinSize: 0.125, CellBudget: 10000}
	tree, err := BuildOctree(context.Background(), mustSphere(t, 1), cfg, nil)
	require.NoError(t, err)
	mesh := NewMesh()
	require.NoError(t, ExtractSurface(tree, mesh))
	require.True(t, mesh.IsManifold())
	requireTopology(t, mesh)
	// Corners of padded boundary cells sit within two minimum cell sizes
	// of the surface before any projection.
	for i := 0; i < mesh.VertexCount(); i++ {
		require.InDelta(t, 1, md3.Norm(mesh.VertexPos(i)), 2*cfg.MinSize)
	}
}

func TestRenderRefineEdges(t *testing.T) {
	base, baseStats, err := Render(context.Background(), mustSphere(t, 1), Config{
		Size:       4,
		MinSize:    0.25,
		CellBudget: 10000,
		Optimize:   true,
	})
	require.NoError(t, err)
	refined, refinedStats, err := Render(context.Background(), mustSphere(t, 1), Config{
		Size:        4,
		MinSize:     0.25,
		CellBudget:  10000,
		Optimize:    true,
		RefineEdges: true,
	})
	require.NoError(t, err)
	require.Greater(t, len(refined.Indices), len(base.Indices),
		"refinement must split deviating edges")
	require.Greater(t, refinedStats.Triangles, baseStats.Triangles)
}

// TestSerializeReconstruct round-trips a rendered mesh through its
// serialized form.
func TestSerializeReconstruct(t *testing.T) {
	sm, _, err := Render(context.Background(), mustSphere(t, 1), Config{
		Size:       4,
		MinSize:    0.25,
		CellBudget: 10000,
	})
	require.NoError(t, err)
	m, err := FromSerialized(sm)
	require.NoError(t, err)
	require.True(t, m.IsManifold())
	require.Equal(t, canonicalTriangles(sm), canonicalTriangles(m.Serialize()))
}
