package render

import (
	"context"
	"math"
	"testing"

	"github.com/sdfmesh/sdfmesh"
	"github.com/soypat/geometry/md3"
	"github.com/stretchr/testify/require"
)

func mustSphere(t *testing.T, r float64) sdfmesh.SDF3 {
	t.Helper()
	s, err := sdfmesh.NewSphere(r)
	require.NoError(t, err)
	return s
}

func twoSpheres(t *testing.T) sdfmesh.SDF3 {
	t.Helper()
	return sdfmesh.Union(mustSphere(t, 1), sdfmesh.Translate(mustSphere(t, 0.7), 2, 0, 0))
}

func TestOctreeBuildSphere(t *testing.T) {
	cfg := Config{Size: 4, MinSize: 0.125, CellBudget: 10000}
	tree, err := BuildOctree(context.Background(), mustSphere(t, 1), cfg, nil)
	require.NoError(t, err)
	require.LessOrEqual(t, tree.CellCount(), cfg.CellBudget)

	boundary := 0
	err = tree.WalkLeaves(func(n int32, center md3.Vec, size float64, state CellState) error {
		require.NotZero(t, state, "every leaf must be classified")
		if state == CellBoundary {
			boundary++
			// Boundary leaves land at the configured minimum size.
			require.LessOrEqual(t, size, cfg.MinSize+1e-12)
			require.Greater(t, size, cfg.MinSize/2-1e-12)
			// The cell box intersects the sphere surface modulo padding.
			d := absf(md3.Norm(center) - 1)
			require.Less(t, d, size*2, "boundary cell too far from surface at %v", center)
		}
		return nil
	})
	require.NoError(t, err)
	require.Greater(t, boundary, 100)
}

// TestOctreeBoundaryLevelInvariant checks that boundary leaves sharing a
// face have the same size.
func TestOctreeBoundaryLevelInvariant(t *testing.T) {
	shapes := map[string]sdfmesh.SDF3{
		"sphere":     mustSphere(t, 1),
		"twospheres": twoSpheres(t),
	}
	for name, s := range shapes {
		t.Run(name, func(t *testing.T) {
			tree, err := BuildOctree(context.Background(), s, Config{Size: 8, MinSize: 0.1, CellBudget: 100000}, nil)
			require.NoError(t, err)
			err = tree.WalkLeaves(func(n int32, center md3.Vec, size float64, state CellState) error {
				if state != CellBoundary {
					return nil
				}
				for _, dir := range Directions {
					nb := tree.NeighborAt(n, dir)
					if nb < 0 || !tree.IsLeaf(nb) || tree.State(nb) != CellBoundary {
						continue
					}
					_, nbSize := tree.NodeGeom(nb)
					require.InDelta(t, size, nbSize, 1e-12,
						"boundary leaves sharing a face differ in size at %v dir %d", center, dir)
				}
				return nil
			})
			require.NoError(t, err)
		})
	}
}

// TestOctreeNeighborAbutment checks that NeighborAt returns either none at
// the root boundary or a node whose box abuts the caller's along dir.
func TestOctreeNeighborAbutment(t *testing.T) {
	tree, err := BuildOctree(context.Background(), twoSpheres(t), Config{Size: 8, MinSize: 0.25, CellBudget: 100000}, nil)
	require.NoError(t, err)
	err = tree.WalkLeaves(func(n int32, center md3.Vec, size float64, state CellState) error {
		box := tree.NodeBox(n)
		for _, dir := range Directions {
			nb := tree.NeighborAt(n, dir)
			if nb < 0 {
				// Must actually be at the root boundary.
				rootHalf := 8.0 / 2
				want := rootHalf
				got := boxFaceCoord(box, dir)
				if !dir.positive() {
					want = -rootHalf
				}
				require.InDelta(t, want, got, 1e-9, "nil neighbor away from root boundary")
				continue
			}
			nbBox := tree.NodeBox(nb)
			// Face planes coincide.
			require.InDelta(t, boxFaceCoord(box, dir), boxFaceCoord(nbBox, opposite(dir)), 1e-9)
			// In-plane ranges overlap.
			for a := 0; a < 3; a++ {
				if a == dir.axis() {
					continue
				}
				require.Less(t, axisMin(nbBox, a), axisMax(box, a)+1e-9)
				require.Greater(t, axisMax(nbBox, a), axisMin(box, a)-1e-9)
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func opposite(d Direction) Direction {
	if d.positive() {
		return d + 1
	}
	return d - 1
}

func boxFaceCoord(b md3.Box, d Direction) float64 {
	if d.positive() {
		return axisMax(b, d.axis())
	}
	return axisMin(b, d.axis())
}

func axisMin(b md3.Box, axis int) float64 {
	switch axis {
	case 0:
		return b.Min.X
	case 1:
		return b.Min.Y
	}
	return b.Min.Z
}

func axisMax(b md3.Box, axis int) float64 {
	switch axis {
	case 0:
		return b.Max.X
	case 1:
		return b.Max.Y
	}
	return b.Max.Z
}

// fractalSDF reports sharp detail at every scale, forcing unbounded
// subdivision.
type fractalSDF struct{}

func (fractalSDF) Evaluate(p md3.Vec) float64 {
	return md3.Norm(p) - 1
}

func (fractalSDF) EvaluateInterval(x, y, z sdfmesh.Interval) sdfmesh.Interval {
	return sdfmesh.NewInterval(-1, 1)
}

func (fractalSDF) EvaluateContent(x, y, z sdfmesh.Interval) sdfmesh.Content {
	return sdfmesh.Content{Category: sdfmesh.CategoryComplex}
}

func (fractalSDF) Bounds() md3.Box {
	return md3.Box{Min: md3.Vec{X: -2, Y: -2, Z: -2}, Max: md3.Vec{X: 2, Y: 2, Z: 2}}
}

func TestOctreeBudgetExhausted(t *testing.T) {
	tree, err := BuildOctree(context.Background(), fractalSDF{}, Config{Size: 4, MinSize: 0.001, CellBudget: 100}, nil)
	require.ErrorIs(t, err, ErrBudgetExhausted)
	require.Nil(t, tree, "no partial tree on budget exhaustion")
}

func TestOctreeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tree, err := BuildOctree(ctx, twoSpheres(t), Config{Size: 8, MinSize: 0.01, CellBudget: 1000000}, func(cells int) {
		cancel()
	})
	require.ErrorIs(t, err, ErrCancelled)
	require.Nil(t, tree)
}

// plainSDF hides content classification to exercise the interval fallback.
type plainSDF struct {
	s sdfmesh.SDF3
}

func (p plainSDF) Evaluate(v md3.Vec) float64 { return p.s.Evaluate(v) }

func (p plainSDF) EvaluateInterval(x, y, z sdfmesh.Interval) sdfmesh.Interval {
	return p.s.EvaluateInterval(x, y, z)
}

func (p plainSDF) Bounds() md3.Box { return p.s.Bounds() }

func TestOctreeIntervalFallback(t *testing.T) {
	tree, err := BuildOctree(context.Background(), plainSDF{mustSphere(t, 1)}, Config{Size: 4, MinSize: 0.25, CellBudget: 10000}, nil)
	require.NoError(t, err)
	counts := map[CellState]int{}
	err = tree.WalkLeaves(func(n int32, center md3.Vec, size float64, state CellState) error {
		counts[state]++
		return nil
	})
	require.NoError(t, err)
	require.Positive(t, counts[CellInside])
	require.Positive(t, counts[CellOutside])
	require.Positive(t, counts[CellBoundary])
	require.Zero(t, counts[CellState(0)], "all leaves classified through fallback")
}

func TestOctreeProgressMonotone(t *testing.T) {
	last := -1
	_, err := BuildOctree(context.Background(), mustSphere(t, 1), Config{Size: 4, MinSize: 0.0625, CellBudget: 100000}, func(cells int) {
		require.Greater(t, cells, last)
		last = cells
	})
	require.NoError(t, err)
	require.Greater(t, last, 0, "progress callback must fire")
}

func TestDirectionVec(t *testing.T) {
	for _, dir := range Directions {
		v := dir.Vec()
		require.InDelta(t, 1, md3.Norm(v), 1e-15)
		require.Equal(t, dir.positive(), axisComponent(v, dir.axis()) > 0)
	}
	require.Equal(t, math.Abs(Directions[0].Vec().X), 1.0)
}

func axisComponent(v md3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}
