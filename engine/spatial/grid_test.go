package spatial

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/simerr"
)

func TestGrid_CellScenario(t *testing.T) {
	g := NewGrid(16)
	e := common.EntityID(1)
	g.Insert(e, common.Vector3{X: 0, Y: 0, Z: 0})
	assert.Equal(t, []common.EntityID{e}, g.QueryCell(CellKey{0, 0, 0}).ToList())

	if err := g.Move(e, common.Vector3{X: 20, Y: 0, Z: 0}); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 0, len(g.QueryCell(CellKey{0, 0, 0})))
	assert.Equal(t, []common.EntityID{e}, g.QueryCell(CellKey{1, 0, 0}).ToList())
	assert.Equal(t, 1, g.CellCount())
	assert.Equal(t, map[CellKey]int{{1, 0, 0}: 1}, g.Cells())
}

func TestGrid_CellOfNegative(t *testing.T) {
	g := NewGrid(16)
	assert.Equal(t, CellKey{-1, 0, 0}, g.CellOf(common.Vector3{X: -0.5, Y: 0, Z: 0}))
	assert.Equal(t, CellKey{-1, -1, 1}, g.CellOf(common.Vector3{X: -16, Y: -1, Z: 16}))
	assert.Equal(t, CellKey{0, 0, 0}, g.CellOf(common.Vector3{X: 15.999, Y: 0, Z: 0}))
	assert.Equal(t, float64(16), NewGrid(0).CellSize())
}

func TestGrid_RemoveIdempotent(t *testing.T) {
	g := NewGrid(16)
	g.Insert(1, common.Vector3{X: 1, Y: 2, Z: 3})
	g.Remove(1)
	g.Remove(1)
	g.Remove(42)
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 0, g.CellCount())
	assert.Equal(t, nil, g.Verify())
}

func TestGrid_MoveUnknown(t *testing.T) {
	g := NewGrid(16)
	err := g.Move(7, common.Vector3{})
	assert.T(t, simerr.Is(err, simerr.ErrNotFound), "move of unknown entity should be not found")
	assert.Equal(t, 0, g.Len())
}

func TestGrid_MoveWithinCell(t *testing.T) {
	g := NewGrid(16)
	g.Insert(1, common.Vector3{X: 1, Y: 1, Z: 1})
	assert.Equal(t, nil, g.Move(1, common.Vector3{X: 2, Y: 2, Z: 2}))
	pos, cell, ok := g.Lookup(1)
	assert.T(t, ok, "should be found")
	assert.Equal(t, common.Vector3{X: 2, Y: 2, Z: 2}, pos)
	assert.Equal(t, CellKey{0, 0, 0}, cell)
}

func TestGrid_InsertExistingMoves(t *testing.T) {
	g := NewGrid(10)
	g.Insert(1, common.Vector3{X: 1, Y: 0, Z: 0})
	g.Insert(1, common.Vector3{X: 11, Y: 0, Z: 0})
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 0, g.CellLen(CellKey{0, 0, 0}))
	assert.Equal(t, 1, g.CellLen(CellKey{1, 0, 0}))
	assert.Equal(t, nil, g.Verify())
}

func TestGrid_QueryRadius(t *testing.T) {
	g := NewGrid(16)
	g.Insert(1, common.Vector3{X: 0, Y: 0, Z: 0})
	g.Insert(2, common.Vector3{X: 10, Y: 0, Z: 0})
	g.Insert(3, common.Vector3{X: 0, Y: 17, Z: 0})
	g.Insert(4, common.Vector3{X: -30, Y: -30, Z: -30})

	assert.Equal(t, []common.EntityID{1, 2}, g.QueryRadius(common.Vector3{}, 10))
	assert.Equal(t, []common.EntityID{1, 2, 3}, g.QueryRadius(common.Vector3{}, 17))
	assert.Equal(t, []common.EntityID{1}, g.QueryRadius(common.Vector3{}, 0))
	assert.Equal(t, 0, len(g.QueryRadius(common.Vector3{}, -1)))
	assert.Equal(t, []common.EntityID{1, 2, 3, 4}, g.QueryRadius(common.Vector3{}, 1000000))
}

func TestGrid_QueryRadiusClampedCells(t *testing.T) {
	g := NewGrid(16)
	for i := 0; i < 10; i++ {
		g.Insert(common.EntityID(i+1), common.Vector3{X: float64(i * 100)})
	}
	g.Insert(100, common.Vector3{X: 1e12})
	g.Insert(101, common.Vector3{X: -1e12, Y: -1e12})
	assert.Equal(t, CellKey{math.MaxInt32, 0, 0}, g.CellOf(common.Vector3{X: 1e12}))

	done := make(chan [][]common.EntityID, 1)
	go func() {
		done <- [][]common.EntityID{
			g.QueryRadius(common.Vector3{X: 1e12}, 1),
			g.QueryRadius(common.Vector3{X: -1e12, Y: -1e12}, 1),
			g.QueryRadius(common.Vector3{X: 1e12 + 100}, 1),
		}
	}()
	select {
	case res := <-done:
		assert.Equal(t, []common.EntityID{100}, res[0])
		assert.Equal(t, []common.EntityID{101}, res[1])
		assert.Equal(t, 0, len(res[2]))
	case <-time.After(3 * time.Second):
		t.Fatalf("QueryRadius near the clamped cells did not return")
	}
}

func TestGrid_RandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	randPos := func() common.Vector3 {
		return common.Vector3{
			X: rng.Float64()*400 - 200,
			Y: rng.Float64()*40 - 20,
			Z: rng.Float64()*400 - 200,
		}
	}

	g := NewGrid(16)
	positions := map[common.EntityID]common.Vector3{}
	nextID := common.EntityID(1)

	for round := 0; round < 2000; round++ {
		switch op := rng.Intn(4); {
		case op == 0 || len(positions) == 0:
			pos := randPos()
			g.Insert(nextID, pos)
			positions[nextID] = pos
			nextID++
		case op == 1:
			for id := range positions {
				g.Remove(id)
				delete(positions, id)
				break
			}
		default:
			for id := range positions {
				pos := randPos()
				if err := g.Move(id, pos); err != nil {
					t.Fatal(err)
				}
				positions[id] = pos
				break
			}
		}

		if round%100 == 0 {
			if err := g.Verify(); err != nil {
				t.Fatalf("round %d: %v", round, err)
			}
			center := randPos()
			radius := rng.Float64() * 80
			var expect []common.EntityID
			for id, pos := range positions {
				if pos.DistanceSqTo(center) <= radius*radius {
					expect = append(expect, id)
				}
			}
			common.SortEntityIDs(expect)
			got := g.QueryRadius(center, radius)
			assert.Tf(t, len(got) == len(expect), "round %d: query radius %v got %v, expect %v", round, radius, got, expect)
			for i := range got {
				assert.Equal(t, expect[i], got[i])
			}
		}
	}

	assert.Equal(t, len(positions), g.Len())
	for id, pos := range positions {
		_, cell, ok := g.Lookup(id)
		assert.T(t, ok, "entity should be indexed")
		assert.Equal(t, g.CellOf(pos), cell)
		assert.T(t, g.QueryCell(cell).Contains(id), "cell should contain entity")
	}
}

func BenchmarkGrid_Move(b *testing.B) {
	g := NewGrid(16)
	for i := 1; i <= 10000; i++ {
		g.Insert(common.EntityID(i), common.Vector3{X: float64(i % 500), Z: float64(i / 500)})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := common.EntityID(i%10000 + 1)
		_ = g.Move(id, common.Vector3{X: float64(i % 700), Z: float64(i % 300)})
	}
}
