package scene

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/playground/engine/core"
)

func TestWorldPositionFollowsRotatedParent(t *testing.T) {
	g := NewGraph()
	parent := g.CreateNode("parent")
	child := g.CreateNodeAt("child", mgl32.Vec3{1, 0, 0}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
	require.NoError(t, g.SetParent(child, parent))

	g.SetRotation(parent, mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}))

	expected := mgl32.Vec3{0, 0, -1}
	got := g.WorldPosition(child)
	assert.False(t, got.Sub(expected).Len() > 0.001, "expected %v, got %v", expected, got)
}

func TestWorldEqualsParentWorldTimesLocal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	g := NewGraph()

	ids := []NodeID{g.CreateNode("root")}
	for i := 1; i < 64; i++ {
		id := g.CreateNodeAt("n", randomVec(rng), randomQuat(rng), mgl32.Vec3{1, 1, 1}.Add(randomVec(rng).Mul(0.2)))
		require.NoError(t, g.SetParent(id, ids[rng.Intn(len(ids))]))
		ids = append(ids, id)
	}

	for round := 0; round < 20; round++ {
		for k := 0; k < 10; k++ {
			id := ids[rng.Intn(len(ids))]
			switch rng.Intn(3) {
			case 0:
				g.SetPosition(id, randomVec(rng))
			case 1:
				g.Rotate(id, randomQuat(rng))
			case 2:
				// random reparent, cycles are rejected and ignored
				_ = g.SetParent(id, ids[rng.Intn(len(ids))])
			}
		}

		// query in random order so that partially clean chains are exercised
		for _, i := range rng.Perm(len(ids)) {
			id := ids[i]
			world := g.WorldMatrix(id)
			parentWorld := mgl32.Ident4()
			if p := g.Parent(id); p.IsValid() {
				parentWorld = g.WorldMatrix(p)
			}
			assert.True(t, world.ApproxEqualThreshold(parentWorld.Mul4(g.LocalMatrix(id)), 1e-3))
			assert.False(t, g.IsDirty(id))
		}
	}
}

func TestWorldMatrixIsCached(t *testing.T) {
	g := NewGraph()
	parent := g.CreateNode("parent")
	child := g.CreateNode("child")
	require.NoError(t, g.SetParent(child, parent))

	calls := map[NodeID]int{}
	observer := func(id NodeID, world mgl32.Mat4) { calls[id]++ }
	g.OnUpdate(parent, observer)
	g.OnUpdate(child, observer)

	first := g.WorldMatrix(child)
	second := g.WorldMatrix(child)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls[child])
	assert.Equal(t, 1, calls[parent])

	// mutating the parent invalidates the child
	g.Translate(parent, mgl32.Vec3{0, 5, 0})
	assert.True(t, g.IsDirty(child))
	assert.True(t, g.WorldPosition(child).ApproxEqual(mgl32.Vec3{0, 5, 0}))
	assert.Equal(t, 2, calls[child])
	assert.Equal(t, 2, calls[parent])

	// mutating the child leaves the parent cached
	g.SetScale(child, mgl32.Vec3{2, 2, 2})
	assert.False(t, g.IsDirty(parent))
	g.WorldMatrix(child)
	assert.Equal(t, 2, calls[parent])
	assert.Equal(t, 3, calls[child])
}

func TestObserverMovingItsNodeKeepsChildrenCurrent(t *testing.T) {
	g := NewGraph()
	parent := g.CreateNode("parent")
	child := g.CreateNodeAt("child", mgl32.Vec3{0, 1, 0}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
	require.NoError(t, g.SetParent(child, parent))

	// snaps the parent once, like a constraint would
	snapped := false
	parentCalls := 0
	g.OnUpdate(parent, func(id NodeID, world mgl32.Mat4) {
		parentCalls++
		if !snapped {
			snapped = true
			g.SetPosition(id, mgl32.Vec3{5, 0, 0})
		}
	})
	var seen []mgl32.Vec3
	g.OnUpdate(child, func(id NodeID, world mgl32.Mat4) {
		seen = append(seen, world.Col(3).Vec3())
	})

	g.WorldMatrix(child)
	assert.False(t, g.IsDirty(parent))
	assert.False(t, g.IsDirty(child))
	assert.Equal(t, 2, parentCalls)
	require.Len(t, seen, 1)
	assert.True(t, seen[0].ApproxEqual(mgl32.Vec3{5, 1, 0}), "child notified with %v", seen[0])

	for i := 0; i < 3; i++ {
		world := g.WorldMatrix(child)
		assert.True(t, world.ApproxEqualThreshold(g.WorldMatrix(parent).Mul4(g.LocalMatrix(child)), 1e-4))
		assert.True(t, g.WorldPosition(child).ApproxEqual(mgl32.Vec3{5, 1, 0}))
	}
}

func TestObserverThatNeverSettlesPanics(t *testing.T) {
	g := NewGraph()
	n := g.CreateNode("restless")
	g.OnUpdate(n, func(id NodeID, world mgl32.Mat4) {
		g.Translate(id, mgl32.Vec3{1, 0, 0})
	})

	assert.Panics(t, func() {
		g.WorldMatrix(n)
	})
}

func TestSetParentKeepsBothSidesConsistent(t *testing.T) {
	g := NewGraph()
	a := g.CreateNode("a")
	b := g.CreateNode("b")
	c := g.CreateNode("c")

	require.NoError(t, g.SetParent(c, a))
	assert.Equal(t, a, g.Parent(c))
	assert.Equal(t, []NodeID{c}, g.Children(a))

	require.NoError(t, g.SetParent(c, b))
	assert.Equal(t, b, g.Parent(c))
	assert.Empty(t, g.Children(a))
	assert.Equal(t, []NodeID{c}, g.Children(b))

	// same parent is a no-op
	g.WorldMatrix(c)
	require.NoError(t, g.SetParent(c, b))
	assert.False(t, g.IsDirty(c))

	require.NoError(t, g.SetParent(c, InvalidNode))
	assert.False(t, g.Parent(c).IsValid())
	assert.Empty(t, g.Children(b))
	assert.ElementsMatch(t, []NodeID{a, b, c}, g.Roots())
}

func TestSetParentRejectsCycles(t *testing.T) {
	g := NewGraph()
	a := g.CreateNode("a")
	b := g.CreateNode("b")
	c := g.CreateNode("c")
	require.NoError(t, g.SetParent(b, a))
	require.NoError(t, g.SetParent(c, b))

	assert.ErrorIs(t, g.SetParent(a, c), core.ErrInvalidOperation)
	assert.ErrorIs(t, g.SetParent(a, a), core.ErrInvalidOperation)

	// the failed calls left the hierarchy untouched
	assert.False(t, g.Parent(a).IsValid())
	assert.Equal(t, []NodeID{b}, g.Children(a))
}

func TestClearReparentsToGrandparent(t *testing.T) {
	g := NewGraph()
	root := g.CreateNode("root")
	mid := g.CreateNode("mid")
	leaf1 := g.CreateNode("leaf1")
	leaf2 := g.CreateNode("leaf2")
	require.NoError(t, g.SetParent(mid, root))
	require.NoError(t, g.SetParent(leaf1, mid))
	require.NoError(t, g.SetParent(leaf2, mid))
	g.WorldMatrix(leaf1)
	g.WorldMatrix(leaf2)

	g.Clear(mid, true)

	assert.False(t, g.Parent(mid).IsValid())
	assert.Empty(t, g.Children(mid))
	assert.Equal(t, root, g.Parent(leaf1))
	assert.Equal(t, root, g.Parent(leaf2))
	assert.Equal(t, []NodeID{leaf1, leaf2}, g.Children(root))
	assert.True(t, g.IsDirty(leaf1))
	assert.True(t, g.IsDirty(leaf2))
	assert.True(t, g.IsDirty(mid))
	assert.Equal(t, 4, g.Len())
}

func TestClearDetachesChildren(t *testing.T) {
	g := NewGraph()
	root := g.CreateNode("root")
	mid := g.CreateNode("mid")
	leaf := g.CreateNode("leaf")
	require.NoError(t, g.SetParent(mid, root))
	require.NoError(t, g.SetParent(leaf, mid))
	g.SetPosition(root, mgl32.Vec3{3, 0, 0})
	assert.True(t, g.WorldPosition(leaf).ApproxEqual(mgl32.Vec3{3, 0, 0}))

	g.Clear(mid, false)

	assert.False(t, g.Parent(leaf).IsValid())
	assert.Empty(t, g.Children(root))
	assert.True(t, g.IsDirty(leaf))
	assert.True(t, g.WorldPosition(leaf).ApproxEqual(mgl32.Vec3{}))
}

func TestDestroyNode(t *testing.T) {
	g := NewGraph()
	parent := g.CreateNode("parent")
	child := g.CreateNode("child")
	require.NoError(t, g.SetParent(child, parent))

	assert.Panics(t, func() { g.DestroyNode(parent) })

	g.DestroyNode(child)
	assert.Empty(t, g.Children(parent))
	assert.False(t, g.Contains(child))
	assert.Panics(t, func() { g.WorldMatrix(child) })

	// the slot is reused with a new generation
	reused := g.CreateNode("reused")
	assert.NotEqual(t, child, reused)
	assert.False(t, g.Contains(child))
	assert.True(t, g.Contains(reused))
	assert.Equal(t, 2, g.Len())
}

func TestWalkVisitsParentsFirst(t *testing.T) {
	g := NewGraph()
	root := g.CreateNode("root")
	a := g.CreateNode("a")
	b := g.CreateNode("b")
	aa := g.CreateNode("aa")
	require.NoError(t, g.SetParent(a, root))
	require.NoError(t, g.SetParent(b, root))
	require.NoError(t, g.SetParent(aa, a))

	var names []string
	g.Walk(root, func(id NodeID) bool {
		names = append(names, g.Name(id))
		return true
	})
	assert.Equal(t, []string{"root", "a", "aa", "b"}, names)
}

func randomVec(rng *rand.Rand) mgl32.Vec3 {
	return mgl32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}
}

func randomQuat(rng *rand.Rand) mgl32.Quat {
	axis := mgl32.Vec3{rng.Float32() + 0.1, rng.Float32(), rng.Float32()}.Normalize()
	return mgl32.QuatRotate(rng.Float32()*3, axis)
}
