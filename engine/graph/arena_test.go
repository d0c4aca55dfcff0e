package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeKinds(t *testing.T) {
	assert.True(t, TypeModel.IsNodeType())
	assert.True(t, TypeLayer.IsNodeType())
	assert.False(t, TypeImage.IsNodeType())
	assert.True(t, TypeImage.IsResource())
	assert.True(t, TypeResourceLoader.IsResource())
	assert.Equal(t, KindExtension, TypeRenderExtension.Kind())
	assert.Equal(t, KindUnknown, TypeUnknown.Kind())

	for _, typ := range []Type{TypeModel, TypeImage, TypeGeometry, TypeTextureData} {
		assert.True(t, typ.HasGraphicsResources(), typ.String())
	}
	for _, typ := range []Type{TypeNode, TypeCamera, TypeMaterial, TypeEffect, TypeResourceLoader} {
		assert.False(t, typ.HasGraphicsResources(), typ.String())
	}
}

func TestArenaInsertGetFree(t *testing.T) {
	a := NewArena()
	n := NewNode()
	h := a.Insert(n)

	require.True(t, h.IsValid())
	assert.Equal(t, h, n.Handle())
	assert.Equal(t, 1, a.Len())

	got, ok := a.Get(h)
	require.True(t, ok)
	assert.Same(t, n, got)

	assert.True(t, a.Free(h))
	assert.False(t, a.Free(h), "second free must be a no-op")
	_, ok = a.Get(h)
	assert.False(t, ok)
	assert.Equal(t, 0, a.Len())
	assert.False(t, n.Handle().IsValid())
}

func TestArenaStaleHandleAfterReuse(t *testing.T) {
	a := NewArena()
	first := a.Insert(NewNode())
	require.True(t, a.Free(first))

	second := a.Insert(NewModel())
	assert.Equal(t, first.Index, second.Index, "slot is reused")
	assert.NotEqual(t, first.Generation, second.Generation)

	_, ok := a.Get(first)
	assert.False(t, ok, "stale handle must not reach the reused slot")
	assert.False(t, a.Free(first))
	assert.True(t, a.Contains(second))
}

func TestArenaLookupTyped(t *testing.T) {
	a := NewArena()
	h := a.Insert(NewMaterial(MaterialPrincipled))

	m, ok := Lookup[*Material](a, h)
	require.True(t, ok)
	assert.Equal(t, MaterialPrincipled, m.MaterialKind)

	_, ok = Lookup[*Model](a, h)
	assert.False(t, ok)
	_, ok = Lookup[*Material](a, Handle{})
	assert.False(t, ok)
}

func TestArenaRevision(t *testing.T) {
	a := NewArena()
	r0 := a.Revision()
	h := a.Insert(NewNode())
	r1 := a.Revision()
	assert.Greater(t, r1, r0)

	_, _ = a.Get(h)
	assert.Equal(t, r1, a.Revision(), "reads do not bump the revision")

	a.Free(h)
	assert.Greater(t, a.Revision(), r1)
}

func TestArenaInsertTwicePanics(t *testing.T) {
	a := NewArena()
	n := NewNode()
	a.Insert(n)
	assert.Panics(t, func() { a.Insert(n) })
	assert.Panics(t, func() { a.Insert(nil) })
}

func TestArenaEach(t *testing.T) {
	a := NewArena()
	h1 := a.Insert(NewNode())
	h2 := a.Insert(NewImage())
	h3 := a.Insert(NewModel())
	a.Free(h2)

	var seen []Handle
	a.Each(func(h Handle, _ Object) bool {
		seen = append(seen, h)
		return true
	})
	assert.Equal(t, []Handle{h1, h3}, seen)
}

func TestArenaRetireHidesUntilTaken(t *testing.T) {
	a := NewArena()
	img := NewImage()
	h := a.Insert(img)

	require.True(t, a.Retire(h))
	assert.False(t, a.Retire(h), "retiring twice is a no-op")
	assert.False(t, a.Contains(h))
	a.Each(func(Handle, Object) bool {
		t.Fatal("retired objects are not iterated")
		return false
	})
	assert.Equal(t, 1, a.Len(), "retired objects still occupy their slot")

	obj, ok := a.Take(h)
	require.True(t, ok)
	assert.Same(t, img, obj)
	assert.Equal(t, 0, a.Len())

	_, ok = a.Take(h)
	assert.False(t, ok)
}
