package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayerEffectChain(t *testing.T) {
	a := NewArena()
	l := NewLayer()
	a.Insert(l)

	declared := []Handle{a.Insert(NewEffect()), a.Insert(NewEffect()), a.Insert(NewEffect())}
	for i := len(declared) - 1; i >= 0; i-- {
		assert.True(t, l.AddEffect(a, declared[i]))
	}

	effects := l.Effects(a)
	var got []Handle
	for _, e := range effects {
		got = append(got, e.Handle())
	}
	assert.Equal(t, declared, got, "reverse insertion yields declared execution order")
	assert.True(t, l.HasEffects(a))

	l.ResetEffects(a)
	assert.False(t, l.FirstEffect.IsValid())
	assert.Empty(t, l.Effects(a))
	eff, _ := Lookup[*Effect](a, declared[0])
	assert.False(t, eff.NextEffect.IsValid())
}

func TestLayerEffectChainStopsAtStaleLink(t *testing.T) {
	a := NewArena()
	l := NewLayer()
	e1 := a.Insert(NewEffect())
	e2 := a.Insert(NewEffect())
	l.AddEffect(a, e2)
	l.AddEffect(a, e1)

	a.Free(e2)
	assert.Len(t, l.Effects(a), 1)
	assert.False(t, l.AddEffect(a, e2))
}
