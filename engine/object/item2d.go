package object

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
)

// Item2D places a 2D subscene in 3D space. Pointer events that hit it are forwarded to its receiver
// in subscene pixel coordinates.
type Item2D struct {
	Node

	size     common.Size
	receiver InputReceiver
}

var _ Spatial = &Item2D{}

// NewItem2D creates a subscene proxy of the given pixel size.
//
// Parameters:
//   - size: the subscene size in pixels
//   - receiver: the subscene's input delivery path, or nil
//
// Returns:
//   - *Item2D: the new item
func NewItem2D(size common.Size, receiver InputReceiver) *Item2D {
	it := &Item2D{size: size, receiver: receiver}
	it.initNode(it, graph.TypeItem2D)
	it.pickable = true
	return it
}

func (it *Item2D) Size() common.Size {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.size
}

func (it *Item2D) SetSize(s common.Size) {
	it.mu.Lock()
	it.size = s
	it.mu.Unlock()
	it.MarkDirty(DirtyContent)
}

func (it *Item2D) Receiver() InputReceiver {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.receiver
}

func (it *Item2D) UpdateGraphObject(ctx *UpdateContext, existing graph.Object) graph.Object {
	if !ctx.Ready() {
		return nil
	}
	gi, ok := existing.(*graph.Item2D)
	if !ok {
		gi = graph.NewItem2D(it.Size())
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	it.applySpatial(&gi.Node)
	gi.Size = it.size
	return gi
}
