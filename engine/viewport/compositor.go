package viewport

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
)

// Frame is the host frame the viewports of one window are recorded into.
type Frame struct {
	// CB is the frame's command buffer.
	CB rhi.CommandBuffer
	// Surface is the window surface size in device pixels.
	Surface common.Size
	// Clear is the surface clear color.
	Clear common.Color
	// Content records the host's own content into the open surface pass. It may be nil.
	Content func(cb rhi.CommandBuffer)
}

// stage is a slot of the surface pass.
type stage int

const (
	stageUnderlay stage = iota
	stageItems
	stageOverlay
)

func stageOf(mode RenderMode) stage {
	switch mode {
	case RenderModeUnderlay:
		return stageUnderlay
	case RenderModeOverlay:
		return stageOverlay
	default:
		return stageItems
	}
}

// Compose records one window frame. Offscreen viewports render their textures first; the surface
// pass then holds the underlays, the host content, the offscreen and inline viewports in the given
// order, and finally the overlays.
//
// Parameters:
//   - f: the host frame
//   - viewports: the viewports of the window, lowest first
func Compose(f Frame, viewports ...Viewport) {
	if f.CB == nil {
		return
	}
	for _, v := range viewports {
		v.beforePass(f.CB)
	}

	f.CB.BeginPass(nil, f.Clear, 1)
	for _, v := range viewports {
		v.record(f.CB, stageUnderlay, f.Surface)
	}
	if f.Content != nil {
		f.Content(f.CB)
	}
	for _, v := range viewports {
		v.record(f.CB, stageItems, f.Surface)
	}
	for _, v := range viewports {
		v.record(f.CB, stageOverlay, f.Surface)
	}
	f.CB.EndPass()
}
