package common

// Virtual key codes used by the demo bindings.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyA   = 65  // A key (ASCII)
	KeyB   = 66  // B key (ASCII)
	KeyD   = 68  // D key (ASCII)
	KeyM   = 77  // M key (ASCII)
	KeyP   = 80  // P key (ASCII)
	KeyT   = 84  // T key (ASCII)
	KeyEsc = 256 // Escape key (GLFW)

	Key1 = 49 // 1 key (ASCII)
	Key2 = 50 // 2 key (ASCII)
	Key3 = 51 // 3 key (ASCII)
	Key4 = 52 // 4 key (ASCII)
)

// MouseButton identifies a pointer button. Values match glfw.MouseButton.
type MouseButton int

const (
	MouseButtonLeft   MouseButton = 0
	MouseButtonRight  MouseButton = 1
	MouseButtonMiddle MouseButton = 2
)

// PointerAction is the phase of a pointer event.
type PointerAction int

const (
	PointerPress PointerAction = iota
	PointerRelease
	PointerMove
)

// PointerEvent is a pointer sample in some coordinate space.
// Windows deliver events in window pixels; viewports and subscenes rewrite X and Y into their own space before forwarding.
type PointerEvent struct {
	X, Y   float32
	Button MouseButton
	Action PointerAction
}

// At returns a copy of the event moved to (x, y).
func (e PointerEvent) At(x, y float32) PointerEvent {
	e.X, e.Y = x, y
	return e
}
