package window

import "github.com/Carmen-Shannon/oxy-scene/common"

// WindowBuilderOption is a functional option for configuring a Window created by NewWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the title bar text.
//
// Parameters:
//   - title: the window title
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial window size in logical pixels. The framebuffer may be larger on
// scaled displays; Width and Height report the framebuffer once the window exists.
//
// Parameters:
//   - width: initial width
//   - height: initial height
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if width > 0 {
			w.width = width
		}
		if height > 0 {
			w.height = height
		}
	}
}

// WithSizeLimits bounds interactive resizing. A zero width or height leaves that side unbounded.
//
// Parameters:
//   - minSize: the smallest allowed size in logical pixels
//   - maxSize: the largest allowed size in logical pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minSize, maxSize common.Size) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minSize = minSize
		w.maxSize = maxSize
	}
}

// WithCloseOnEscape controls whether Escape closes the window. When disabled the key reaches the
// key callbacks like any other. Enabled by default.
//
// Parameters:
//   - enabled: true to close on Escape
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithCloseOnEscape(enabled bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.closeOnEscape = enabled
	}
}
