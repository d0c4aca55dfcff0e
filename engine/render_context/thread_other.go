//go:build !linux

package render_context

// currentThreadID returns 0 where the OS thread cannot be identified, which disables the check.
func currentThreadID() int64 {
	return 0
}
