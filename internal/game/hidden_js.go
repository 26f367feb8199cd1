//go:build js

package game

// In a browser tab, losing focus is the closest signal to the tab being
// backgrounded.
func windowHidden(minimized, focused bool) bool {
	return minimized || !focused
}
