//go:build !js

package game

// windowHidden maps the window state to page visibility. A desktop window
// that lost focus is still on screen, so only minimizing hides it.
func windowHidden(minimized, focused bool) bool {
	return minimized
}
