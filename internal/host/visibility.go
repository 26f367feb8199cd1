package host

// VisibilityWatcher turns a polled hidden flag into change notifications.
// The page starts visible.
type VisibilityWatcher struct {
	hidden bool
}

// Observe records hidden and reports whether it differs from the last value.
func (w *VisibilityWatcher) Observe(hidden bool) bool {
	if hidden == w.hidden {
		return false
	}
	w.hidden = hidden
	return true
}

func (w *VisibilityWatcher) Hidden() bool {
	return w.hidden
}
