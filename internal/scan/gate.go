package scan

import "sync"

// Gate derives whether the camera feed should run from three independent
// inputs: screen focus, app foreground and camera permission.
type Gate struct {
	mu         sync.Mutex
	focused    bool
	foreground bool
	permitted  bool
	active     bool
	onChange   func(active bool)
}

// NewGate returns a closed gate. onChange fires whenever the derived value flips.
func NewGate(onChange func(active bool)) *Gate {
	return &Gate{onChange: onChange}
}

// SetFocused records whether the scan screen has focus.
func (g *Gate) SetFocused(v bool) { g.update(func() { g.focused = v }) }

// SetForeground records whether the app is in the foreground.
func (g *Gate) SetForeground(v bool) { g.update(func() { g.foreground = v }) }

// SetPermission records whether camera permission is granted.
func (g *Gate) SetPermission(v bool) { g.update(func() { g.permitted = v }) }

// Active reports whether frames should be processed.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func (g *Gate) update(set func()) {
	g.mu.Lock()
	set()
	active := g.focused && g.foreground && g.permitted
	changed := active != g.active
	g.active = active
	cb := g.onChange
	g.mu.Unlock()

	if changed && cb != nil {
		cb(active)
	}
}
