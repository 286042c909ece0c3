package layout

// Box is a screen-space rectangle.
type Box struct {
	X, Y, W, H int
}

func (b Box) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.W && y >= b.Y && y < b.Y+b.H
}

// Target is a clickable element of the rendered grid.
type Target struct {
	Box      Box
	Z        int
	DayKey   string
	Identity string

	// StackKey is empty for standalone blocks.
	StackKey string
	Member   int
	Topmost  bool
}

// HitTest returns the target under (x, y) with the highest Z. On equal Z
// the target painted later wins.
func HitTest(targets []Target, x, y int) (Target, bool) {
	best := -1
	for i, t := range targets {
		if !t.Box.Contains(x, y) {
			continue
		}
		if best < 0 || t.Z >= targets[best].Z {
			best = i
		}
	}
	if best < 0 {
		return Target{}, false
	}
	return targets[best], true
}

// PaintOrder tracks elements raised by clicks. Raising changes paint order
// only and never touches group state.
type PaintOrder struct {
	seq    int
	raised map[string]int
}

// Raise moves the element above everything raised before it.
func (p *PaintOrder) Raise(identity string) {
	if p.raised == nil {
		p.raised = make(map[string]int)
	}
	p.seq++
	p.raised[identity] = p.seq
}

// Rank is zero for elements never raised.
func (p *PaintOrder) Rank(identity string) int {
	return p.raised[identity]
}
