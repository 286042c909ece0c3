package layout

import (
	"sort"
	"strconv"
	"strings"
)

// Pin is either empty or names the member pinned just beneath the primary
// after a promotion. A pin survives exactly one render.
type Pin struct {
	identity string
}

// PinMember pins the member with the given identity.
func PinMember(identity string) Pin {
	return Pin{identity: identity}
}

// Identity returns the pinned member, if any.
func (p Pin) Identity() (string, bool) {
	return p.identity, p.identity != ""
}

// StackState is the user-driven ordering of one overlap group.
type StackState struct {
	Primary int
	Back    Pin
}

// GroupState maps group keys to stack state. It is UI session state:
// entries for keys that disappear are dropped.
type GroupState map[string]StackState

// Clone returns an independent copy.
func (s GroupState) Clone() GroupState {
	out := make(GroupState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Stack is a rendered overlap group anchored on a column-0 block.
type Stack struct {
	Key     string
	DayKey  string
	Members []Block // by start

	Primary int
	Back    int   // -1 when nothing is pinned
	Order   []int // member indices, bottom to top

	StartMinutes float64
	EndMinutes   float64
}

// GroupKey fingerprints a group's membership.
func GroupKey(dayKey string, members []Block) string {
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = m.Identity() + "_" + strconv.FormatFloat(m.StartMinutes, 'f', -1, 64)
	}
	sort.Strings(parts)
	return dayKey + "|" + strings.Join(parts, ",")
}

// dayOfKey returns the day part of a group key.
func dayOfKey(key string) string {
	day, _, _ := strings.Cut(key, "|")
	return day
}

// resolveStack orders members for rendering: the pinned back member at the
// bottom, other non-primary members in start order, the primary on top.
func resolveStack(key, dayKey string, members []Block, st StackState) Stack {
	s := Stack{
		Key:          key,
		DayKey:       dayKey,
		Members:      members,
		Primary:      st.Primary,
		Back:         -1,
		StartMinutes: members[0].StartMinutes,
		EndMinutes:   members[0].EndMinutes,
	}
	if s.Primary < 0 || s.Primary >= len(members) {
		s.Primary = 0
	}
	if id, ok := st.Back.Identity(); ok {
		for i, m := range members {
			if i != s.Primary && m.Identity() == id {
				s.Back = i
				break
			}
		}
	}

	if s.Back >= 0 {
		s.Order = append(s.Order, s.Back)
	}
	for i, m := range members {
		if i != s.Primary && i != s.Back {
			s.Order = append(s.Order, i)
		}
		if m.StartMinutes < s.StartMinutes {
			s.StartMinutes = m.StartMinutes
		}
		if m.EndMinutes > s.EndMinutes {
			s.EndMinutes = m.EndMinutes
		}
	}
	s.Order = append(s.Order, s.Primary)
	return s
}

// PrimaryBlock returns the member drawn on top.
func (s Stack) PrimaryBlock() Block {
	return s.Members[s.Primary]
}

// Promote makes member k the primary and pins the previous primary beneath
// it. Promoting the current primary leaves state unchanged.
func Promote(state GroupState, s Stack, k int) GroupState {
	if k < 0 || k >= len(s.Members) || k == s.Primary {
		return state
	}
	next := state.Clone()
	next[s.Key] = StackState{
		Primary: k,
		Back:    PinMember(s.Members[s.Primary].Identity()),
	}
	return next
}

// Strip is the horizontal placement of one member inside a stack.
type Strip struct {
	Member int
	X      int
	Width  int
	Z      int
}

// Strips lays members out left to right in render order: each non-primary
// member gets a peek-wide strip and the primary fills what remains. Z rises
// with render order.
func (s Stack) Strips(width, peek int) []Strip {
	n := len(s.Order)
	if n == 0 {
		return nil
	}
	if peek < 1 {
		peek = 1
	}
	// Leave the primary at least one cell.
	if n > 1 && (n-1)*peek > width-1 {
		peek = (width - 1) / (n - 1)
		if peek < 1 {
			peek = 1
		}
	}

	strips := make([]Strip, n)
	for r, member := range s.Order {
		strips[r] = Strip{Member: member, X: r * peek, Width: peek, Z: r + 1}
	}
	primary := &strips[n-1]
	primary.Width = width - primary.X
	if primary.Width < 1 {
		primary.Width = 1
	}
	return strips
}
