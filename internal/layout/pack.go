package layout

import "sort"

// PackColumns assigns columns to the blocks of one day. Blocks are ordered by
// start (stable on ties) and each takes the lowest column not used by an
// already-assigned block it overlaps. ColumnCount is then widened to cover
// every overlapping block, including ones assigned later.
//
// The input is not modified; the packed copy is returned in start order.
func PackColumns(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartMinutes < out[j].StartMinutes
	})

	for i := range out {
		used := make(map[int]bool)
		for j := 0; j < i; j++ {
			if out[j].Overlaps(out[i]) {
				used[out[j].Column] = true
			}
		}
		col := 0
		for used[col] {
			col++
		}
		out[i].Column = col
	}

	for i := range out {
		widest := out[i].Column
		for j := range out {
			if j != i && out[j].Overlaps(out[i]) && out[j].Column > widest {
				widest = out[j].Column
			}
		}
		out[i].ColumnCount = widest + 1
	}
	return out
}
