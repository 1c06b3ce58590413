// internal/bingo/win.go
//
// Win evaluation over the fixed 5x5 grid.
//   - Single:   any full row, any full column, or either diagonal.
//   - Cross:    both diagonals.
//   - Plus:     middle row and middle column.
//   - Blackout: every cell.
//
// All checks are pure functions of the mark vector.

package bingo

import "sort"

// line is a set of cell indices that must all be marked.
type line [Size]int

func row(r int) line {
	var l line
	for c := 0; c < Size; c++ {
		l[c] = r*Size + c
	}
	return l
}

func column(c int) line {
	var l line
	for r := 0; r < Size; r++ {
		l[r] = r*Size + c
	}
	return l
}

func mainDiagonal() line {
	var l line
	for i := 0; i < Size; i++ {
		l[i] = i*Size + i
	}
	return l
}

func antiDiagonal() line {
	var l line
	for i := 0; i < Size; i++ {
		l[i] = i*Size + (Size - 1 - i)
	}
	return l
}

func (b *Board) complete(l line) bool {
	for _, idx := range l {
		if !b[idx].IsMarked {
			return false
		}
	}
	return true
}

// CheckWin reports whether the board satisfies strategy s.
// Unknown strategies fall back to Single.
func CheckWin(b Board, s Strategy) bool {
	switch s {
	case StrategyBlackout:
		for i := range b {
			if !b[i].IsMarked {
				return false
			}
		}
		return true
	case StrategyCross:
		return b.complete(mainDiagonal()) && b.complete(antiDiagonal())
	case StrategyPlus:
		return b.complete(row(middleRow)) && b.complete(column(middleCol))
	default:
		for i := 0; i < Size; i++ {
			if b.complete(row(i)) || b.complete(column(i)) {
				return true
			}
		}
		return b.complete(mainDiagonal()) || b.complete(antiDiagonal())
	}
}

// Relevant returns the sorted cell indices that take part in strategy s's
// win condition. Single and Blackout highlight nothing.
func Relevant(s Strategy) []int {
	var lines []line
	switch s {
	case StrategyCross:
		lines = []line{mainDiagonal(), antiDiagonal()}
	case StrategyPlus:
		lines = []line{row(middleRow), column(middleCol)}
	default:
		return []int{}
	}
	seen := make(map[int]struct{}, CellCount)
	out := make([]int, 0, 2*Size)
	for _, l := range lines {
		for _, idx := range l {
			if _, ok := seen[idx]; ok {
				continue
			}
			seen[idx] = struct{}{}
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}
