package game

import (
	"math/rand"
	"sort"
)

const (
	// GridRows and GridCols are the fixed Tambola ticket dimensions.
	GridRows = 3
	GridCols = 9

	// CellsPerTicket is the number of filled cells on every ticket.
	CellsPerTicket = 15
	// CellsPerRow is the number of filled cells in every row.
	CellsPerRow = 5
	// MaxPerColumn caps how many cells a single column may hold.
	MaxPerColumn = 3

	// MaxNumber is the highest callable number.
	MaxNumber = 90
)

// Grid is a 3x9 ticket layout. A zero cell is empty; non-zero cells hold the
// value for that position. Within a column, values strictly increase downward.
type Grid [GridRows][GridCols]int

// columnRange returns the inclusive numeric range for a column.
// Column 0 holds 1-9, columns 1-7 hold 10-19 .. 70-79, column 8 holds 80-90.
func columnRange(col int) (int, int) {
	if col == 0 {
		return 1, 9
	}
	if col == GridCols-1 {
		return 80, MaxNumber
	}
	return col * 10, col*10 + 9
}

// Generate produces one valid ticket layout from the given randomness source.
// The result always satisfies: 15 filled cells, 5 per row, 0-3 per column,
// column values drawn from the column's range and increasing top to bottom.
func Generate(rng *rand.Rand) (Grid, []int) {
	// Shuffle each column's range up front so cells can take values in
	// generation order and still end up sorted per column.
	colValues := make([][]int, GridCols)
	for col := 0; col < GridCols; col++ {
		lo, hi := columnRange(col)
		vals := make([]int, 0, hi-lo+1)
		for v := lo; v <= hi; v++ {
			vals = append(vals, v)
		}
		rng.Shuffle(len(vals), func(i, j int) { vals[i], vals[j] = vals[j], vals[i] })
		colValues[col] = vals
	}

	// Partition 15 cells across the 9 columns. Bounds keep the remainder
	// absorbable by the columns still to come; the last column takes what
	// is left.
	colCounts := make([]int, GridCols)
	remaining := CellsPerTicket
	for col := 0; col < GridCols; col++ {
		if col == GridCols-1 {
			colCounts[col] = remaining
			break
		}
		colsAfter := GridCols - 1 - col
		// Leave at least one assignable cell for each later column and
		// never more than they can absorb.
		hi := min(MaxPerColumn, remaining-colsAfter)
		lo := remaining - colsAfter*MaxPerColumn
		if lo < 0 {
			lo = 0
		}
		count := lo + rng.Intn(hi-lo+1)
		colCounts[col] = count
		remaining -= count
	}

	// Assign each column's cells to a random subset of rows.
	rowCols := make([][]int, GridRows) // per-row list of occupied columns
	inRow := [GridRows][GridCols]bool{}
	for col := 0; col < GridCols; col++ {
		rows := []int{0, 1, 2}
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		for _, row := range rows[:colCounts[col]] {
			rowCols[row] = append(rowCols[row], col)
			inRow[row][col] = true
		}
	}

	// Repair rows to exactly 5 cells each. Moving a cell between rows keeps
	// the column totals intact; stealing a column from an over-filled row
	// keeps both invariants, so this always converges.
	for row := 0; row < GridRows; row++ {
		for len(rowCols[row]) < CellsPerRow {
			// Prefer columns with spare capacity.
			candidates := make([]int, 0, GridCols)
			for col := 0; col < GridCols; col++ {
				if !inRow[row][col] && colCounts[col] < MaxPerColumn {
					candidates = append(candidates, col)
				}
			}
			if len(candidates) > 0 {
				col := candidates[rng.Intn(len(candidates))]
				rowCols[row] = append(rowCols[row], col)
				inRow[row][col] = true
				colCounts[col]++
				continue
			}
			// No spare capacity anywhere: take a column from a row that
			// has more than 5.
			moved := false
			for _, donor := range []int{0, 1, 2} {
				if donor == row || len(rowCols[donor]) <= CellsPerRow {
					continue
				}
				for i, col := range rowCols[donor] {
					if inRow[row][col] {
						continue
					}
					rowCols[donor] = append(rowCols[donor][:i], rowCols[donor][i+1:]...)
					inRow[donor][col] = false
					rowCols[row] = append(rowCols[row], col)
					inRow[row][col] = true
					moved = true
					break
				}
				if moved {
					break
				}
			}
			if !moved {
				break
			}
		}
		for len(rowCols[row]) > CellsPerRow {
			// Drop a random column; a later under-filled row picks it up.
			i := rng.Intn(len(rowCols[row]))
			col := rowCols[row][i]
			rowCols[row] = append(rowCols[row][:i], rowCols[row][i+1:]...)
			inRow[row][col] = false
			colCounts[col]--
		}
	}

	// Write the pre-shuffled column values in row order so each column
	// increases downward.
	var grid Grid
	for col := 0; col < GridCols; col++ {
		rows := make([]int, 0, GridRows)
		for row := 0; row < GridRows; row++ {
			if inRow[row][col] {
				rows = append(rows, row)
			}
		}
		vals := append([]int(nil), colValues[col][:len(rows)]...)
		sort.Ints(vals)
		for i, row := range rows {
			grid[row][col] = vals[i]
		}
	}

	numbers := make([]int, 0, CellsPerTicket)
	for row := 0; row < GridRows; row++ {
		for col := 0; col < GridCols; col++ {
			if grid[row][col] != 0 {
				numbers = append(numbers, grid[row][col])
			}
		}
	}
	sort.Ints(numbers)

	return grid, numbers
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
