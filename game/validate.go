package game

// EarlyFiveCount is how many ticket numbers must be called for early five.
const EarlyFiveCount = 5

// IsWinner reports whether a ticket satisfies the given prize pattern against
// the called-number history. Pure: no side effects, order of called numbers
// only matters in that a prefix of the history yields a prefix of the result.
func IsWinner(grid Grid, numbers []int, called []int, prize PrizeType) bool {
	calledSet := make(map[int]bool, len(called))
	for _, n := range called {
		calledSet[n] = true
	}

	switch prize {
	case PrizeEarlyFive:
		matched := 0
		for _, n := range numbers {
			if calledSet[n] {
				matched++
			}
		}
		return matched >= EarlyFiveCount

	case PrizeTopLine:
		return lineComplete(grid[0], calledSet)
	case PrizeMiddleLine:
		return lineComplete(grid[1], calledSet)
	case PrizeBottomLine:
		return lineComplete(grid[2], calledSet)

	case PrizeFourCorners:
		corners := cornerValues(grid)
		if len(corners) != 4 {
			return false
		}
		for _, n := range corners {
			if !calledSet[n] {
				return false
			}
		}
		return true

	case PrizeFullHouse:
		if len(numbers) == 0 {
			return false
		}
		for _, n := range numbers {
			if !calledSet[n] {
				return false
			}
		}
		return true
	}

	return false
}

// lineComplete is true once every filled cell in the row has been called.
// An empty row cannot win a line prize.
func lineComplete(row [GridCols]int, called map[int]bool) bool {
	filled := 0
	for _, n := range row {
		if n == 0 {
			continue
		}
		filled++
		if !called[n] {
			return false
		}
	}
	return filled > 0
}

// cornerValues returns the first and last filled cell of the top and bottom
// rows. A row with fewer than two filled cells cannot contribute both of its
// corners, so the result then has fewer than four entries.
func cornerValues(grid Grid) []int {
	corners := make([]int, 0, 4)
	for _, row := range [][GridCols]int{grid[0], grid[GridRows-1]} {
		filled := make([]int, 0, GridCols)
		for _, n := range row {
			if n != 0 {
				filled = append(filled, n)
			}
		}
		if len(filled) < 2 {
			continue
		}
		corners = append(corners, filled[0], filled[len(filled)-1])
	}
	return corners
}
