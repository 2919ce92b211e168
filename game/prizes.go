package game

import (
	"fmt"
	"math"
)

// PrizeType identifies one of the six winnable patterns.
type PrizeType string

const (
	PrizeEarlyFive   PrizeType = "early_five"
	PrizeTopLine     PrizeType = "top_line"
	PrizeMiddleLine  PrizeType = "middle_line"
	PrizeBottomLine  PrizeType = "bottom_line"
	PrizeFourCorners PrizeType = "four_corners"
	PrizeFullHouse   PrizeType = "full_house"
)

// PrizeOrder is the precedence used for auto-claim checks and final rankings.
// Earlier entries are adjudicated first on every number call.
var PrizeOrder = []PrizeType{
	PrizeEarlyFive,
	PrizeTopLine,
	PrizeMiddleLine,
	PrizeBottomLine,
	PrizeFourCorners,
	PrizeFullHouse,
}

// PrizePercents maps each prize type to its share of the pool, in whole percent.
type PrizePercents map[PrizeType]int

// DefaultPercents is the standard 10/10/10/10/10/50 split. Rooms may override
// it at creation time as long as the table still sums to 100.
func DefaultPercents() PrizePercents {
	return PrizePercents{
		PrizeEarlyFive:   10,
		PrizeTopLine:     10,
		PrizeMiddleLine:  10,
		PrizeBottomLine:  10,
		PrizeFourCorners: 10,
		PrizeFullHouse:   50,
	}
}

// Validate checks that every prize type is present and the shares sum to 100.
func (p PrizePercents) Validate() error {
	total := 0
	for _, prize := range PrizeOrder {
		pct, ok := p[prize]
		if !ok {
			return fmt.Errorf("prize table missing %s", prize)
		}
		if pct < 0 {
			return fmt.Errorf("prize table has negative share for %s", prize)
		}
		total += pct
	}
	if total != 100 {
		return fmt.Errorf("prize percentages must sum to 100, got %d", total)
	}
	return nil
}

// ComputeDistribution splits a frozen prize pool across the prize types.
// Amounts are rounded to two decimals.
func ComputeDistribution(pool float64, percents PrizePercents) map[PrizeType]float64 {
	dist := make(map[PrizeType]float64, len(PrizeOrder))
	for _, prize := range PrizeOrder {
		amount := pool * float64(percents[prize]) / 100
		dist[prize] = math.Round(amount*100) / 100
	}
	return dist
}

// PrizeRank returns the precedence index of a prize type, used when ranking
// winners at game completion. Unknown types sort last.
func PrizeRank(p PrizeType) int {
	for i, prize := range PrizeOrder {
		if prize == p {
			return i
		}
	}
	return len(PrizeOrder)
}

// ValidPrizeType reports whether s names one of the six prize patterns.
func ValidPrizeType(s string) bool {
	for _, prize := range PrizeOrder {
		if string(prize) == s {
			return true
		}
	}
	return false
}
