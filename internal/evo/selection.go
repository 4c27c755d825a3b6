package evo

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrTournamentTooLarge = errors.New("tournament size exceeds selection pool")

// Selection lists parent slots in tournament order and, index for index, the
// slots that offspring replace.
type Selection struct {
	Parents []int
	Vacated []int
}

// TournamentSelection runs NumberOfOffspring tournaments of TournamentSize
// distinct contestants each; the fittest contestant wins.
//
// With RemoveWinners, a winner leaves the pool for the rest of the Select call
// and its own slot is vacated for offspring. The pool is whole again on the
// next call, so removal spans one generation's selection phase. Without it, the
// pool stays intact and each tournament vacates its worst contestant that has
// not been vacated yet.
type TournamentSelection struct {
	TournamentSize    int
	NumberOfOffspring int
	RemoveWinners     bool
}

func (TournamentSelection) Name() string {
	return "tournament"
}

func (s TournamentSelection) Select(rng *rand.Rand, pool []Individual) (Selection, error) {
	if rng == nil {
		return Selection{}, fmt.Errorf("random source is required")
	}
	if s.TournamentSize < 1 {
		return Selection{}, fmt.Errorf("tournament size must be > 0")
	}
	if s.NumberOfOffspring < 1 {
		return Selection{}, fmt.Errorf("number of offspring must be > 0")
	}
	if s.NumberOfOffspring > len(pool) {
		return Selection{}, fmt.Errorf("%w: %d offspring from pool of %d", ErrTournamentTooLarge, s.NumberOfOffspring, len(pool))
	}

	available := make([]int, len(pool))
	for i := range available {
		available[i] = i
	}
	vacated := make(map[int]struct{}, s.NumberOfOffspring)
	out := Selection{
		Parents: make([]int, 0, s.NumberOfOffspring),
		Vacated: make([]int, 0, s.NumberOfOffspring),
	}

	for t := 0; t < s.NumberOfOffspring; t++ {
		if s.TournamentSize > len(available) {
			return Selection{}, fmt.Errorf("%w: k=%d pool=%d", ErrTournamentTooLarge, s.TournamentSize, len(available))
		}
		contestants := sampleDistinct(rng, available, s.TournamentSize)

		winner := contestants[0]
		for _, c := range contestants[1:] {
			if pool[c].Fitness < pool[winner].Fitness {
				winner = c
			}
		}
		out.Parents = append(out.Parents, winner)

		if s.RemoveWinners {
			available = removeSlot(available, winner)
			vacated[winner] = struct{}{}
			out.Vacated = append(out.Vacated, winner)
			continue
		}

		loser := worstUnvacated(pool, contestants, winner, vacated)
		if loser < 0 {
			loser = worstUnvacated(pool, available, winner, vacated)
		}
		if loser < 0 {
			loser = winner
		}
		vacated[loser] = struct{}{}
		out.Vacated = append(out.Vacated, loser)
	}
	return out, nil
}

// BinaryTournamentSelection is a pair of two-way tournaments yielding two
// parents.
func BinaryTournamentSelection(removeWinners bool) TournamentSelection {
	return TournamentSelection{TournamentSize: 2, NumberOfOffspring: 2, RemoveWinners: removeWinners}
}

// sampleDistinct draws k distinct entries of from using a partial shuffle of a
// copy.
func sampleDistinct(rng *rand.Rand, from []int, k int) []int {
	buf := append([]int(nil), from...)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(buf)-i)
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf[:k]
}

func removeSlot(slots []int, slot int) []int {
	for i, s := range slots {
		if s == slot {
			return append(slots[:i], slots[i+1:]...)
		}
	}
	return slots
}

func worstUnvacated(pool []Individual, candidates []int, winner int, vacated map[int]struct{}) int {
	worst := -1
	for _, c := range candidates {
		if c == winner {
			continue
		}
		if _, taken := vacated[c]; taken {
			continue
		}
		if worst < 0 || pool[c].Fitness >= pool[worst].Fitness {
			worst = c
		}
	}
	return worst
}
