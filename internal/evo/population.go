package evo

import (
	"lgp/internal/fitness"
	"lgp/internal/program"
)

// Individual is a program with its score and bookkeeping. Fitness is only
// meaningful while Evaluated is true.
type Individual struct {
	ID              string
	Program         program.Program
	Fitness         float64
	Evaluated       bool
	Age             int
	BirthGeneration int
}

func newIndividual(id string, p program.Program, generation int) Individual {
	return Individual{
		ID:              id,
		Program:         p,
		Fitness:         fitness.UndefinedFitness,
		BirthGeneration: generation,
	}
}

// Population is a fixed-size slot arena owned by one model run. Replacement
// overwrites a slot in place, so the size never changes.
type Population struct {
	slots []Individual
}

func NewPopulation(individuals []Individual) *Population {
	return &Population{slots: append([]Individual(nil), individuals...)}
}

func (p *Population) Len() int {
	return len(p.slots)
}

func (p *Population) At(i int) Individual {
	return p.slots[i]
}

func (p *Population) Replace(i int, ind Individual) {
	p.slots[i] = ind
}

// Score records an evaluation result for slot i.
func (p *Population) Score(i int, score float64) {
	p.slots[i].Fitness = score
	p.slots[i].Evaluated = true
}

// Unevaluated returns the slots still waiting for a score.
func (p *Population) Unevaluated() []int {
	out := make([]int, 0)
	for i, ind := range p.slots {
		if !ind.Evaluated {
			out = append(out, i)
		}
	}
	return out
}

// Best returns the slot with the lowest fitness, or -1 when empty.
func (p *Population) Best() int {
	best := -1
	for i, ind := range p.slots {
		if best < 0 || ind.Fitness < p.slots[best].Fitness {
			best = i
		}
	}
	return best
}

// Snapshot copies the slot table. Programs are shared; they are never mutated
// in place.
func (p *Population) Snapshot() []Individual {
	return append([]Individual(nil), p.slots...)
}

func (p *Population) age() {
	for i := range p.slots {
		p.slots[i].Age++
	}
}
